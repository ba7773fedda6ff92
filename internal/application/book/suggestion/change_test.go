package suggestion

import (
	"math"
	"testing"

	apperrors "ghostwriter-ai-api/pkg/errors"
)

func TestApplyChange(t *testing.T) {
	content := "We grew to 40 people. Revenue hit $3M. Revenue hit $3M again."
	tests := []struct {
		name   string
		change Change
		want   string
		code   apperrors.ErrorCode
	}{
		{
			name:   "replacement touches first occurrence only",
			change: Change{TargetText: "Revenue hit $3M.", ModificationType: ModificationReplacement, NewText: "Revenue hit $2M."},
			want:   "We grew to 40 people. Revenue hit $2M. Revenue hit $3M again.",
		},
		{
			name:   "deletion",
			change: Change{TargetText: " Revenue hit $3M again.", ModificationType: ModificationDeletion},
			want:   "We grew to 40 people. Revenue hit $3M.",
		},
		{
			name:   "addition inserts after target",
			change: Change{TargetText: "We grew to 40 people.", ModificationType: "Addition", NewText: "Most were engineers."},
			want:   "We grew to 40 people.\n\nMost were engineers. Revenue hit $3M. Revenue hit $3M again.",
		},
		{
			name:   "target missing",
			change: Change{TargetText: "We grew to 50 people.", ModificationType: ModificationReplacement},
			code:   apperrors.CodeTargetTextNotFound,
		},
		{
			name:   "empty target",
			change: Change{ModificationType: ModificationDeletion},
			code:   apperrors.CodeTargetTextNotFound,
		},
		{
			name:   "unknown type",
			change: Change{TargetText: "We grew", ModificationType: "rewrite"},
			code:   apperrors.CodeAmbiguousSuggestion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyChange(content, tt.change)
			if tt.code != "" {
				if apperrors.CodeOf(err) != tt.code {
					t.Fatalf("want code %s, got %v", tt.code, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestConfidencePolicyBoundary(t *testing.T) {
	p := ConfidencePolicy{Threshold: DefaultConfidenceThreshold}
	if p.Allows(0.69) {
		t.Error("0.69 should be rejected")
	}
	if !p.Allows(0.70) {
		t.Error("0.70 should be allowed")
	}
	for _, c := range []float64{70, 1.01, -0.5, math.NaN()} {
		if p.Allows(c) {
			t.Errorf("out-of-range confidence %v allowed", c)
		}
	}
	if !p.Allows(1) {
		t.Error("1.0 should be allowed")
	}
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats("one two three four five six seven eight nine ten", "one two THREE four five six seven eight nine ten")
	if s.WordsChanged != 2 || s.PercentageChanged != 20 {
		t.Errorf("stats = %+v", s)
	}
	s = ComputeStats("a b c", "a b c")
	if s.WordsChanged != 0 || s.PercentageChanged != 0 {
		t.Errorf("identical stats = %+v", s)
	}
	s = ComputeStats("a b c", "a b c d")
	if s.WordsChanged != 1 || s.PercentageChanged != 33.3 {
		t.Errorf("addition stats = %+v", s)
	}
	if s = ComputeStats("", "new words"); s.PercentageChanged != 100 {
		t.Errorf("empty original stats = %+v", s)
	}
}
