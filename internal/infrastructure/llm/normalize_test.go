package llm

import (
	"errors"
	"testing"
)

func TestParseOutputSegmentsShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		wantKind string
	}{
		{
			name:     "top-level output_text",
			raw:      `{"id":"r1","output_text":"hello world"}`,
			want:     "hello world",
			wantKind: "string",
		},
		{
			name: "message content segments skip reasoning",
			raw: `{"output":[
				{"type":"reasoning","summary":[{"type":"summary_text","text":"thinking"}]},
				{"type":"message","content":[{"type":"output_text","text":"part one "},{"type":"output_text","text":"part two"}]}
			]}`,
			want:     "part one part two",
			wantKind: "segment",
		},
		{
			name:     "nested text object",
			raw:      `{"output":[{"type":"message","content":[{"type":"output_text","text":{"value":"nested","annotations":[]}}]}]}`,
			want:     "nested",
			wantKind: "nested",
		},
		{
			name:     "message content as plain string",
			raw:      `{"output":[{"type":"message","content":"plain"}]}`,
			want:     "plain",
			wantKind: "string",
		},
		{
			name:     "chat completions shape",
			raw:      `{"choices":[{"message":{"role":"assistant","content":"from chat"},"finish_reason":"stop"}]}`,
			want:     "from chat",
			wantKind: "string",
		},
		{
			name:     "refusal ignored",
			raw:      `{"output":[{"type":"message","content":[{"type":"refusal","refusal":"no"},{"type":"output_text","text":"ok"}]}]}`,
			want:     "ok",
			wantKind: "segment",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := ParseOutputSegments([]byte(tt.raw))
			if got := JoinSegments(segs); got != tt.want {
				t.Fatalf("text = %q, want %q", got, tt.want)
			}
			if len(segs) == 0 {
				t.Fatal("no segments")
			}
			var kind string
			switch segs[0].(type) {
			case StringField:
				kind = "string"
			case TextSegment:
				kind = "segment"
			case NestedObject:
				kind = "nested"
			}
			if kind != tt.wantKind {
				t.Errorf("first segment kind = %s, want %s", kind, tt.wantKind)
			}
		})
	}
}

func TestNormalizeResponseUsageAndTruncation(t *testing.T) {
	raw := `{
		"id":"resp_123","model":"gpt-5","status":"incomplete",
		"incomplete_details":{"reason":"max_output_tokens"},
		"output":[{"type":"message","content":[{"type":"output_text","text":"{\"chapter\":\"abc"}]}],
		"usage":{"input_tokens":120,"output_tokens":4000}
	}`
	resp, err := NormalizeResponse([]byte(raw))
	if err != nil {
		t.Fatalf("NormalizeResponse: %v", err)
	}
	if resp.ID != "resp_123" || resp.Model != "gpt-5" {
		t.Errorf("id/model = %q/%q", resp.ID, resp.Model)
	}
	if resp.Usage.PromptTokens != 120 || resp.Usage.CompletionTokens != 4000 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if !resp.Incomplete {
		t.Error("expected incomplete flag")
	}
	if resp.Text != `{"chapter":"abc` {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestNormalizeResponseChatUsage(t *testing.T) {
	raw := `{"id":"c1","choices":[{"message":{"content":"<think>hmm</think>\nanswer"},"finish_reason":"length"}],"usage":{"prompt_tokens":7,"completion_tokens":9}}`
	resp, err := NormalizeResponse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "answer" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 7 || resp.Usage.CompletionTokens != 9 || !resp.Incomplete {
		t.Errorf("resp = %+v", resp)
	}
}

func TestNormalizeResponseErrors(t *testing.T) {
	if _, err := NormalizeResponse([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid payload")
	}
	if _, err := NormalizeResponse([]byte(`{"error":{"message":"quota exceeded"}}`)); err == nil {
		t.Error("expected error for error payload")
	}
}

func TestIsResponseFormatUnsupported(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"400 Bad Request: 'response_format' of type 'json_schema' is not supported with this model", true},
		{"Unknown parameter: 'text.format' in response", true},
		{"model does not support structured output", true},
		{"context deadline exceeded", false},
		{"429 Too Many Requests", false},
	}
	for _, tt := range tests {
		if got := isResponseFormatUnsupported(errors.New(tt.msg)); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.msg, got, tt.want)
		}
	}
	if isResponseFormatUnsupported(nil) {
		t.Error("nil error reported as unsupported")
	}
}
