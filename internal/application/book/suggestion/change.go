// Package suggestion 将一致性问题转换为对章节的精确修改，支持预览与单步撤销
package suggestion

import (
	"math"
	"strings"

	"github.com/aryann/difflib"

	apperrors "ghostwriter-ai-api/pkg/errors"
)

// DefaultConfidenceThreshold 自动应用修改的最低置信度
const DefaultConfidenceThreshold = 0.7

// ConfidencePolicy 置信度门槛
type ConfidencePolicy struct {
	Threshold float64
}

// Allows 置信度达到门槛时允许应用；超出 [0,1]（如百分数）视为不可信
func (p ConfidencePolicy) Allows(confidence float64) bool {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return false
	}
	return confidence >= p.Threshold
}

// ModificationType 修改类型
type ModificationType string

const (
	ModificationDeletion    ModificationType = "deletion"
	ModificationReplacement ModificationType = "replacement"
	ModificationAddition    ModificationType = "addition"
)

// Change 模型给出的修改
type Change struct {
	TargetText       string           `json:"targetText"`
	ModificationType ModificationType `json:"modificationType"`
	NewText          string           `json:"newText"`
	Reasoning        string           `json:"reasoning"`
	Confidence       float64          `json:"confidence"`
}

// Stats 修改幅度
type Stats struct {
	WordsChanged      int     `json:"wordsChanged"`
	PercentageChanged float64 `json:"percentageChanged"`
}

// ApplyChange 在正文中定位 TargetText 的第一次出现并执行修改
func ApplyChange(content string, c Change) (string, error) {
	if c.TargetText == "" || !strings.Contains(content, c.TargetText) {
		return "", apperrors.New(apperrors.CodeTargetTextNotFound, "suggested target text was not found in the chapter")
	}
	switch ModificationType(strings.ToLower(strings.TrimSpace(string(c.ModificationType)))) {
	case ModificationDeletion:
		return strings.Replace(content, c.TargetText, "", 1), nil
	case ModificationReplacement:
		return strings.Replace(content, c.TargetText, c.NewText, 1), nil
	case ModificationAddition:
		return strings.Replace(content, c.TargetText, c.TargetText+"\n\n"+c.NewText, 1), nil
	default:
		return "", apperrors.Newf(apperrors.CodeAmbiguousSuggestion, "unsupported modification type %q", c.ModificationType)
	}
}

// ComputeStats 按词统计新增与删除数量
func ComputeStats(oldContent, newContent string) Stats {
	oldWords := strings.Fields(oldContent)
	changed := 0
	for _, rec := range difflib.Diff(oldWords, strings.Fields(newContent)) {
		if rec.Delta != difflib.Common {
			changed++
		}
	}
	var pct float64
	switch {
	case len(oldWords) > 0:
		pct = float64(changed) / float64(len(oldWords)) * 100
	case changed > 0:
		pct = 100
	}
	return Stats{
		WordsChanged:      changed,
		PercentageChanged: math.Round(pct*10) / 10,
	}
}
