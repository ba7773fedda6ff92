package entity

import (
	apperrors "ghostwriter-ai-api/pkg/errors"
)

// ReasoningEffort 推理强度
type ReasoningEffort string

const (
	ReasoningMinimal ReasoningEffort = "minimal"
	ReasoningLow     ReasoningEffort = "low"
	ReasoningMedium  ReasoningEffort = "medium"
	ReasoningHigh    ReasoningEffort = "high"
)

// Valid 是否为合法取值
func (r ReasoningEffort) Valid() bool {
	switch r {
	case ReasoningMinimal, ReasoningLow, ReasoningMedium, ReasoningHigh:
		return true
	}
	return false
}

// Verbosity 输出详略程度
type Verbosity string

const (
	VerbosityLow    Verbosity = "low"
	VerbosityMedium Verbosity = "medium"
	VerbosityHigh   Verbosity = "high"
)

// Valid 是否为合法取值
func (v Verbosity) Valid() bool {
	switch v {
	case VerbosityLow, VerbosityMedium, VerbosityHigh:
		return true
	}
	return false
}

// AIConfig 项目级生成参数
type AIConfig struct {
	Provider              string          `json:"provider,omitempty"`
	Model                 string          `json:"model,omitempty"`
	ReasoningEffort       ReasoningEffort `json:"reasoning_effort,omitempty"`
	Verbosity             Verbosity       `json:"verbosity,omitempty"`
	MaxOutputTokens       int             `json:"max_output_tokens,omitempty"`
	TargetWordsPerChapter int             `json:"target_words_per_chapter,omitempty"`
}

// WithDefaults 用默认值补齐未设置的字段
func (c *AIConfig) WithDefaults(def AIConfig) AIConfig {
	if c == nil {
		return def
	}
	out := *c
	if out.Provider == "" {
		out.Provider = def.Provider
	}
	if out.Model == "" {
		out.Model = def.Model
	}
	if out.ReasoningEffort == "" {
		out.ReasoningEffort = def.ReasoningEffort
	}
	if out.Verbosity == "" {
		out.Verbosity = def.Verbosity
	}
	if out.MaxOutputTokens <= 0 {
		out.MaxOutputTokens = def.MaxOutputTokens
	}
	if out.TargetWordsPerChapter <= 0 {
		out.TargetWordsPerChapter = def.TargetWordsPerChapter
	}
	return out
}

// Validate 校验配置取值
func (c AIConfig) Validate(maxTokensCeiling int) error {
	if c.Model == "" {
		return apperrors.New(apperrors.CodeValidationFailed, "ai config model is required")
	}
	if c.ReasoningEffort != "" && !c.ReasoningEffort.Valid() {
		return apperrors.Newf(apperrors.CodeValidationFailed, "invalid reasoning effort %q", c.ReasoningEffort)
	}
	if c.Verbosity != "" && !c.Verbosity.Valid() {
		return apperrors.Newf(apperrors.CodeValidationFailed, "invalid verbosity %q", c.Verbosity)
	}
	if c.MaxOutputTokens < 0 || (maxTokensCeiling > 0 && c.MaxOutputTokens > maxTokensCeiling) {
		return apperrors.Newf(apperrors.CodeValidationFailed, "max output tokens must be within (0,%d]", maxTokensCeiling)
	}
	if c.TargetWordsPerChapter < 0 {
		return apperrors.New(apperrors.CodeValidationFailed, "target words per chapter must be positive")
	}
	return nil
}
