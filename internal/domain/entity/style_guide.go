package entity

import (
	"strings"
)

// StyleGuideSource 风格指南来源
type StyleGuideSource string

const (
	StyleGuideSourceNone      StyleGuideSource = "none"
	StyleGuideSourceCustom    StyleGuideSource = "custom"
	StyleGuideSourceGenerated StyleGuideSource = "generated"
	StyleGuideSourceLegacy    StyleGuideSource = "legacy"
)

// LegacyStyleGuide 旧版结构化风格指南
type LegacyStyleGuide struct {
	Tone       string   `json:"tone,omitempty"`
	Voice      string   `json:"voice,omitempty"`
	Vocabulary []string `json:"vocabulary,omitempty"`
	Avoid      []string `json:"avoid,omitempty"`
}

// Render 渲染为文本
func (g *LegacyStyleGuide) Render() string {
	if g == nil {
		return ""
	}
	var lines []string
	if s := trimmed(g.Tone); s != "" {
		lines = append(lines, "Tone: "+s)
	}
	if s := trimmed(g.Voice); s != "" {
		lines = append(lines, "Voice: "+s)
	}
	if len(g.Vocabulary) > 0 {
		lines = append(lines, "Preferred vocabulary: "+strings.Join(g.Vocabulary, ", "))
	}
	if len(g.Avoid) > 0 {
		lines = append(lines, "Avoid: "+strings.Join(g.Avoid, ", "))
	}
	return strings.Join(lines, "\n")
}

// ResolveStyleGuide 选择生效的风格指南：custom > generated > legacy
func ResolveStyleGuide(custom, generated string, legacy *LegacyStyleGuide) (string, StyleGuideSource) {
	if s := trimmed(custom); s != "" {
		return s, StyleGuideSourceCustom
	}
	if s := trimmed(generated); s != "" {
		return s, StyleGuideSourceGenerated
	}
	if s := legacy.Render(); s != "" {
		return s, StyleGuideSourceLegacy
	}
	return "", StyleGuideSourceNone
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
