package llm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	wfmodel "ghostwriter-ai-api/internal/workflow/model"
)

// OutputSegment 响应中的一段文本输出
// 不同提供商（及代理）返回的形状不一致，统一归为以下三种
type OutputSegment interface {
	segment()
	Text() string
}

// StringField 直接以字符串字段给出的文本，例如 output_text
type StringField struct {
	Path  string
	Value string
}

// TextSegment 分段数组中的文本段，例如 {"type":"output_text","text":"..."}
type TextSegment struct {
	Type  string
	Value string
}

// NestedObject 文本包在对象里，例如 {"text":{"value":"..."}}
type NestedObject struct {
	Path  string
	Value string
}

func (StringField) segment()  {}
func (TextSegment) segment()  {}
func (NestedObject) segment() {}

func (s StringField) Text() string  { return s.Value }
func (s TextSegment) Text() string  { return s.Value }
func (s NestedObject) Text() string { return s.Value }

// JoinSegments 拼接所有分段文本
func JoinSegments(segs []OutputSegment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text())
	}
	return b.String()
}

// ParseOutputSegments 从原始响应中提取文本分段
func ParseOutputSegments(raw []byte) []OutputSegment {
	root := gjson.ParseBytes(raw)

	if v := root.Get("output_text"); v.Type == gjson.String && v.String() != "" {
		return []OutputSegment{StringField{Path: "output_text", Value: v.String()}}
	}

	var segs []OutputSegment
	root.Get("output").ForEach(func(idx, item gjson.Result) bool {
		if t := item.Get("type").String(); t != "" && t != "message" {
			return true
		}
		segs = append(segs, contentSegments(fmt.Sprintf("output.%d.content", idx.Int()), item.Get("content"))...)
		return true
	})
	if len(segs) > 0 {
		return segs
	}

	// Chat Completions 形状
	if c := root.Get("choices.0.message.content"); c.Exists() {
		return contentSegments("choices.0.message.content", c)
	}
	if v := root.Get("text"); v.Type == gjson.String {
		return []OutputSegment{StringField{Path: "text", Value: v.String()}}
	}
	return nil
}

func contentSegments(path string, content gjson.Result) []OutputSegment {
	switch {
	case content.Type == gjson.String:
		return []OutputSegment{StringField{Path: path, Value: content.String()}}
	case content.IsArray():
		var segs []OutputSegment
		content.ForEach(func(idx, part gjson.Result) bool {
			if part.Type == gjson.String {
				segs = append(segs, StringField{Path: fmt.Sprintf("%s.%d", path, idx.Int()), Value: part.String()})
				return true
			}
			partType := part.Get("type").String()
			switch partType {
			case "", "output_text", "text":
			default:
				return true
			}
			t := part.Get("text")
			switch {
			case t.Type == gjson.String:
				segs = append(segs, TextSegment{Type: partType, Value: t.String()})
			case t.IsObject():
				segs = append(segs, NestedObject{Path: fmt.Sprintf("%s.%d.text", path, idx.Int()), Value: t.Get("value").String()})
			}
			return true
		})
		return segs
	case content.IsObject():
		if v := content.Get("value"); v.Type == gjson.String {
			return []OutputSegment{NestedObject{Path: path, Value: v.String()}}
		}
	}
	return nil
}

// NormalizeResponse 将原始响应归一化为 GenerateResponse
func NormalizeResponse(raw []byte) (*wfmodel.GenerateResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid response payload")
	}
	root := gjson.ParseBytes(raw)
	if e := root.Get("error"); e.IsObject() {
		return nil, fmt.Errorf("provider error: %s", e.Get("message").String())
	}

	resp := &wfmodel.GenerateResponse{
		ID:    root.Get("id").String(),
		Model: root.Get("model").String(),
		Text:  StripThinking(JoinSegments(ParseOutputSegments(raw))),
	}

	usage := root.Get("usage")
	resp.Usage.PromptTokens = int(firstInt(usage, "input_tokens", "prompt_tokens"))
	resp.Usage.CompletionTokens = int(firstInt(usage, "output_tokens", "completion_tokens"))

	switch {
	case root.Get("status").String() == "incomplete" &&
		root.Get("incomplete_details.reason").String() == "max_output_tokens":
		resp.Incomplete = true
	case root.Get("choices.0.finish_reason").String() == "length":
		resp.Incomplete = true
	}
	return resp, nil
}

func firstInt(obj gjson.Result, keys ...string) int64 {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

// StripThinking 去掉部分模型输出的 <think> 段
func StripThinking(s string) string {
	if !strings.Contains(s, "<think>") {
		return s
	}
	if idx := strings.LastIndex(s, "</think>"); idx != -1 {
		return strings.TrimSpace(s[idx+len("</think>"):])
	}
	return s
}
