package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// StringMap 字符串映射，反序列化时容忍数字、布尔等标量值
type StringMap map[string]string

// UnmarshalJSON 将任意标量值转换为字符串
func (m *StringMap) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(StringMap, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return err
			}
			out[k] = string(b)
		}
	}
	*m = out
	return nil
}

// Keys 返回排序后的键
func (m StringMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MasterContext 全书主上下文，随章节生成单调累积
type MasterContext struct {
	Characters []string  `json:"characters"`
	Terms      StringMap `json:"terms"`
	Numbers    StringMap `json:"numbers"`
	Themes     []string  `json:"themes"`
}

// NewMasterContext 创建空的主上下文
func NewMasterContext() *MasterContext {
	return &MasterContext{
		Characters: []string{},
		Terms:      StringMap{},
		Numbers:    StringMap{},
		Themes:     []string{},
	}
}

// ChapterMetadata 单章生成时抽取出的新增事实
type ChapterMetadata struct {
	NewCharacters []string  `json:"newCharacters"`
	NewTerms      StringMap `json:"newTerms"`
	KeyNumbers    StringMap `json:"keyNumbers"`
}

// Clone 深拷贝
func (mc MasterContext) Clone() MasterContext {
	out := MasterContext{
		Characters: append([]string{}, mc.Characters...),
		Terms:      make(StringMap, len(mc.Terms)),
		Numbers:    make(StringMap, len(mc.Numbers)),
		Themes:     append([]string{}, mc.Themes...),
	}
	for k, v := range mc.Terms {
		out.Terms[k] = v
	}
	for k, v := range mc.Numbers {
		out.Numbers[k] = v
	}
	return out
}

// Merge 合并章节元数据，返回新的主上下文
// 人物取去重并集（保持首次出现顺序），术语与数字按键覆盖，主题不变
func (mc MasterContext) Merge(meta ChapterMetadata) MasterContext {
	out := mc.Clone()

	seen := make(map[string]struct{}, len(out.Characters))
	for _, c := range out.Characters {
		seen[c] = struct{}{}
	}
	for _, c := range meta.NewCharacters {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out.Characters = append(out.Characters, c)
	}

	for k, v := range meta.NewTerms {
		out.Terms[k] = v
	}
	for k, v := range meta.KeyNumbers {
		out.Numbers[k] = v
	}
	return out
}

// IsEmpty 是否没有任何累积事实
func (mc MasterContext) IsEmpty() bool {
	return len(mc.Characters) == 0 && len(mc.Terms) == 0 && len(mc.Numbers) == 0 && len(mc.Themes) == 0
}

// Render 渲染为提示词文本块
func (mc MasterContext) Render() string {
	if mc.IsEmpty() {
		return ""
	}
	var b strings.Builder
	if len(mc.Characters) > 0 {
		b.WriteString("Characters: ")
		b.WriteString(strings.Join(mc.Characters, ", "))
		b.WriteString("\n")
	}
	if len(mc.Terms) > 0 {
		b.WriteString("Terms:\n")
		for _, k := range mc.Terms.Keys() {
			fmt.Fprintf(&b, "- %s: %s\n", k, mc.Terms[k])
		}
	}
	if len(mc.Numbers) > 0 {
		b.WriteString("Key numbers:\n")
		for _, k := range mc.Numbers.Keys() {
			fmt.Fprintf(&b, "- %s: %s\n", k, mc.Numbers[k])
		}
	}
	if len(mc.Themes) > 0 {
		b.WriteString("Themes: ")
		b.WriteString(strings.Join(mc.Themes, ", "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
