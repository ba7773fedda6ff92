package node

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TruncationMarker 截断后追加的标记，模型据此知道原文被省略
const TruncationMarker = "\n[...]"

// TruncateByRunes 按字符数截断
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TruncateWithMarker 超长时截断并追加省略标记。
// 截断点落在单词中间时回退到前一个空白，回退量不超过 maxRunes 的十分之一。
func TruncateWithMarker(s string, maxRunes int) string {
	out := TruncateByRunes(s, maxRunes)
	if len(out) == len(s) {
		return out
	}
	if next, _ := utf8.DecodeRuneInString(s[len(out):]); !unicode.IsSpace(next) {
		if i := strings.LastIndexFunc(out, unicode.IsSpace); i > 0 && utf8.RuneCountInString(out[i:]) <= maxRunes/10+1 {
			out = out[:i]
		}
	}
	return strings.TrimRightFunc(out, unicode.IsSpace) + TruncationMarker
}
