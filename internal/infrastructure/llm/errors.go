package llm

import "strings"

// responseFormatMarkers 提供商拒绝结构化输出参数时错误信息中出现的片段
var responseFormatMarkers = []string{
	"response_format",
	"json_schema",
	"response_schema",
	"structured output",
}

// isResponseFormatUnsupported 判断错误是否由 response_format 参数不被支持引起，
// 命中时调用方去掉该参数、仅靠提示词约束 JSON 后重试一次
func isResponseFormatUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range responseFormatMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response")
}
