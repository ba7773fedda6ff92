package model

// ResponseSchema 结构化输出约束
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// GenerateRequest 单次文本生成请求
type GenerateRequest struct {
	Model        string
	Instructions string
	Input        string

	ReasoningEffort string
	Verbosity       string
	MaxOutputTokens int

	// JSONMode 要求模型输出 JSON 对象；Schema 非空时优先使用 json_schema
	JSONMode bool
	Schema   *ResponseSchema

	PreviousResponseID string
}

// TokenUsage Token 用量
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	// Estimated 提供商未返回用量时为本地估算值
	Estimated bool
}

// Add 累加用量
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		Estimated:        u.Estimated || o.Estimated,
	}
}

// GenerateResponse 归一化后的生成结果
type GenerateResponse struct {
	ID    string
	Text  string
	Model string
	Usage TokenUsage
	// Incomplete 提供商明确报告输出因 token 上限被截断
	Incomplete bool
}
