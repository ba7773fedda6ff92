package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	wfmodel "ghostwriter-ai-api/internal/workflow/model"
)

const estimateEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// CountTokens 估算文本 token 数，编码表不可用时按 4 字节/token 粗估
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(estimateEncoding)
	})
	if encErr != nil || enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// fillEstimatedUsage 提供商未返回用量时补充估算值
func fillEstimatedUsage(req *wfmodel.GenerateRequest, resp *wfmodel.GenerateResponse) {
	if resp == nil || req == nil {
		return
	}
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		return
	}
	resp.Usage = wfmodel.TokenUsage{
		PromptTokens:     CountTokens(req.Instructions) + CountTokens(req.Input),
		CompletionTokens: CountTokens(resp.Text),
		Estimated:        true,
	}
}
