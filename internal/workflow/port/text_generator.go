package port

import (
	"context"

	wfmodel "ghostwriter-ai-api/internal/workflow/model"
)

// TextGenerator 定义应用层对 LLM 的最小依赖（port）。
type TextGenerator interface {
	Generate(ctx context.Context, req *wfmodel.GenerateRequest) (*wfmodel.GenerateResponse, error)
}

// TextGeneratorFactory 按提供商名称获取 TextGenerator，name 为空时返回默认提供商。
type TextGeneratorFactory interface {
	Get(ctx context.Context, name string) (TextGenerator, error)
}
