// Package generation 封装对文本生成能力的调用：任务参数映射、JSON 契约与截断重试
package generation

import (
	"ghostwriter-ai-api/internal/domain/entity"
)

// Task LLM 任务类型
type Task string

const (
	TaskQuickValidation       Task = "quick_validation"
	TaskChapterGeneration     Task = "chapter_generation"
	TaskConsistencyCheck      Task = "consistency_check"
	TaskSuggestionApplication Task = "suggestion_application"
	TaskStyleGuide            Task = "style_guide"
)

// DefaultChapterMaxTokens 项目未配置时章节生成的输出预算
const DefaultChapterMaxTokens = 16000

// Profile 任务对应的推理参数
type Profile struct {
	ReasoningEffort entity.ReasoningEffort
	Verbosity       entity.Verbosity
	MaxOutputTokens int
}

var profiles = map[Task]Profile{
	TaskQuickValidation:       {ReasoningEffort: entity.ReasoningMinimal, Verbosity: entity.VerbosityLow, MaxOutputTokens: 4000},
	TaskChapterGeneration:     {ReasoningEffort: entity.ReasoningMedium, Verbosity: entity.VerbosityHigh, MaxOutputTokens: DefaultChapterMaxTokens},
	TaskConsistencyCheck:      {ReasoningEffort: entity.ReasoningMedium, Verbosity: entity.VerbosityMedium, MaxOutputTokens: 16000},
	TaskSuggestionApplication: {ReasoningEffort: entity.ReasoningLow, Verbosity: entity.VerbosityMedium, MaxOutputTokens: 2000},
	TaskStyleGuide:            {ReasoningEffort: entity.ReasoningLow, Verbosity: entity.VerbosityMedium, MaxOutputTokens: 4000},
}

// ProfileFor 查询任务参数
func ProfileFor(task Task) (Profile, bool) {
	p, ok := profiles[task]
	return p, ok
}

// Settings 单次调用最终生效的参数
type Settings struct {
	Provider string
	Model    string
	Profile
}

// Resolve 合并任务参数与项目 AI 配置
// 模型与提供商对所有任务生效；推理参数仅章节生成任务允许项目覆盖
func Resolve(task Task, cfg entity.AIConfig) (Settings, bool) {
	p, ok := ProfileFor(task)
	if !ok {
		return Settings{}, false
	}
	if task == TaskChapterGeneration {
		if cfg.ReasoningEffort.Valid() {
			p.ReasoningEffort = cfg.ReasoningEffort
		}
		if cfg.Verbosity.Valid() {
			p.Verbosity = cfg.Verbosity
		}
		if cfg.MaxOutputTokens > 0 {
			p.MaxOutputTokens = cfg.MaxOutputTokens
		}
	}
	return Settings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Profile:  p,
	}, true
}
