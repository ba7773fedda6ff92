package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"ghostwriter-ai-api/internal/domain/entity"
)

// seedFile 项目导入文件
type seedFile struct {
	Title          string        `yaml:"title"`
	Author         string        `yaml:"author"`
	Company        string        `yaml:"company"`
	Industry       string        `yaml:"industry"`
	Situation      string        `yaml:"situation"`
	Challenge      string        `yaml:"challenge"`
	Transformation string        `yaml:"transformation"`
	Achievement    string        `yaml:"achievement"`
	Lesson         string        `yaml:"lesson"`
	BusinessGoals  string        `yaml:"business_goals"`
	StyleGuide     string        `yaml:"style_guide"`
	AIConfig       *seedAIConfig `yaml:"ai_config"`
	Outline        []seedChapter `yaml:"outline"`
}

type seedAIConfig struct {
	Provider              string `yaml:"provider"`
	Model                 string `yaml:"model"`
	ReasoningEffort       string `yaml:"reasoning_effort"`
	Verbosity             string `yaml:"verbosity"`
	MaxOutputTokens       int    `yaml:"max_output_tokens"`
	TargetWordsPerChapter int    `yaml:"target_words_per_chapter"`
}

type seedChapter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// parseSeed 解析并校验导入文件，maxTokensCeiling 为服务端输出预算上限
func parseSeed(raw []byte, maxTokensCeiling int) (*seedFile, error) {
	var s seedFile
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if strings.TrimSpace(s.Title) == "" {
		return nil, fmt.Errorf("seed file: title is required")
	}
	if len(s.Outline) == 0 {
		return nil, fmt.Errorf("seed file: outline must list at least one chapter")
	}
	for i, ch := range s.Outline {
		if strings.TrimSpace(ch.Title) == "" {
			return nil, fmt.Errorf("seed file: outline chapter %d has no title", i+1)
		}
	}
	if c := s.AIConfig; c != nil {
		// 模型可留空，生成时使用服务端默认值
		if c.ReasoningEffort != "" && !entity.ReasoningEffort(c.ReasoningEffort).Valid() {
			return nil, fmt.Errorf("seed file: invalid reasoning_effort %q", c.ReasoningEffort)
		}
		if c.Verbosity != "" && !entity.Verbosity(c.Verbosity).Valid() {
			return nil, fmt.Errorf("seed file: invalid verbosity %q", c.Verbosity)
		}
		if c.MaxOutputTokens < 0 || c.TargetWordsPerChapter < 0 {
			return nil, fmt.Errorf("seed file: ai_config limits must not be negative")
		}
		if maxTokensCeiling > 0 && c.MaxOutputTokens > maxTokensCeiling {
			return nil, fmt.Errorf("seed file: max_output_tokens %d exceeds the ceiling %d", c.MaxOutputTokens, maxTokensCeiling)
		}
	}
	return &s, nil
}

func (c *seedAIConfig) entity() entity.AIConfig {
	return entity.AIConfig{
		Provider:              c.Provider,
		Model:                 c.Model,
		ReasoningEffort:       entity.ReasoningEffort(c.ReasoningEffort),
		Verbosity:             entity.Verbosity(c.Verbosity),
		MaxOutputTokens:       c.MaxOutputTokens,
		TargetWordsPerChapter: c.TargetWordsPerChapter,
	}
}

// build 生成项目与大纲实体
func (s *seedFile) build() (*entity.Project, *entity.Outline) {
	p := entity.NewProject(strings.TrimSpace(s.Title))
	p.AuthorName = s.Author
	p.CompanyName = s.Company
	p.Industry = s.Industry
	p.Situation = s.Situation
	p.Challenge = s.Challenge
	p.Transformation = s.Transformation
	p.Achievement = s.Achievement
	p.Lesson = s.Lesson
	p.BusinessGoals = s.BusinessGoals
	p.CustomStyleGuide = s.StyleGuide
	if s.AIConfig != nil {
		cfg := s.AIConfig.entity()
		p.AIConfig = &cfg
	}

	chapters := make([]entity.OutlineChapter, 0, len(s.Outline))
	for _, ch := range s.Outline {
		chapters = append(chapters, entity.OutlineChapter{Title: ch.Title, Description: ch.Description})
	}
	// 有大纲、尚无章节
	p.Status = entity.DeriveProjectStatus(p.Status, true, 0, len(chapters))
	return p, entity.NewOutline(p.ID, chapters)
}
