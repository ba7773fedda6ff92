package main

import (
	"strings"
	"testing"

	"ghostwriter-ai-api/internal/domain/entity"
)

const sampleSeed = `
title: Built to Last
author: Dana Reyes
company: Reyes Logistics
industry: freight
situation: A two-truck operation in 2009.
challenge: Fuel prices doubled.
style_guide: |
  - Short sentences.
ai_config:
  model: gpt-5-mini
  reasoning_effort: low
outline:
  - title: The First Truck
    description: How the company started.
  - title: First Hires
    description: Building the team.
`

func TestParseSeedBuildsProjectAndOutline(t *testing.T) {
	seed, err := parseSeed([]byte(sampleSeed), 128000)
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	project, outline := seed.build()

	if project.Title != "Built to Last" || project.CompanyName != "Reyes Logistics" {
		t.Errorf("project = %+v", project)
	}
	if !project.HasCustomStyleGuide() {
		t.Error("custom style guide not set")
	}
	if project.AIConfig == nil || project.AIConfig.ReasoningEffort != entity.ReasoningEffort("low") {
		t.Errorf("ai config = %+v", project.AIConfig)
	}
	if project.Status != entity.ProjectStatusGeneratingOutline {
		t.Errorf("status = %s", project.Status)
	}
	if outline.ProjectID != project.ID || outline.TotalChapters() != 2 {
		t.Errorf("outline = %+v", outline)
	}
	if e, _ := outline.Entry(2); e.Title != "First Hires" {
		t.Errorf("chapter 2 = %+v", e)
	}
}

func TestParseSeedRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no title", "outline:\n  - title: One\n", "title is required"},
		{"no outline", "title: Book\n", "outline"},
		{"untitled chapter", "title: Book\noutline:\n  - description: x\n", "chapter 1 has no title"},
		{"bad effort", "title: Book\nai_config:\n  reasoning_effort: extreme\noutline:\n  - title: One\n", "reasoning_effort"},
		{"budget above ceiling", "title: Book\nai_config:\n  max_output_tokens: 500000\noutline:\n  - title: One\n", "exceeds the ceiling"},
		{"bad yaml", "title: [", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed([]byte(tt.raw), 128000)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
