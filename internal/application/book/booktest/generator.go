package booktest

import (
	"context"
	"fmt"
	"sync"

	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
	"ghostwriter-ai-api/internal/workflow/port"
)

// Reply 脚本化的单次回复
type Reply struct {
	Text       string
	Incomplete bool
	Err        error
}

// Call 记录的一次调用
type Call struct {
	Task    string
	Project string
	Request *wfmodel.GenerateRequest
}

// Generator 按任务类型依次返回预设回复；队列只剩一条时重复返回
type Generator struct {
	mu      sync.Mutex
	replies map[string][]Reply
	calls   []Call
}

func NewGenerator() *Generator {
	return &Generator{replies: make(map[string][]Reply)}
}

var (
	_ port.TextGenerator        = (*Generator)(nil)
	_ port.TextGeneratorFactory = (*Generator)(nil)
)

// On 为任务追加回复
func (g *Generator) On(task string, replies ...Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[task] = append(g.replies[task], replies...)
	return g
}

// OnText 为任务追加文本回复
func (g *Generator) OnText(task string, texts ...string) *Generator {
	for _, t := range texts {
		g.On(task, Reply{Text: t})
	}
	return g
}

// Get 实现 TextGeneratorFactory
func (g *Generator) Get(_ context.Context, _ string) (port.TextGenerator, error) {
	return g, nil
}

func (g *Generator) Generate(ctx context.Context, req *wfmodel.GenerateRequest) (*wfmodel.GenerateResponse, error) {
	task := service.TaskFromContext(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Task: task, Project: service.ProjectFromContext(ctx), Request: req})

	queue := g.replies[task]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no scripted reply for task %q", task)
	}
	r := queue[0]
	if len(queue) > 1 {
		g.replies[task] = queue[1:]
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &wfmodel.GenerateResponse{
		ID:         fmt.Sprintf("resp-%d", len(g.calls)),
		Text:       r.Text,
		Model:      req.Model,
		Usage:      wfmodel.TokenUsage{PromptTokens: 100, CompletionTokens: 50},
		Incomplete: r.Incomplete,
	}, nil
}

// Calls 指定任务的调用记录，task 为空时返回全部
func (g *Generator) Calls(task string) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Call
	for _, c := range g.calls {
		if task == "" || c.Task == task {
			out = append(out, c)
		}
	}
	return out
}
