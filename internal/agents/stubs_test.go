package agents

import (
	"context"
	"encoding/json"
	"sync"

	"marketintel/internal/adapters/firecrawl"
	"marketintel/internal/adapters/newsdata"
	"marketintel/internal/report"
	"marketintel/pkg/errors"
)

// stubLLM implements ai.Client with injectable behavior. The zero value
// fails every call, which is the degenerate case most tests exercise.
type stubLLM struct {
	completeFn     func(ctx context.Context, system string, user string) (string, error)
	completeJSONFn func(ctx context.Context, system string, user string, out any) error

	mu    sync.Mutex
	calls int
}

func (s *stubLLM) count() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubLLM) Complete(ctx context.Context, system string, user string) (string, error) {
	s.count()
	if s.completeFn == nil {
		return "", errors.ErrLLMUnavailable
	}
	return s.completeFn(ctx, system, user)
}

func (s *stubLLM) CompleteJSON(ctx context.Context, system string, user string, out any) error {
	s.count()
	if s.completeJSONFn == nil {
		return errors.ErrLLMUnavailable
	}
	return s.completeJSONFn(ctx, system, user, out)
}

// jsonResponder builds a CompleteJSON stub that always unmarshals the given
// value into out.
func jsonResponder(v any) func(ctx context.Context, system string, user string, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return func(ctx context.Context, system string, user string, out any) error {
		return json.Unmarshal(data, out)
	}
}

type stubSearch struct {
	pages []firecrawl.Page
	err   error
	calls int
}

func (s *stubSearch) Search(ctx context.Context, query string, numResults int) ([]firecrawl.Page, error) {
	s.calls++
	return s.pages, s.err
}

type stubNews struct {
	articles    []newsdata.Article
	topics      []newsdata.Topic
	latestErr   error
	trendingErr error
	latestCalls int
}

func (s *stubNews) Latest(ctx context.Context, query string, language string, size int) ([]newsdata.Article, error) {
	s.latestCalls++
	return s.articles, s.latestErr
}

func (s *stubNews) Trending(ctx context.Context, size int) ([]newsdata.Topic, error) {
	return s.topics, s.trendingErr
}

type stubCharts struct {
	files []string
	err   error
}

func (s *stubCharts) Generate(ctx context.Context, dir string, data report.ChartData) ([]string, error) {
	return s.files, s.err
}

type stubExporter struct {
	artifacts report.Artifacts
	err       error
	lastReq   report.ExportRequest
}

func (s *stubExporter) Export(ctx context.Context, req report.ExportRequest) (report.Artifacts, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.artifacts != nil {
		return s.artifacts, nil
	}
	return report.Artifacts{"markdown": "report.md"}, nil
}

// stubAgent is a minimal Agent for orchestrator tests
type stubAgent struct {
	*BaseAgent
	execute func(ctx context.Context, pc *Context) error
}

func newStubAgent(name string, execute func(ctx context.Context, pc *Context) error) *stubAgent {
	return &stubAgent{
		BaseAgent: NewBaseAgent(name, "stub"),
		execute:   execute,
	}
}

func (s *stubAgent) Run(ctx context.Context, pc *Context) Result {
	return s.run(ctx, pc, s.execute)
}

// content long enough to pass the substantial-content filters
func longContent(prefix string) string {
	body := prefix
	for len(body) < 200 {
		body += " market growth analysis with significant numbers like $5 billion and 20% adoption"
	}
	return body
}
