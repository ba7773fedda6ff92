// Package booktest 提供应用层测试用的内存仓储与脚本化生成器
package booktest

import (
	"context"
	"sort"
	"sync"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
)

// Store 内存数据库，WithTransaction 失败时回滚到调用前的快照
type Store struct {
	mu sync.Mutex

	projects map[string]*entity.Project
	outlines map[string]*entity.Outline
	chapters map[string]map[int]*entity.Chapter
	reports  []*entity.ConsistencyReport
	logs     []*entity.GenerationLog
	docs     []*entity.ReferenceDocument

	// StatusWrites 记录 UpdateStatus 调用次数
	StatusWrites int
	// Fail 按 "仓储.方法" 注入错误，例如 "chapters.Upsert"
	Fail map[string]error
}

func NewStore() *Store {
	return &Store{
		projects: make(map[string]*entity.Project),
		outlines: make(map[string]*entity.Outline),
		chapters: make(map[string]map[int]*entity.Chapter),
		Fail:     make(map[string]error),
	}
}

var (
	_ repository.Transactor                  = (*Store)(nil)
	_ repository.ProjectRepository           = (*ProjectRepo)(nil)
	_ repository.OutlineRepository           = (*OutlineRepo)(nil)
	_ repository.ChapterRepository           = (*ChapterRepo)(nil)
	_ repository.ConsistencyReportRepository = (*ReportRepo)(nil)
	_ repository.GenerationLogRepository     = (*LogRepo)(nil)
	_ repository.ReferenceDocumentRepository = (*DocumentRepo)(nil)
)

type snapshot struct {
	projects map[string]*entity.Project
	outlines map[string]*entity.Outline
	chapters map[string]map[int]*entity.Chapter
	reports  []*entity.ConsistencyReport
	docs     []*entity.ReferenceDocument
}

// WithTransaction 审计日志不参与回滚，与生产实现中独立写入一致
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.projects, s.outlines, s.chapters = snap.projects, snap.outlines, snap.chapters
		s.reports, s.docs = snap.reports, snap.docs
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		projects: make(map[string]*entity.Project, len(s.projects)),
		outlines: make(map[string]*entity.Outline, len(s.outlines)),
		chapters: make(map[string]map[int]*entity.Chapter, len(s.chapters)),
		reports:  append([]*entity.ConsistencyReport(nil), s.reports...),
		docs:     append([]*entity.ReferenceDocument(nil), s.docs...),
	}
	for k, v := range s.projects {
		snap.projects[k] = copyProject(v)
	}
	for k, v := range s.outlines {
		o := *v
		snap.outlines[k] = &o
	}
	for pid, byNum := range s.chapters {
		m := make(map[int]*entity.Chapter, len(byNum))
		for n, ch := range byNum {
			m[n] = copyChapter(ch)
		}
		snap.chapters[pid] = m
	}
	return snap
}

func (s *Store) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail[op]
}

// Seed 写入项目与大纲
func (s *Store) Seed(p *entity.Project, o *entity.Outline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = copyProject(p)
	if o != nil {
		c := *o
		s.outlines[o.ProjectID] = &c
	}
}

// PutChapter 直接写入章节
func (s *Store) PutChapter(ch *entity.Chapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chapters[ch.ProjectID] == nil {
		s.chapters[ch.ProjectID] = make(map[int]*entity.Chapter)
	}
	s.chapters[ch.ProjectID][ch.ChapterNumber] = copyChapter(ch)
}

// Project 读取项目快照
func (s *Store) Project(id string) *entity.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[id]; ok {
		return copyProject(p)
	}
	return nil
}

// Chapter 读取章节快照
func (s *Store) Chapter(projectID string, n int) *entity.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.chapters[projectID][n]; ok {
		return copyChapter(ch)
	}
	return nil
}

// ChapterCount 项目章节行数
func (s *Store) ChapterCount(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chapters[projectID])
}

// Reports 项目下的报告
func (s *Store) Reports(projectID string) []*entity.ConsistencyReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ConsistencyReport
	for _, r := range s.reports {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out
}

// Logs 全部审计日志
func (s *Store) Logs() []*entity.GenerationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.GenerationLog(nil), s.logs...)
}

func (s *Store) ProjectRepo() *ProjectRepo { return &ProjectRepo{s} }

func (s *Store) OutlineRepo() *OutlineRepo { return &OutlineRepo{s} }

func (s *Store) ChapterRepo() *ChapterRepo { return &ChapterRepo{s} }

func (s *Store) ReportRepo() *ReportRepo { return &ReportRepo{s} }

func (s *Store) LogRepo() *LogRepo { return &LogRepo{s} }

func (s *Store) DocumentRepo() *DocumentRepo { return &DocumentRepo{s} }

type ProjectRepo struct{ s *Store }

func (r *ProjectRepo) Create(_ context.Context, p *entity.Project) error {
	if err := r.s.fail("projects.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.projects[p.ID] = copyProject(p)
	return nil
}

func (r *ProjectRepo) GetByID(_ context.Context, id string) (*entity.Project, error) {
	if err := r.s.fail("projects.GetByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.projects[id]; ok {
		return copyProject(p), nil
	}
	return nil, nil
}

func (r *ProjectRepo) GetForUpdate(ctx context.Context, id string) (*entity.Project, error) {
	return r.GetByID(ctx, id)
}

func (r *ProjectRepo) UpdateStatus(_ context.Context, id string, status entity.ProjectStatus) error {
	if err := r.s.fail("projects.UpdateStatus"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.StatusWrites++
	if p, ok := r.s.projects[id]; ok {
		p.Status = status
	}
	return nil
}

func (r *ProjectRepo) UpdateMasterContext(_ context.Context, id string, mc entity.MasterContext) error {
	if err := r.s.fail("projects.UpdateMasterContext"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.projects[id]; ok {
		c := mc.Clone()
		p.MasterContext = &c
	}
	return nil
}

func (r *ProjectRepo) UpdateGeneratedStyleGuide(_ context.Context, id string, guide string) error {
	if err := r.s.fail("projects.UpdateGeneratedStyleGuide"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.projects[id]; ok {
		p.GeneratedStyleGuide = guide
	}
	return nil
}

type OutlineRepo struct{ s *Store }

func (r *OutlineRepo) Save(_ context.Context, o *entity.Outline) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *o
	r.s.outlines[o.ProjectID] = &c
	return nil
}

func (r *OutlineRepo) GetByProject(_ context.Context, projectID string) (*entity.Outline, error) {
	if err := r.s.fail("outlines.GetByProject"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.outlines[projectID]; ok {
		c := *o
		return &c, nil
	}
	return nil, nil
}

type ChapterRepo struct{ s *Store }

func (r *ChapterRepo) GetByNumber(_ context.Context, projectID string, number int) (*entity.Chapter, error) {
	if err := r.s.fail("chapters.GetByNumber"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ch, ok := r.s.chapters[projectID][number]; ok {
		return copyChapter(ch), nil
	}
	return nil, nil
}

// Upsert 与 postgres 实现一致：覆盖时保留撤销缓冲
func (r *ChapterRepo) Upsert(_ context.Context, ch *entity.Chapter) error {
	if err := r.s.fail("chapters.Upsert"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byNum := r.s.chapters[ch.ProjectID]
	if byNum == nil {
		byNum = make(map[int]*entity.Chapter)
		r.s.chapters[ch.ProjectID] = byNum
	}
	next := copyChapter(ch)
	if existing, ok := byNum[ch.ChapterNumber]; ok {
		next.ID = existing.ID
		next.PreviousContent = existing.PreviousContent
		next.PreviousContentSavedAt = existing.PreviousContentSavedAt
		next.CreatedAt = existing.CreatedAt
	}
	byNum[ch.ChapterNumber] = next
	return nil
}

func (r *ChapterRepo) Update(_ context.Context, ch *entity.Chapter) error {
	if err := r.s.fail("chapters.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.chapters[ch.ProjectID] == nil {
		r.s.chapters[ch.ProjectID] = make(map[int]*entity.Chapter)
	}
	r.s.chapters[ch.ProjectID][ch.ChapterNumber] = copyChapter(ch)
	return nil
}

func (r *ChapterRepo) ListByProject(_ context.Context, projectID string) ([]*entity.Chapter, error) {
	if err := r.s.fail("chapters.ListByProject"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Chapter, 0, len(r.s.chapters[projectID]))
	for _, ch := range r.s.chapters[projectID] {
		out = append(out, copyChapter(ch))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterNumber < out[j].ChapterNumber })
	return out, nil
}

func (r *ChapterRepo) CountCompleted(_ context.Context, projectID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, ch := range r.s.chapters[projectID] {
		if ch.IsCompleted() {
			n++
		}
	}
	return n, nil
}

type ReportRepo struct{ s *Store }

func (r *ReportRepo) Create(_ context.Context, report *entity.ConsistencyReport) error {
	if err := r.s.fail("reports.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *report
	r.s.reports = append(r.s.reports, &c)
	return nil
}

func (r *ReportRepo) GetLatest(_ context.Context, projectID string) (*entity.ConsistencyReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.reports) - 1; i >= 0; i-- {
		if r.s.reports[i].ProjectID == projectID {
			c := *r.s.reports[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *ReportRepo) DeleteByProject(_ context.Context, projectID string) error {
	if err := r.s.fail("reports.DeleteByProject"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.reports[:0:0]
	for _, rep := range r.s.reports {
		if rep.ProjectID != projectID {
			kept = append(kept, rep)
		}
	}
	r.s.reports = kept
	return nil
}

type LogRepo struct{ s *Store }

func (r *LogRepo) Create(_ context.Context, log *entity.GenerationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *log
	r.s.logs = append(r.s.logs, &c)
	return nil
}

type DocumentRepo struct{ s *Store }

func (r *DocumentRepo) Create(_ context.Context, doc *entity.ReferenceDocument) error {
	if err := r.s.fail("documents.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *doc
	r.s.docs = append(r.s.docs, &c)
	return nil
}

func (r *DocumentRepo) ListByProject(_ context.Context, projectID string) ([]*entity.ReferenceDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ReferenceDocument
	for _, d := range r.s.docs {
		if d.ProjectID == projectID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func copyProject(p *entity.Project) *entity.Project {
	c := *p
	if p.MasterContext != nil {
		mc := p.MasterContext.Clone()
		c.MasterContext = &mc
	}
	if p.AIConfig != nil {
		cfg := *p.AIConfig
		c.AIConfig = &cfg
	}
	return &c
}

func copyChapter(ch *entity.Chapter) *entity.Chapter {
	c := *ch
	c.KeyPoints = append([]string(nil), ch.KeyPoints...)
	c.NewCharacters = append([]string(nil), ch.NewCharacters...)
	return &c
}
