package manuscript

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ghostwriter-ai-api/internal/application/book/booktest"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/infrastructure/document"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

func newService(store *booktest.Store) *Service {
	return NewService(Deps{
		Projects:  store.ProjectRepo(),
		Chapters:  store.ChapterRepo(),
		Documents: store.DocumentRepo(),
		Extractor: document.NewExtractor(0),
		Exporter:  document.NewExporter(),
	})
}

func seeded() (*booktest.Store, *entity.Project) {
	store := booktest.NewStore()
	p := entity.NewProject("Scaling Quietly")
	store.Seed(p, nil)
	for i, text := range []string{"First chapter.", "Second chapter."} {
		ch := entity.NewChapter(p.ID, i+1)
		ch.SetContent(text)
		store.PutChapter(ch)
	}
	return store, p
}

func TestAddReferenceExtractsText(t *testing.T) {
	store, p := seeded()
	svc := newService(store)

	doc, err := svc.AddReference(context.Background(), p.ID, Upload{
		Filename: "interview.md",
		Data:     []byte("# Notes\n\nWe *never* raised money."),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if doc.Content != "Notes\n\nWe never raised money." || doc.WordCount != 5 {
		t.Errorf("doc = %q (%d words)", doc.Content, doc.WordCount)
	}
	docs, _ := store.DocumentRepo().ListByProject(context.Background(), p.ID)
	if len(docs) != 1 {
		t.Errorf("stored docs = %d", len(docs))
	}
}

func TestAddReferenceErrors(t *testing.T) {
	store, p := seeded()
	svc := newService(store)
	ctx := context.Background()

	if _, err := svc.AddReference(ctx, "missing", Upload{Data: []byte("x")}); apperrors.CodeOf(err) != apperrors.CodeProjectNotFound {
		t.Errorf("missing project: %v", err)
	}
	if _, err := svc.AddReference(ctx, p.ID, Upload{Filename: "a.txt"}); apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Errorf("empty upload: %v", err)
	}
	store.Fail["documents.Create"] = errors.New("disk full")
	if _, err := svc.AddReference(ctx, p.ID, Upload{Filename: "a.txt", Data: []byte("hello")}); apperrors.CodeOf(err) != apperrors.CodeDatabaseError {
		t.Errorf("store failure: %v", err)
	}
}

func TestExportAndRead(t *testing.T) {
	store, p := seeded()
	svc := newService(store)
	ctx := context.Background()

	out, ct, err := svc.Export(ctx, p.ID, service.ExportMarkdown)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(ct, "text/markdown") || !strings.Contains(string(out), "Second chapter.") {
		t.Errorf("export = %s (%s)", out, ct)
	}

	chapters, err := svc.ListChapters(ctx, p.ID)
	if err != nil || len(chapters) != 2 || chapters[0].ChapterNumber != 1 {
		t.Errorf("list = %v, %v", chapters, err)
	}
	if _, err := svc.GetChapter(ctx, p.ID, 3); apperrors.CodeOf(err) != apperrors.CodeChapterNotFound {
		t.Errorf("missing chapter: %v", err)
	}
}
