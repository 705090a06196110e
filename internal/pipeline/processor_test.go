package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/skaul-dev/billextract/internal/entity"
	"github.com/skaul-dev/billextract/internal/extract"
	"github.com/skaul-dev/billextract/internal/ingest"
	"github.com/skaul-dev/billextract/internal/repository"
)

type fakeResolver struct {
	path    string
	err     error
	cleaned bool
}

func (f *fakeResolver) Resolve(context.Context, string) (ingest.ResolvedSource, error) {
	if f.err != nil {
		return ingest.ResolvedSource{}, f.err
	}
	return ingest.ResolvedSource{
		Path:    f.path,
		FileExt: "pdf",
		Cleanup: func() { f.cleaned = true },
	}, nil
}

type fakeEngine struct {
	name  string
	pages []entity.Page
	usage entity.TokenUsage
	err   error
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) ExtractPages(context.Context, string) ([]entity.Page, entity.TokenUsage, error) {
	return f.pages, f.usage, f.err
}

func testJobRepo(t *testing.T) repository.JobRepository {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewJobRepository(db, nil)
}

func TestExtractDocumentRepairsAndAggregates(t *testing.T) {
	resolver := &fakeResolver{path: "/tmp/bill.pdf"}
	engine := &fakeEngine{
		name: extract.EngineHeuristic,
		pages: []entity.Page{
			{PageNo: "2", PageType: "Pharmacy", Items: []entity.LineItem{
				{Name: "Syringe", Amount: 60, Rate: 20, Quantity: 0}, // quantity recoverable
			}},
			{PageNo: "1", PageType: "Bill Detail", Items: []entity.LineItem{
				{Name: "Room Rent", Amount: 1200, Rate: 1200, Quantity: 1},
			}},
		},
	}
	p := NewProcessor(resolver, []extract.Engine{engine}, testJobRepo(t), "", nil)

	doc, _, err := p.ExtractDocument(context.Background(), "/tmp/bill.pdf", "")
	if err != nil {
		t.Fatalf("ExtractDocument: %v", err)
	}
	if doc.TotalItemCount != 2 {
		t.Errorf("TotalItemCount = %d, want 2", doc.TotalItemCount)
	}
	if doc.Pages[0].PageNo != "1" || doc.Pages[1].PageNo != "2" {
		t.Errorf("pages out of order: %q, %q", doc.Pages[0].PageNo, doc.Pages[1].PageNo)
	}
	if got := doc.Pages[1].Items[0].Quantity; got != 3 {
		t.Errorf("repaired quantity = %v, want 3", got)
	}
	if !resolver.cleaned {
		t.Error("resolved source was not cleaned up")
	}
}

func TestExtractDocumentUnknownEngine(t *testing.T) {
	p := NewProcessor(&fakeResolver{}, nil, testJobRepo(t), "", nil)
	_, _, err := p.ExtractDocument(context.Background(), "x.pdf", "quantum")
	if err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestRunJobRecordsSuccess(t *testing.T) {
	repo := testJobRepo(t)
	engine := &fakeEngine{
		name: extract.EngineVision,
		pages: []entity.Page{
			{PageNo: "1", PageType: "Final Bill", Items: []entity.LineItem{
				{Name: "Consultation", Amount: 500, Rate: 500, Quantity: 1},
			}},
		},
		usage: entity.TokenUsage{TotalTokens: 90, InputTokens: 70, OutputTokens: 20},
	}
	p := NewProcessor(&fakeResolver{path: "/tmp/b.pdf"}, []extract.Engine{engine}, repo, "", nil)

	job, err := repo.Create(context.Background(), "/tmp/b.pdf", engine.Name())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.RunJob(context.Background(), job.ID, job.Source, job.Engine); err != nil {
		t.Fatalf("RunJob: %v", err)
	}

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "OK" {
		t.Errorf("Status = %q, want OK", got.Status)
	}
	if got.ItemCount != 1 || got.Pages != 1 {
		t.Errorf("ItemCount/Pages = %d/%d", got.ItemCount, got.Pages)
	}
	if got.TotalTokens != 90 {
		t.Errorf("TotalTokens = %d, want 90", got.TotalTokens)
	}
	if len(got.ResultJSON) == 0 {
		t.Error("ResultJSON should be stored")
	}
}

func TestRunJobRecordsFailure(t *testing.T) {
	repo := testJobRepo(t)
	p := NewProcessor(&fakeResolver{err: errors.New("host unreachable")}, []extract.Engine{
		&fakeEngine{name: extract.EngineHeuristic},
	}, repo, "", nil)

	job, err := repo.Create(context.Background(), "https://example.com/b.pdf", "heuristic")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.RunJob(context.Background(), job.ID, job.Source, job.Engine); err == nil {
		t.Error("expected extraction error")
	}

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "FAILED" {
		t.Errorf("Status = %q, want FAILED", got.Status)
	}
	if got.ErrorMessage == nil {
		t.Error("ErrorMessage should be set")
	}
}
