package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// stubRunner replays canned outputs per command name and records calls.
type stubRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   [][]string
	// onRun lets a test produce side effects (e.g. write page images)
	onRun func(name string, args []string)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.onRun != nil {
		s.onRun(name, args)
	}
	if err := s.errs[name]; err != nil {
		return nil, []byte("boom"), err
	}
	return s.outputs[name], nil, nil
}

func TestExtractPagesPDFTextLayer(t *testing.T) {
	text := "Room Rent 1 1200 1200\nNursing Charges 2 250 500\n\f" +
		"Paracetamol 2 15.50 31.00\n"

	e := NewExtractor(Config{}, nil)
	e.runner = &stubRunner{outputs: map[string][]byte{"pdftotext": []byte(text)}}

	pages, err := e.ExtractPages(context.Background(), "bill.pdf")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if pages[0].PageNo != 1 || pages[1].PageNo != 2 {
		t.Errorf("page numbers = %d, %d", pages[0].PageNo, pages[1].PageNo)
	}
	if len(pages[0].Lines) != 2 || pages[0].Lines[0] != "Room Rent 1 1200 1200" {
		t.Errorf("page 1 lines = %q", pages[0].Lines)
	}
	if len(pages[1].Lines) != 1 || pages[1].Lines[0] != "Paracetamol 2 15.50 31.00" {
		t.Errorf("page 2 lines = %q", pages[1].Lines)
	}
}

func TestExtractPagesScannedPDFFallsBackToOCR(t *testing.T) {
	stub := &stubRunner{
		outputs: map[string][]byte{
			"pdftotext": []byte("\f\f"), // empty text layer, 3 pages
			"tesseract": []byte("Consultation Fee 500\n"),
		},
	}
	stub.onRun = func(name string, args []string) {
		if name != "pdftoppm" {
			return
		}
		prefix := args[len(args)-1]
		for i := 1; i <= 3; i++ {
			_ = os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644)
		}
	}

	e := NewExtractor(Config{}, nil)
	e.runner = stub

	pages, err := e.ExtractPages(context.Background(), "scan.pdf")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	for i, p := range pages {
		if p.PageNo != i+1 {
			t.Errorf("pages[%d].PageNo = %d", i, p.PageNo)
		}
		if len(p.Lines) != 1 || p.Lines[0] != "Consultation Fee 500" {
			t.Errorf("pages[%d].Lines = %q", i, p.Lines)
		}
	}

	var sawPpm bool
	for _, call := range stub.calls {
		if call[0] == "pdftoppm" {
			sawPpm = true
		}
	}
	if !sawPpm {
		t.Error("expected pdftoppm to run for a scanned PDF")
	}
}

func TestExtractPagesImage(t *testing.T) {
	e := NewExtractor(Config{PSM: 6}, nil)
	stub := &stubRunner{outputs: map[string][]byte{"tesseract": []byte("Syringe 3 20 60\r\n\r\n")}}
	e.runner = stub

	pages, err := e.ExtractPages(context.Background(), "bill.jpg")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 1 || pages[0].PageNo != 1 {
		t.Fatalf("unexpected pages: %+v", pages)
	}
	if pages[0].Lines[0] != "Syringe 3 20 60" {
		t.Errorf("lines = %q", pages[0].Lines)
	}

	args := stub.calls[0]
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--psm 6") {
		t.Errorf("tesseract args missing psm: %q", joined)
	}
}

func TestExtractPagesUnsupportedExtension(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	e.runner = &stubRunner{}
	if _, err := e.ExtractPages(context.Background(), "bill.docx"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestExtractPagesMaxPages(t *testing.T) {
	text := "Room Rent General Ward 1 1200.00 1200.00\f" +
		"Nursing Charges Day Shift 2 250.00 500.00\f" +
		"Pharmacy Paracetamol Tablets 2 15.50 31.00\f"
	e := NewExtractor(Config{MaxPages: 2}, nil)
	e.runner = &stubRunner{outputs: map[string][]byte{"pdftotext": []byte(text)}}

	pages, err := e.ExtractPages(context.Background(), "bill.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Errorf("pages = %d, want 2", len(pages))
	}
}

func TestRenderPagesOrdersNumerically(t *testing.T) {
	stub := &stubRunner{}
	stub.onRun = func(name string, args []string) {
		if name != "pdftoppm" {
			return
		}
		prefix := args[len(args)-1]
		// write out of order, with a two-digit page to catch lexical sorting
		for _, n := range []int{10, 2, 1} {
			_ = os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, n), []byte(fmt.Sprintf("img-%d", n)), 0o644)
		}
	}

	e := NewExtractor(Config{}, nil)
	e.runner = stub

	images, err := e.RenderPages(context.Background(), "bill.pdf")
	if err != nil {
		t.Fatalf("RenderPages: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("images = %d, want 3", len(images))
	}
	want := []string{"img-1", "img-2", "img-10"}
	for i, img := range images {
		if string(img) != want[i] {
			t.Errorf("images[%d] = %q, want %q", i, img, want[i])
		}
	}
}

func TestRenderPagesImagePassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bill.png")
	if err := os.WriteFile(path, []byte("raw-png"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(Config{}, nil)
	e.runner = &stubRunner{}

	images, err := e.RenderPages(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 || string(images[0]) != "raw-png" {
		t.Errorf("unexpected images: %q", images)
	}
}
