package statement

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
)

type fakePDFExtractor struct {
	calls int
	lines []domain.RawLine
	err   error
}

func (f *fakePDFExtractor) ExtractStatement(_ context.Context, _ []byte) ([]domain.RawLine, error) {
	f.calls++
	return f.lines, f.err
}

func TestAutoExtractorRoutesTextToParser(t *testing.T) {
	pdf := &fakePDFExtractor{}
	e := AutoExtractor{PDF: pdf}

	lines, err := e.Extract(context.Background(), []byte("03.04.2025 REWE SAGT DANKE -54,30 €\n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(lines) != 1 || lines[0].Description != "REWE SAGT DANKE" {
		t.Fatalf("lines = %+v, want the parsed text line", lines)
	}
	if pdf.calls != 0 {
		t.Errorf("model extractor called %d times for a text statement", pdf.calls)
	}
}

func TestAutoExtractorRoutesPDFToModel(t *testing.T) {
	want := []domain.RawLine{{
		Date:        time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		Description: "REWE SAGT DANKE",
		Amount:      decimal.RequireFromString("-54.30"),
	}}
	pdf := &fakePDFExtractor{lines: want}
	e := AutoExtractor{PDF: pdf}

	lines, err := e.Extract(context.Background(), []byte("%PDF-1.7 binary body"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if pdf.calls != 1 {
		t.Fatalf("model extractor called %d times, want 1", pdf.calls)
	}
	if len(lines) != 1 || lines[0].Description != "REWE SAGT DANKE" {
		t.Fatalf("lines = %+v, want the model rows", lines)
	}
}

func TestAutoExtractorRejectsPDFWithoutModel(t *testing.T) {
	e := AutoExtractor{}
	if _, err := e.Extract(context.Background(), []byte("%PDF-1.7")); err == nil {
		t.Fatal("Extract succeeded for a PDF without a model extractor")
	}
}
