// Package ingest runs the end-to-end validation pipeline: fetch raw rows
// from both source schemas, normalize, push every record through the
// checkpoint chain, and write the surviving batch files.
package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/normalize"
	"github.com/concours-prep/pipeline/internal/output"
	"github.com/concours-prep/pipeline/internal/pipeline"
	"github.com/concours-prep/pipeline/internal/source"
)

// sourceReader is what the service needs from the fetcher; tests swap in
// an in-memory implementation.
type sourceReader interface {
	FetchLegacy(ctx context.Context, filter source.Filter) ([]models.LegacyRow, error)
	FetchV2(ctx context.Context, filter source.Filter) ([]models.V2Row, error)
}

type Service struct {
	src    sourceReader
	chain  *pipeline.Chain
	writer *output.Writer
}

func NewService(src sourceReader, chain *pipeline.Chain, writer *output.Writer) *Service {
	return &Service{src: src, chain: chain, writer: writer}
}

type Options struct {
	Filter source.Filter
	// DryRun runs the full chain but writes no files. The caller also
	// wires a no-op audit sink into the chain for dry runs.
	DryRun bool
}

type Summary struct {
	pipeline.Report
	StructuralDefects int
	FilesWritten      []string
}

// Run executes one ingestion pass. Only a fetch failure is fatal;
// individual records being rejected is the expected mode of operation.
func (s *Service) Run(ctx context.Context, opts Options) (*Summary, error) {
	legacy, err := s.src.FetchLegacy(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("initial fetch failed: %w", err)
	}
	v2, err := s.src.FetchV2(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("initial fetch failed: %w", err)
	}

	questions, defects := s.normalizeAll(legacy, v2)
	log.Printf("Fetched %d legacy + %d v2 rows, %d normalized, %d structural defects",
		len(legacy), len(v2), len(questions), defects)

	report := s.chain.Run(ctx, questions)
	summary := &Summary{Report: report, StructuralDefects: defects}

	if opts.DryRun {
		log.Printf("Dry run: %d accepted, %d flagged, %d rejected — nothing written",
			report.Accepted, report.Flagged, report.Rejected)
		return summary, nil
	}

	groups := output.Group(report.Outcomes)
	files, err := s.writer.WriteAll(groups)
	if err != nil {
		return summary, fmt.Errorf("write batch files: %w", err)
	}
	if err := s.writer.WriteManifest(report, files); err != nil {
		return summary, fmt.Errorf("write manifest: %w", err)
	}
	summary.FilesWritten = files

	return summary, nil
}

// normalizeAll adapts every raw row, dropping rows the normalizer rejects
// as structural defects. Each drop is logged with its provenance; nothing
// is silently defaulted.
func (s *Service) normalizeAll(legacy []models.LegacyRow, v2 []models.V2Row) ([]models.Question, int) {
	questions := make([]models.Question, 0, len(legacy)+len(v2))
	defects := 0

	for _, row := range legacy {
		q, err := normalize.FromLegacy(row)
		if err != nil {
			log.Printf("DROP %s:%d before validation: %v", models.SourceTableLegacy, row.ID, err)
			defects++
			continue
		}
		questions = append(questions, q)
	}
	for _, row := range v2 {
		q, err := normalize.FromV2(row)
		if err != nil {
			log.Printf("DROP %s:%d before validation: %v", models.SourceTableV2, row.ID, err)
			defects++
			continue
		}
		questions = append(questions, q)
	}

	return questions, defects
}
