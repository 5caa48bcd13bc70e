// Package output serializes surviving records to per-(tier, test type)
// JSON batch files for manual review. Nothing here touches the database:
// the human-in-the-loop gate between validation and insertion is the
// whole point of these files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/concours-prep/pipeline/internal/models"
	"github.com/concours-prep/pipeline/internal/pipeline"
)

type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// GroupKey names a batch file deterministically, e.g. "cs_exam".
func GroupKey(tier models.ExamTier, testType models.TestType) string {
	return fmt.Sprintf("%s_%s", tier, testType)
}

// Group buckets accepted outcomes (flagged ones included — they carry
// their review marker) by exam tier and test type, ordered by provenance
// so reruns produce identical files.
func Group(outcomes []pipeline.Outcome) map[string][]models.OutputQuestion {
	groups := make(map[string][]models.OutputQuestion)
	for _, o := range outcomes {
		if !o.Accepted {
			continue
		}
		key := GroupKey(o.Question.ExamTier, o.Question.TestType)
		groups[key] = append(groups[key], o.Question.ToOutput(o.Flags))
	}
	for _, records := range groups {
		sort.Slice(records, func(i, j int) bool {
			if records[i].SourceTable != records[j].SourceTable {
				return records[i].SourceTable < records[j].SourceTable
			}
			return records[i].SourceID < records[j].SourceID
		})
	}
	return groups
}

// WriteAll writes one JSON array file per group and returns the file
// names written, sorted. Each file is written whole or not at all.
func (w *Writer) WriteAll(groups map[string][]models.OutputQuestion) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var files []string
	for _, key := range keys {
		name := key + ".json"
		if err := w.writeFile(name, groups[key]); err != nil {
			return files, err
		}
		files = append(files, name)
	}
	return files, nil
}

// Manifest records what a run produced, for the reviewer picking up the
// batch files later.
type Manifest struct {
	RunID               string         `json:"run_id"`
	GeneratedAt         time.Time      `json:"generated_at"`
	Processed           int            `json:"processed"`
	Accepted            int            `json:"accepted"`
	Flagged             int            `json:"flagged"`
	Rejected            int            `json:"rejected"`
	RejectsByCheckpoint map[string]int `json:"rejects_by_checkpoint"`
	Files               []string       `json:"files"`
}

func (w *Writer) WriteManifest(report pipeline.Report, files []string) error {
	m := Manifest{
		RunID:               report.RunID,
		GeneratedAt:         time.Now().UTC(),
		Processed:           report.Processed,
		Accepted:            report.Accepted,
		Flagged:             report.Flagged,
		Rejected:            report.Rejected,
		RejectsByCheckpoint: report.RejectsByCheckpoint,
		Files:               files,
	}
	return w.writeJSON("manifest.json", m)
}

// writeFile serializes records atomically: marshal fully in memory, write
// to a temp file in the same directory, then rename over the target. A
// crashed run never leaves a truncated batch file behind.
func (w *Writer) writeFile(name string, records []models.OutputQuestion) error {
	return w.writeJSON(name, records)
}

func (w *Writer) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}
	return nil
}

// ReadBatch loads one batch file back; used by the review server and by
// round-trip checks.
func ReadBatch(path string) ([]models.OutputQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", path, err)
	}
	var records []models.OutputQuestion
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	return records, nil
}
