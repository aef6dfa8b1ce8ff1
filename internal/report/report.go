// Package report builds and persists the grading result document.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/mlgrade/internal/domain/scoring"
)

// Document is the JSON result written once per grading run.
type Document struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	Score      int               `json:"score"`
	Sections   []scoring.Section `json:"sections"`
	Feedback   string            `json:"feedback"`
	ResultPath string            `json:"resultPath,omitempty"`
	Checks     []scoring.Check   `json:"checks,omitempty"`
}

// FromResult converts a scoring result into a report document.
func FromResult(runID, resultPath string, r scoring.Result) Document {
	sections := r.Sections
	if sections == nil {
		sections = []scoring.Section{}
	}
	return Document{
		RunID:      runID,
		Status:     r.Status,
		Score:      r.Score,
		Sections:   sections,
		Feedback:   r.Feedback,
		ResultPath: resultPath,
		Checks:     r.Checks,
	}
}

// Failure builds the document written when the grader itself failed.
func Failure(runID string, err error) Document {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Document{
		RunID:    runID,
		Status:   scoring.StatusFailed,
		Score:    0,
		Sections: []scoring.Section{},
		Feedback: "Grader error: " + msg,
	}
}

// Write persists doc at path. The document is written to a temporary file in
// the same directory and renamed into place, so readers never see partial JSON.
func Write(ctx context.Context, path string, doc Document) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	if doc.Sections == nil {
		doc.Sections = []scoring.Section{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrWriteReport, err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrWriteReport, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(b); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrWriteReport, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrWriteReport, err)
	}
	return nil
}

// Read loads a previously written document.
func Read(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
