// Package reference loads the labeled event dataset and the reference
// baseline a grading run is computed from.
//
// A missing input is not an error: the loader returns the built-in
// fallback dataset and reports SourceFallback. An input that exists but
// cannot be read or does not validate returns ErrMalformedReference.
package reference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/okian/mlgrade/internal/domain/model"
)

// Source tells where a loaded input came from.
type Source int

const (
	// SourceFile means the input was read from the configured path.
	SourceFile Source = iota
	// SourceFallback means the path was empty or absent and the built-in data was used.
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceFile:
		return "file"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 1 << 20

// LoadEvents reads newline-delimited JSON events from path.
// Blank lines are skipped; every other line must be a valid event object.
func LoadEvents(ctx context.Context, path string) ([]model.Event, Source, error) {
	if path == "" {
		return FallbackEvents(), SourceFallback, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FallbackEvents(), SourceFallback, nil
	}
	if err != nil {
		return nil, SourceFile, fmt.Errorf("%w: open %s: %w", ErrMalformedReference, path, err)
	}
	defer func() { _ = f.Close() }()

	events := make([]model.Event, 0, 64)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, SourceFile, err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		ev, err := decodeEvent(raw)
		if err != nil {
			return nil, SourceFile, fmt.Errorf("%w: %s line %d: %w", ErrMalformedReference, path, line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, SourceFile, fmt.Errorf("%w: %s line %d: %w", ErrMalformedReference, path, line+1, err)
	}
	return events, SourceFile, nil
}

func decodeEvent(raw []byte) (model.Event, error) {
	if err := validate(eventSchema, raw); err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// LoadReference reads the reference statistics document at path.
func LoadReference(ctx context.Context, path string) (model.ReferenceStatistics, Source, error) {
	if path == "" {
		return FallbackReference(), SourceFallback, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FallbackReference(), SourceFallback, nil
	}
	if err != nil {
		return model.ReferenceStatistics{}, SourceFile, fmt.Errorf("%w: read %s: %w", ErrMalformedReference, path, err)
	}
	if err := ctx.Err(); err != nil {
		return model.ReferenceStatistics{}, SourceFile, err
	}
	if !json.Valid(b) {
		return model.ReferenceStatistics{}, SourceFile, fmt.Errorf("%w: %s: not valid JSON", ErrMalformedReference, path)
	}
	if err := validate(referenceSchema, b); err != nil {
		return model.ReferenceStatistics{}, SourceFile, fmt.Errorf("%w: %s: %w", ErrMalformedReference, path, err)
	}
	var ref model.ReferenceStatistics
	if err := json.Unmarshal(b, &ref); err != nil {
		return model.ReferenceStatistics{}, SourceFile, fmt.Errorf("%w: %s: %w", ErrMalformedReference, path, err)
	}
	return ref, SourceFile, nil
}
