// Package file reads and writes the on-disk formats: JSON score reports,
// JSON timelines and plain-text detected note streams.
package file

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
)

// WriteReport stores r as <dir>/<session id>.json and returns the path.
func WriteReport(dir string, r model.ScoreReport) (string, error) {
	if r.SessionID == "" {
		return "", fmt.Errorf("file: report has no session id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("file: %w", err)
	}
	path := filepath.Join(dir, r.SessionID+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("file: encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("file: %w", err)
	}
	return path, nil
}

func ReadReport(path string) (model.ScoreReport, error) {
	var r model.ScoreReport
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("file: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("file: decoding %s: %w", path, err)
	}
	return r, nil
}

// ListReports returns the report files in dir, sorted by name. A missing
// dir has no reports.
func ListReports(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func ReadTimeline(path string) (model.Timeline, error) {
	var tl model.Timeline
	data, err := os.ReadFile(path)
	if err != nil {
		return tl, fmt.Errorf("file: %w", err)
	}
	if err := json.Unmarshal(data, &tl); err != nil {
		return tl, fmt.Errorf("file: decoding %s: %w", path, err)
	}
	return tl, nil
}

// ReadDetectedNotes parses "timestampMs NOTE" lines such as "1500 A2".
// Blank lines and # comments are skipped.
func ReadDetectedNotes(r io.Reader) ([]model.DetectedNoteEvent, error) {
	var res []model.DetectedNoteEvent
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("file: line %d: want \"timestampMs NOTE\", got %q", line, text)
		}
		ts, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("file: line %d: %w", line, err)
		}
		id, err := note.Parse(fields[1])
		if err != nil {
			return nil, fmt.Errorf("file: line %d: %w", line, err)
		}
		res = append(res, model.DetectedNoteEvent{Note: id, TimestampMs: ts})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	return res, nil
}
