package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest summarizes a batch run.
type Manifest struct {
	Files     int      `json:"files"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped_parts"`
	Results   []Result `json:"results"`
}

// Summarize counts the outcomes in results.
func Summarize(results []Result) Manifest {
	m := Manifest{Files: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
		m.Skipped += r.Skipped
	}
	return m
}

// WriteManifest writes the run summary as indented JSON.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("batch: create dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
