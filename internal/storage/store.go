// Package storage keeps finished runs on disk, one directory per run with
// a metadata.json and a series.csv.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/climemu/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID            string             `json:"id"`
	Model         string             `json:"model"`
	Timestamp     time.Time          `json:"timestamp"`
	StartYear     int                `json:"start_year"`
	Dt            float64            `json:"dt"`
	Steps         int                `json:"steps"`
	ForcingFactor float64            `json:"forcing_factor,omitempty"`
	Scenario      string             `json:"scenario,omitempty"`
	Batch         string             `json:"batch,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// SaveOptions carries run settings that are not part of the result.
type SaveOptions struct {
	ForcingFactor float64
	Scenario      string
	Batch         string
}

// Save writes res under a new run directory and returns its ID.
func (s *Store) Save(res *sim.Result, opts SaveOptions) (string, error) {
	now := time.Now().UTC()
	runID := fmt.Sprintf("%s_%d", sanitize(res.Model), now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Model:         res.Model,
		Timestamp:     now,
		StartYear:     res.StartYear,
		Dt:            res.Dt,
		Steps:         res.Steps(),
		ForcingFactor: opts.ForcingFactor,
		Scenario:      opts.Scenario,
		Batch:         opts.Batch,
		Metrics:       res.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, res); err != nil {
		return "", fmt.Errorf("write series: %w", err)
	}
	return runID, nil
}

// List returns the metadata of every readable run, newest first.
// Directories without valid metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadResult rebuilds the full result of a stored run.
func (s *Store) LoadResult(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	res, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	res.Model = meta.Model
	res.StartYear = meta.StartYear
	res.Dt = meta.Dt
	res.Metrics = meta.Metrics
	return res, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs in %s", s.baseDir)
	}
	return runs[0].ID, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
