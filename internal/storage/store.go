// Package storage persists simulation runs: one directory per run holding
// metadata, metric series and per-checkpoint cell snapshots.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonaspleyer/cellular-control/internal/cell"
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

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Threads    int                `json:"threads"`
	CellsStart int                `json:"cells_start"`
	CellsEnd   int                `json:"cells_end"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run is an open run directory. It satisfies the engine's Recorder contract
// and is safe for concurrent checkpoint calls from all partitions.
type Run struct {
	id  string
	dir string

	mu      sync.Mutex
	started map[int]bool
}

// Begin creates a fresh run directory under the store.
func (s *Store) Begin() (*Run, error) {
	runID := fmt.Sprintf("run_%d", time.Now().Unix())
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Run{id: runID, dir: dir, started: make(map[int]bool)}, nil
}

func (r *Run) ID() string { return r.id }

// RecordCells appends one partition's cells to the snapshot file of the
// given iteration.
func (r *Run) RecordCells(iteration int, partition int, cells []cell.Box) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.dir, fmt.Sprintf("cells_%06d.csv", iteration))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if !r.started[iteration] {
		r.started[iteration] = true
		dim := 0
		if len(cells) > 0 {
			dim = len(cells[0].Cell.Pos())
		}
		header := []string{"partition", "id"}
		for i := 0; i < dim; i++ {
			header = append(header, fmt.Sprintf("x%d", i))
		}
		for i := 0; i < dim; i++ {
			header = append(header, fmt.Sprintf("v%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for _, c := range cells {
		row := []string{strconv.Itoa(partition), c.ID.String()}
		for _, x := range c.Cell.Pos() {
			row = append(row, strconv.FormatFloat(x, 'f', 9, 64))
		}
		for _, v := range c.Cell.Vel() {
			row = append(row, strconv.FormatFloat(v, 'f', 9, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// Finish writes the run metadata and the per-step metric series.
func (r *Run) Finish(meta RunMetadata, series map[string][]float64) error {
	meta.ID = r.id
	meta.Timestamp = time.Now()

	f, err := os.Create(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	if len(series) == 0 {
		return nil
	}
	return r.writeSeries(series)
}

func (r *Run) writeSeries(series map[string][]float64) error {
	names := make([]string, 0, len(series))
	length := 0
	for name, values := range series {
		names = append(names, name)
		if len(values) > length {
			length = len(values)
		}
	}
	sort.Strings(names)

	f, err := os.Create(filepath.Join(r.dir, "series.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(append([]string{"step"}, names...)); err != nil {
		return err
	}
	for i := 0; i < length; i++ {
		row := []string{strconv.Itoa(i + 1)}
		for _, name := range names {
			if i < len(series[name]) {
				row = append(row, strconv.FormatFloat(series[name][i], 'f', 6, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// List returns the metadata of all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var runs []RunMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) LoadMeta(runID string) (RunMetadata, error) {
	var meta RunMetadata
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return meta, err
	}
	return meta, json.Unmarshal(data, &meta)
}

// LoadSeries reads back the metric series of a run.
func (s *Store) LoadSeries(runID string) (map[string][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("storage: series file of %s is empty", runID)
	}

	header := rows[0]
	series := make(map[string][]float64, len(header)-1)
	for _, row := range rows[1:] {
		for col := 1; col < len(header) && col < len(row); col++ {
			if row[col] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return nil, err
			}
			series[header[col]] = append(series[header[col]], v)
		}
	}
	return series, nil
}
