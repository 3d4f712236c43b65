package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/vec"
)

// Data categories, one directory each under the store root.
const (
	Ensemble   = "ensemble"
	Simulation = "simulation"
	Analysis   = "analysis"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

var ErrNotFound = errors.New("storage: not found")

var frameHeader = []string{"step", "time", "bird", "px", "py", "pz", "vx", "vy", "vz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string { return s.baseDir }

// Init creates the category directories.
func (s *Store) Init() error {
	for _, c := range []string{Ensemble, Simulation, Analysis} {
		if err := os.MkdirAll(filepath.Join(s.baseDir, c), 0755); err != nil {
			return err
		}
	}
	return nil
}

// Name is the file stem used for a tagged, numbered item.
func Name(tag string, id any) string {
	return fmt.Sprintf("%s-%v", tag, id)
}

func (s *Store) path(category string, parts ...string) string {
	return filepath.Join(append([]string{s.baseDir, category}, parts...)...)
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// SaveEntry writes an ensemble entry to ensemble/<tag>-<id>.json.
func (s *Store) SaveEntry(e ensemble.Entry) (string, error) {
	path := s.path(Ensemble, Name(e.Tag, e.ID)+".json")
	if err := writeJSONFile(path, e); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) LoadEntry(tag string, id int) (*ensemble.Entry, error) {
	var e ensemble.Entry
	if err := readJSONFile(s.path(Ensemble, Name(tag, id)+".json"), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// EntryInfo identifies a stored ensemble entry.
type EntryInfo struct {
	Tag  string
	ID   int
	Path string
}

// ListEntries returns stored entries, optionally restricted to one tag,
// sorted by tag then id.
func (s *Store) ListEntries(tag string) ([]EntryInfo, error) {
	files, err := os.ReadDir(s.path(Ensemble))
	if err != nil {
		if os.IsNotExist(err) {
			return []EntryInfo{}, nil
		}
		return nil, err
	}

	out := make([]EntryInfo, 0)
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		t, id, ok := splitName(strings.TrimSuffix(name, ".json"))
		if !ok || (tag != "" && t != tag) {
			continue
		}
		out = append(out, EntryInfo{Tag: t, ID: id, Path: filepath.Join(s.path(Ensemble), name)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func splitName(stem string) (string, int, bool) {
	i := strings.LastIndex(stem, "-")
	if i <= 0 {
		return "", 0, false
	}
	id, err := strconv.Atoi(stem[i+1:])
	if err != nil {
		return "", 0, false
	}
	return stem[:i], id, true
}

// RunID is the directory name of a simulation run.
func RunID(r *sim.Result) string {
	return Name(r.Tag, r.ID)
}

// SaveRun writes a complete result: simulation/<tag>-<id>/metadata.json
// and frames.csv holding every snapshot.
func (s *Store) SaveRun(r *sim.Result) (string, error) {
	runID := RunID(r)
	dir := s.path(Simulation, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return "", err
	}
	fw := newFrameWriter(f)
	for _, snap := range r.Snapshots {
		if err := fw.write(snap); err != nil {
			f.Close()
			return "", err
		}
	}
	if err := fw.flush(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := writeJSONFile(filepath.Join(dir, metadataFile), r); err != nil {
		return "", err
	}
	return runID, nil
}

// ListRuns returns the metadata of every stored run, oldest first.
func (s *Store) ListRuns() ([]*sim.Result, error) {
	dirs, err := os.ReadDir(s.path(Simulation))
	if err != nil {
		if os.IsNotExist(err) {
			return []*sim.Result{}, nil
		}
		return nil, err
	}

	runs := make([]*sim.Result, 0)
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		var meta sim.Result
		if err := readJSONFile(s.path(Simulation, d.Name(), metadataFile), &meta); err != nil {
			continue
		}
		runs = append(runs, &meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return runs, nil
}

// LoadRun reads a run's metadata.
func (s *Store) LoadRun(runID string) (*sim.Result, error) {
	var meta sim.Result
	if err := readJSONFile(s.path(Simulation, runID, metadataFile), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadRunWithFrames reads a run's metadata and every stored frame.
func (s *Store) LoadRunWithFrames(runID string) (*sim.Result, error) {
	meta, err := s.LoadRun(runID)
	if err != nil {
		return nil, err
	}
	snaps, err := s.LoadFrames(runID)
	if err != nil {
		return nil, err
	}
	meta.Snapshots = snaps
	if n := len(snaps); n > 0 {
		meta.FinalState = snaps[n-1].Particles
	}
	return meta, nil
}

func (s *Store) LoadFrames(runID string) ([]sim.Snapshot, error) {
	file, err := os.Open(s.path(Simulation, runID, framesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(frameHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Snapshot{}, nil
	}

	snaps := make([]sim.Snapshot, 0)
	for i, rec := range records[1:] {
		step, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("frames.csv line %d: %w", i+2, err)
		}
		vals := make([]float64, 7)
		for k := range vals {
			col := 1
			if k > 0 {
				col = k + 2
			}
			if vals[k], err = strconv.ParseFloat(rec[col], 64); err != nil {
				return nil, fmt.Errorf("frames.csv line %d: %w", i+2, err)
			}
		}

		if n := len(snaps); n == 0 || snaps[n-1].Step != step {
			snaps = append(snaps, sim.Snapshot{Step: step, Time: vals[0]})
		}
		last := &snaps[len(snaps)-1]
		last.Particles = append(last.Particles, bird.New(
			vec.New(vals[1], vals[2], vals[3]),
			vec.New(vals[4], vals[5], vals[6]),
		))
	}
	return snaps, nil
}

// SaveAnalysis writes v to analysis/<name>.json.
func (s *Store) SaveAnalysis(name string, v any) (string, error) {
	path := s.path(Analysis, name+".json")
	if err := writeJSONFile(path, v); err != nil {
		return "", err
	}
	return path, nil
}

type frameWriter struct {
	w      *csv.Writer
	header bool
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: csv.NewWriter(w)}
}

func (fw *frameWriter) write(s sim.Snapshot) error {
	if !fw.header {
		if err := fw.w.Write(frameHeader); err != nil {
			return err
		}
		fw.header = true
	}

	step := strconv.FormatUint(s.Step, 10)
	t := formatFloat(s.Time)
	for i, p := range s.Particles {
		row := []string{
			step, t, strconv.Itoa(i),
			formatFloat(p.Position.X), formatFloat(p.Position.Y), formatFloat(p.Position.Z),
			formatFloat(p.Velocity.X), formatFloat(p.Velocity.Y), formatFloat(p.Velocity.Z),
		}
		if err := fw.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (fw *frameWriter) flush() error {
	if !fw.header {
		if err := fw.w.Write(frameHeader); err != nil {
			return err
		}
		fw.header = true
	}
	fw.w.Flush()
	return fw.w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
