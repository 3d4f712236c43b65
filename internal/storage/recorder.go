package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/pipe"
	"github.com/san-kum/flocksim/internal/sim"
)

// EntryWriter persists ensemble entries on its own goroutine. Producers
// send to Sink; Wait closes the queue and reports the outcome.
type EntryWriter struct {
	store *Store
	queue *pipe.Queue[ensemble.Entry]
	done  chan struct{}
	saved int
	err   error
	log   logrus.FieldLogger
}

func (s *Store) StartEntryWriter(ctx context.Context, log logrus.FieldLogger) *EntryWriter {
	w := &EntryWriter{
		store: s,
		queue: pipe.NewQueue[ensemble.Entry](),
		done:  make(chan struct{}),
		log:   logging.OrDiscard(log),
	}
	go w.loop(ctx)
	return w
}

func (w *EntryWriter) Sink() pipe.Sink[ensemble.Entry] { return w.queue }

func (w *EntryWriter) loop(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.err = fmt.Errorf("storage: entry writer panicked: %v", r)
			w.queue.Detach()
		}
	}()

	for {
		e, ok := w.queue.Recv(ctx)
		if !ok {
			if err := ctx.Err(); err != nil && w.err == nil {
				w.err = err
				w.queue.Detach()
			}
			return
		}
		path, err := w.store.SaveEntry(e)
		if err != nil {
			w.err = fmt.Errorf("storage: save entry %s: %w", Name(e.Tag, e.ID), err)
			w.queue.Detach()
			return
		}
		w.saved++
		w.log.WithFields(logrus.Fields{"entry": e.ID, "tag": e.Tag, "path": path}).Debug("entry saved")
	}
}

// Wait closes the producer side, waits for pending entries to be written
// and returns how many were saved.
func (w *EntryWriter) Wait() (int, error) {
	w.queue.Close()
	<-w.done
	return w.saved, w.err
}

// FrameRecorder streams snapshots of one run to frames.csv as they arrive
// and writes metadata.json when the run is closed.
type FrameRecorder struct {
	store  *Store
	req    sim.Request
	dir    string
	file   *os.File
	fw     *frameWriter
	queue  *pipe.Queue[sim.Snapshot]
	done   chan struct{}
	last   *sim.Snapshot
	frames int
	err    error
	log    logrus.FieldLogger
}

func (s *Store) StartFrameRecorder(ctx context.Context, req sim.Request, log logrus.FieldLogger) (*FrameRecorder, error) {
	dir := s.path(Simulation, Name(req.Tag, req.ID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return nil, err
	}

	r := &FrameRecorder{
		store: s,
		req:   req,
		dir:   dir,
		file:  f,
		fw:    newFrameWriter(f),
		queue: pipe.NewQueue[sim.Snapshot](),
		done:  make(chan struct{}),
		log:   logging.OrDiscard(log).WithField("run", Name(req.Tag, req.ID)),
	}
	go r.loop(ctx)
	return r, nil
}

func (r *FrameRecorder) Sink() pipe.Sink[sim.Snapshot] { return r.queue }

func (r *FrameRecorder) Dir() string { return r.dir }

func (r *FrameRecorder) loop(ctx context.Context) {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			r.err = fmt.Errorf("storage: frame recorder panicked: %v", p)
			r.queue.Detach()
		}
	}()

	for {
		snap, ok := r.queue.Recv(ctx)
		if !ok {
			if err := ctx.Err(); err != nil && r.err == nil {
				r.err = err
				r.queue.Detach()
			}
			return
		}
		if err := r.fw.write(snap); err != nil {
			r.err = fmt.Errorf("storage: write frame %d: %w", snap.Step, err)
			r.queue.Detach()
			return
		}
		r.last = &snap
		r.frames++
	}
}

// Close ends the run: it waits for queued frames, flushes frames.csv and
// writes metadata.json with the given metrics. If the recorder failed or
// panicked, Close returns that error and writes no metadata.
func (r *FrameRecorder) Close(metrics map[string]float64) (*sim.Result, error) {
	r.queue.Close()
	<-r.done

	if r.err != nil {
		r.file.Close()
		return nil, r.err
	}
	flushErr := r.fw.flush()
	closeErr := r.file.Close()
	if flushErr != nil {
		return nil, flushErr
	}
	if closeErr != nil {
		return nil, closeErr
	}

	var snaps []sim.Snapshot
	if r.last != nil {
		snaps = []sim.Snapshot{*r.last}
	}
	res := sim.NewResult(r.req, snaps, metrics)
	res.Frames = r.frames
	res.Snapshots = nil

	if err := writeJSONFile(filepath.Join(r.dir, metadataFile), res); err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"frames": r.frames,
		"steps":  res.TotalSteps,
	}).Info("run saved")
	return res, nil
}
