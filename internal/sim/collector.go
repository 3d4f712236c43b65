package sim

import "sync"

// Collector is an in-memory frame consumer. It keeps every snapshot it is
// sent and never refuses one.
type Collector struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Send(s Snapshot) error {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
	return nil
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

// Snapshots returns the received frames in arrival order.
func (c *Collector) Snapshots() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, len(c.snaps))
	copy(out, c.snaps)
	return out
}

// Result assembles the collected frames into a Result for req.
func (c *Collector) Result(req Request, metrics map[string]float64) *Result {
	return NewResult(req, c.Snapshots(), metrics)
}
