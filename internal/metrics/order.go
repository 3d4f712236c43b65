package metrics

import (
	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/sim"
)

// Order averages the global order parameter over observed frames.
type Order struct {
	name    string
	sum     float64
	last    float64
	samples int
}

func NewOrder() *Order {
	return &Order{name: "order"}
}

func (o *Order) Name() string { return o.name }

func (o *Order) Observe(s sim.Snapshot) {
	o.last = analysis.OrderParameter(s.Particles)
	o.sum += o.last
	o.samples++
}

func (o *Order) Value() float64 {
	if o.samples == 0 {
		return 0
	}
	return o.sum / float64(o.samples)
}

// Last is the order parameter of the most recent frame.
func (o *Order) Last() float64 { return o.last }

func (o *Order) Reset() {
	o.sum = 0
	o.last = 0
	o.samples = 0
}

// FinalOrder reports the order parameter of the last observed frame.
type FinalOrder struct{ Order }

func NewFinalOrder() *FinalOrder {
	return &FinalOrder{Order{name: "final_order"}}
}

func (f *FinalOrder) Value() float64 { return f.last }
