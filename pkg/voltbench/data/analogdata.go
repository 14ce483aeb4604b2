package data

import (
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// ErrSampleLimit is returned by Append once the configured sample limit is
// reached. The acquisition engine treats it as the out-of-memory signal and
// stops the capture session.
var ErrSampleLimit = errors.New("sample limit reached")

// ErrFixedQuantity is returned when changing the quantity or unit of a
// series whose quantity has been fixed.
var ErrFixedQuantity = errors.New("quantity is fixed")

// AnalogData is an append-only series of numeric samples tagged with a
// quantity and unit. One series may be shared by several signals as a
// common time base. The capture goroutine is the only writer; readers see
// appended samples only.
type AnalogData struct {
	mu       sync.RWMutex
	samples  []float64
	quantity Quantity
	unit     Unit
	fixed    bool
	limit    int

	min float64
	max float64
}

func NewAnalogData() *AnalogData {
	return &AnalogData{
		min: math.Inf(1),
		max: math.Inf(-1),
	}
}

// SetSampleLimit caps the series at n samples. Zero means unbounded.
func (d *AnalogData) SetSampleLimit(n int) {
	d.mu.Lock()
	d.limit = n
	d.mu.Unlock()
}

// SetFixedQuantity marks the quantity and unit immutable. Once set it is
// never cleared.
func (d *AnalogData) SetFixedQuantity(fixed bool) {
	d.mu.Lock()
	d.fixed = d.fixed || fixed
	d.mu.Unlock()
}

func (d *AnalogData) FixedQuantity() bool {
	d.mu.RLock()
	fixed := d.fixed
	d.mu.RUnlock()
	return fixed
}

// SetQuantity assigns the measured quantity. Fails once fixed, except for
// re-assigning the same value.
func (d *AnalogData) SetQuantity(q Quantity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fixed && d.quantity != QuantityUnset && d.quantity != q {
		return ErrFixedQuantity
	}
	d.quantity = q
	return nil
}

func (d *AnalogData) SetUnit(u Unit) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fixed && d.unit != UnitUnset && d.unit != u {
		return ErrFixedQuantity
	}
	d.unit = u
	return nil
}

func (d *AnalogData) Quantity() Quantity {
	d.mu.RLock()
	q := d.quantity
	d.mu.RUnlock()
	return q
}

func (d *AnalogData) Unit() Unit {
	d.mu.RLock()
	u := d.unit
	d.mu.RUnlock()
	return u
}

// Append adds one sample to the series.
func (d *AnalogData) Append(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.limit > 0 && len(d.samples) >= d.limit {
		return ErrSampleLimit
	}
	d.samples = append(d.samples, v)
	if v < d.min {
		d.min = v
	}
	if v > d.max {
		d.max = v
	}
	return nil
}

func (d *AnalogData) SampleCount() int {
	d.mu.RLock()
	n := len(d.samples)
	d.mu.RUnlock()
	return n
}

// Samples returns a copy of the series.
func (d *AnalogData) Samples() []float64 {
	d.mu.RLock()
	out := make([]float64, len(d.samples))
	copy(out, d.samples)
	d.mu.RUnlock()
	return out
}

// Tail returns a copy of the last n samples, or all of them if fewer exist.
func (d *AnalogData) Tail(n int) []float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n > len(d.samples) {
		n = len(d.samples)
	}
	out := make([]float64, n)
	copy(out, d.samples[len(d.samples)-n:])
	return out
}

func (d *AnalogData) Last() (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.samples) == 0 {
		return 0, false
	}
	return d.samples[len(d.samples)-1], true
}

// SeriesStats summarizes an AnalogData series.
type SeriesStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Stats computes summary statistics over the whole series.
func (d *AnalogData) Stats() SeriesStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.samples) == 0 {
		return SeriesStats{}
	}
	mean, std := stat.MeanStdDev(d.samples, nil)
	if len(d.samples) == 1 {
		std = 0
	}
	return SeriesStats{
		Count:  len(d.samples),
		Min:    d.min,
		Max:    d.max,
		Mean:   mean,
		StdDev: std,
	}
}

// Compact drops excess slice capacity. Called after a capture run ends to
// bound long-session memory growth.
func (d *AnalogData) Compact() {
	d.mu.Lock()
	if cap(d.samples) > len(d.samples) {
		trimmed := make([]float64, len(d.samples))
		copy(trimmed, d.samples)
		d.samples = trimmed
	}
	d.mu.Unlock()
}
