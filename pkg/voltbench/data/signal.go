package data

import (
	"sync"

	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

// Signal is the typed application-side wrapper around one analog hardware
// channel. It owns its sample series and holds a reference to a time base
// that may be private or shared with other signals sampled in lockstep.
type Signal struct {
	channel   *hwdriver.Channel
	fixedMQ   bool
	timeStart int64 // ms since epoch, set at construction

	mu       sync.RWMutex
	analog   *AnalogData
	timeBase *AnalogData
}

func NewSignal(channel *hwdriver.Channel, fixedMQ bool, timeStart int64) *Signal {
	return &Signal{
		channel:   channel,
		fixedMQ:   fixedMQ,
		timeStart: timeStart,
	}
}

// Name returns the driver-assigned channel name.
func (s *Signal) Name() string { return s.channel.Name }

func (s *Signal) Channel() *hwdriver.Channel { return s.channel }

// FixedQuantity reports whether the measured quantity is locked for the
// lifetime of the signal.
func (s *Signal) FixedQuantity() bool { return s.fixedMQ }

// TimeStart returns the construction timestamp in ms since epoch.
func (s *Signal) TimeStart() int64 { return s.timeStart }

func (s *Signal) SetAnalogData(d *AnalogData) {
	s.mu.Lock()
	s.analog = d
	s.mu.Unlock()
}

func (s *Signal) SetTimeBase(d *AnalogData) {
	s.mu.Lock()
	s.timeBase = d
	s.mu.Unlock()
}

func (s *Signal) AnalogData() *AnalogData {
	s.mu.RLock()
	d := s.analog
	s.mu.RUnlock()
	return d
}

func (s *Signal) TimeBase() *AnalogData {
	s.mu.RLock()
	d := s.timeBase
	s.mu.RUnlock()
	return d
}

// SharesTimeBase reports whether both signals append against the same time
// series.
func (s *Signal) SharesTimeBase(other *Signal) bool {
	return other != nil && s.TimeBase() == other.TimeBase()
}

func (s *Signal) Quantity() Quantity {
	if d := s.AnalogData(); d != nil {
		return d.Quantity()
	}
	return QuantityUnset
}

func (s *Signal) Unit() Unit {
	if d := s.AnalogData(); d != nil {
		return d.Unit()
	}
	return UnitUnset
}

// Append pushes one sample into the signal's series.
func (s *Signal) Append(v float64) error {
	return s.AnalogData().Append(v)
}

// AppendTime pushes one timestamp into the signal's time base. For signals
// on a shared time base the caller appends once per sample burst, not once
// per member signal.
func (s *Signal) AppendTime(t float64) error {
	return s.TimeBase().Append(t)
}
