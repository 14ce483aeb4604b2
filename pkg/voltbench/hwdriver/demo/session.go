package demo

import (
	"fmt"
	"sync"
	"time"

	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

// Session drives registered demo handles: Run blocks and periodically
// delivers one sample burst per device to every datafeed callback, plus any
// metadata queued by configuration writes. Callbacks fire on the goroutine
// calling Run, matching the capture-thread delivery model of real backends.
type Session struct {
	period time.Duration
	burst  int

	mu          sync.Mutex
	handles     []*Handle
	callbacks   []hwdriver.DatafeedCallback
	pendingMeta []pendingMeta
	stop        chan struct{}
	running     bool
}

type pendingMeta struct {
	handle *Handle
	packet *hwdriver.MetaPacket
}

func NewSession(period time.Duration, burstSize int) *Session {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	if burstSize <= 0 {
		burstSize = 16
	}
	return &Session{period: period, burst: burstSize}
}

func (s *Session) AddDevice(handle hwdriver.DeviceHandle) error {
	h, ok := handle.(*Handle)
	if !ok {
		return fmt.Errorf("demo session cannot drive %T", handle)
	}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	// Configuration writes echo back as metadata, like a real instrument
	// confirming a setpoint.
	h.configStore.setOnSet(func(key hwdriver.ConfigKey, value interface{}) {
		s.queueMeta(h, key, value)
	})
	return nil
}

func (s *Session) RemoveDevices() {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()
	for _, h := range handles {
		h.configStore.setOnSet(nil)
	}
}

func (s *Session) AddDatafeedCallback(cb hwdriver.DatafeedCallback) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.mu.Unlock()
}

func (s *Session) RemoveDatafeedCallbacks() {
	s.mu.Lock()
	s.callbacks = nil
	s.mu.Unlock()
}

func (s *Session) queueMeta(h *Handle, key hwdriver.ConfigKey, value interface{}) {
	s.mu.Lock()
	s.pendingMeta = append(s.pendingMeta, pendingMeta{
		handle: h,
		packet: &hwdriver.MetaPacket{Config: []hwdriver.ConfigEntry{{Key: key, Value: value}}},
	})
	s.mu.Unlock()
}

func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.handles) == 0 {
		return fmt.Errorf("no devices in session")
	}
	if s.running {
		return fmt.Errorf("session already running")
	}
	s.stop = make(chan struct{})
	s.running = true
	return nil
}

// Run blocks generating datafeed packets until Stop.
func (s *Session) Run() error {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop == nil {
		return fmt.Errorf("session not started")
	}

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return nil
		case <-ticker.C:
			s.deliver()
		}
	}
}

func (s *Session) deliver() {
	s.mu.Lock()
	handles := s.handles
	callbacks := s.callbacks
	meta := s.pendingMeta
	s.pendingMeta = nil
	s.mu.Unlock()

	for _, m := range meta {
		for _, cb := range callbacks {
			cb(m.handle, m.packet)
		}
	}

	// Bursts are framed the way lockstep-sampling instruments report them.
	for _, h := range handles {
		packet := h.burst(s.burst)
		for _, cb := range callbacks {
			cb(h, &hwdriver.FrameBeginPacket{})
			cb(h, packet)
			cb(h, &hwdriver.FrameEndPacket{})
		}
	}
}

func (s *Session) Stop() {
	s.mu.Lock()
	if s.stop != nil && s.running {
		close(s.stop)
	}
	s.running = false
	s.mu.Unlock()
}
