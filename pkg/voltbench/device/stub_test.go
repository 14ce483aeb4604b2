package device

import (
	"fmt"
	"sync"

	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

type stubConfigurer struct {
	keys   []hwdriver.ConfigKey
	values map[hwdriver.ConfigKey]interface{}
}

func (c *stubConfigurer) Keys() []hwdriver.ConfigKey { return c.keys }

func (c *stubConfigurer) Get(key hwdriver.ConfigKey) (interface{}, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unsupported key %s", key)
}

func (c *stubConfigurer) Set(key hwdriver.ConfigKey, value interface{}) error {
	if c.values == nil {
		c.values = make(map[hwdriver.ConfigKey]interface{})
	}
	c.values[key] = value
	return nil
}

type stubGroup struct {
	stubConfigurer
	name     string
	channels []*hwdriver.Channel
}

func (g *stubGroup) Name() string                  { return g.name }
func (g *stubGroup) Channels() []*hwdriver.Channel { return g.channels }

type stubHandle struct {
	stubConfigurer
	vendor  string
	model   string
	keys    map[hwdriver.ConfigKey]struct{}
	chans   []*hwdriver.Channel
	groups  []hwdriver.ChannelGroup
	openErr error

	mu         sync.Mutex
	open       bool
	openCount  int
	closeCount int
}

func newStubHandle(capability hwdriver.ConfigKey, channelNames ...string) *stubHandle {
	h := &stubHandle{
		vendor: "ACME",
		model:  "PSU-1",
		keys:   make(map[hwdriver.ConfigKey]struct{}),
	}
	if capability != hwdriver.KeyUnknown {
		h.keys[capability] = struct{}{}
	}
	for i, name := range channelNames {
		h.chans = append(h.chans, &hwdriver.Channel{Name: name, Class: hwdriver.ClassAnalog, Index: i})
	}
	return h
}

func (h *stubHandle) Vendor() string       { return h.vendor }
func (h *stubHandle) Model() string        { return h.model }
func (h *stubHandle) Version() string      { return "" }
func (h *stubHandle) SerialNumber() string { return "" }
func (h *stubHandle) ConnectionID() string { return "" }

func (h *stubHandle) DriverKeys() map[hwdriver.ConfigKey]struct{} { return h.keys }
func (h *stubHandle) Channels() []*hwdriver.Channel               { return h.chans }
func (h *stubHandle) ChannelGroups() []hwdriver.ChannelGroup      { return h.groups }

func (h *stubHandle) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return h.openErr
	}
	h.open = true
	h.openCount++
	return nil
}

func (h *stubHandle) Close() error {
	h.mu.Lock()
	h.open = false
	h.closeCount++
	h.mu.Unlock()
	return nil
}

func (h *stubHandle) isOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// stubSession blocks in Run until Stop, like a real capture session.
type stubSession struct {
	mu        sync.Mutex
	devices   []hwdriver.DeviceHandle
	callbacks []hwdriver.DatafeedCallback
	startErr  error
	runErr    error
	stopCh    chan struct{}
	stopped   bool
	runCount  int
}

func newStubSession() *stubSession { return &stubSession{} }

func (s *stubSession) AddDevice(handle hwdriver.DeviceHandle) error {
	s.mu.Lock()
	s.devices = append(s.devices, handle)
	s.mu.Unlock()
	return nil
}

func (s *stubSession) RemoveDevices() {
	s.mu.Lock()
	s.devices = nil
	s.mu.Unlock()
}

func (s *stubSession) AddDatafeedCallback(cb hwdriver.DatafeedCallback) {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.mu.Unlock()
}

func (s *stubSession) RemoveDatafeedCallbacks() {
	s.mu.Lock()
	s.callbacks = nil
	s.mu.Unlock()
}

func (s *stubSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.stopCh = make(chan struct{})
	s.stopped = false
	return nil
}

func (s *stubSession) Run() error {
	s.mu.Lock()
	s.runCount++
	stop := s.stopCh
	err := s.runErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	<-stop
	return nil
}

func (s *stubSession) Stop() {
	s.mu.Lock()
	if s.stopCh != nil && !s.stopped {
		close(s.stopCh)
		s.stopped = true
	}
	s.mu.Unlock()
}

func (s *stubSession) deviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

func (s *stubSession) callbackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}
