package device

import (
	"sync"

	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

// ChangeKind identifies one typed device-state notification.
type ChangeKind int

const (
	ChangeEnabled ChangeKind = iota
	ChangeVoltageTarget
	ChangeCurrentLimit
	ChangeOTPEnabled
	ChangeOTPActive
	ChangeOVPEnabled
	ChangeOVPActive
	ChangeOVPThreshold
	ChangeOCPEnabled
	ChangeOCPActive
	ChangeOCPThreshold
	ChangeUVCEnabled
	ChangeUVCActive
)

var changeKindNames = map[ChangeKind]string{
	ChangeEnabled:       "enabled",
	ChangeVoltageTarget: "voltage-target",
	ChangeCurrentLimit:  "current-limit",
	ChangeOTPEnabled:    "otp-enabled",
	ChangeOTPActive:     "otp-active",
	ChangeOVPEnabled:    "ovp-enabled",
	ChangeOVPActive:     "ovp-active",
	ChangeOVPThreshold:  "ovp-threshold",
	ChangeOCPEnabled:    "ocp-enabled",
	ChangeOCPActive:     "ocp-active",
	ChangeOCPThreshold:  "ocp-threshold",
	ChangeUVCEnabled:    "uvc-enabled",
	ChangeUVCActive:     "uvc-active",
}

func (k ChangeKind) String() string {
	if name, ok := changeKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Change is one decoded device-state notification. Bool carries the payload
// of flag kinds, Value the payload of numeric kinds.
type Change struct {
	Kind  ChangeKind
	Bool  bool
	Value float64
}

// Configurable is a named control surface for a cluster of signals. It owns
// no signals; the device maps group names to member signals separately.
// Subscribers receive decoded state changes on the capture goroutine.
type Configurable struct {
	name string
	hw   hwdriver.Configurer

	mu   sync.RWMutex
	subs []func(Change)
}

func NewConfigurable(name string, hw hwdriver.Configurer) *Configurable {
	return &Configurable{name: name, hw: hw}
}

func (c *Configurable) Name() string { return c.name }

// Subscribe registers fn for every subsequent state change. Callbacks run
// on the capture goroutine; subscribers marshal to their own threads.
func (c *Configurable) Subscribe(fn func(Change)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Configurable) notify(change Change) {
	c.mu.RLock()
	subs := c.subs
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(change)
	}
}

func (c *Configurable) Keys() []hwdriver.ConfigKey { return c.hw.Keys() }

// HasKey reports whether the control surface supports key.
func (c *Configurable) HasKey(key hwdriver.ConfigKey) bool {
	for _, k := range c.hw.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func (c *Configurable) Get(key hwdriver.ConfigKey) (interface{}, error) {
	return c.hw.Get(key)
}

func (c *Configurable) Set(key hwdriver.ConfigKey, value interface{}) error {
	return c.hw.Set(key, value)
}
