// Package demo is an instrument backend that needs no hardware. It models a
// small bench instrument with configurable channels and feeds synthetic
// sample bursts and metadata through the regular session surface.
package demo

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

// Waveform selects the synthetic sample shape of one demo channel.
type Waveform string

const (
	WaveformSine     Waveform = "sine"
	WaveformSawtooth Waveform = "sawtooth"
	WaveformSquare   Waveform = "square"
	WaveformNoise    Waveform = "noise"
)

// ChannelSpec describes one demo channel. Logic channels generate no data
// but are still enumerated, which mirrors instruments whose logic lines the
// application skips.
type ChannelSpec struct {
	Name      string   `yaml:"name"`
	Logic     bool     `yaml:"logic"`
	Waveform  Waveform `yaml:"waveform"`
	Amplitude float64  `yaml:"amplitude"`
	Offset    float64  `yaml:"offset"`
	Frequency float64  `yaml:"frequency"`
}

// GroupSpec names a channel group and its member channels.
type GroupSpec struct {
	Name     string   `yaml:"name"`
	Channels []string `yaml:"channels"`
}

// Config is the full shape of one demo instrument.
type Config struct {
	Vendor       string        `yaml:"vendor"`
	Model        string        `yaml:"model"`
	Serial       string        `yaml:"serial"`
	ConnectionID string        `yaml:"connection_id"`
	Capability   string        `yaml:"capability"` // power-supply, electronic-load, multimeter, demo-dev
	Channels     []ChannelSpec `yaml:"channels"`
	Groups       []GroupSpec   `yaml:"groups"`
}

var capabilityKeys = map[string]hwdriver.ConfigKey{
	"power-supply":    hwdriver.KeyPowerSupply,
	"electronic-load": hwdriver.KeyElectronicLoad,
	"multimeter":      hwdriver.KeyMultimeter,
	"demo-dev":        hwdriver.KeyDemoDev,
}

// configStore is the shared Get/Set surface of a demo handle and its
// channel groups.
type configStore struct {
	mu     sync.Mutex
	values map[hwdriver.ConfigKey]interface{}
	onSet  func(key hwdriver.ConfigKey, value interface{})
}

func newConfigStore() *configStore {
	return &configStore{values: map[hwdriver.ConfigKey]interface{}{
		hwdriver.KeyEnabled:       false,
		hwdriver.KeyVoltageTarget: 0.0,
		hwdriver.KeyCurrentLimit:  0.0,
		hwdriver.KeyOVPEnabled:    false,
		hwdriver.KeyOVPThreshold:  0.0,
		hwdriver.KeyOCPEnabled:    false,
		hwdriver.KeyOCPThreshold:  0.0,
	}}
}

func (s *configStore) setOnSet(fn func(key hwdriver.ConfigKey, value interface{})) {
	s.mu.Lock()
	s.onSet = fn
	s.mu.Unlock()
}

func (s *configStore) Keys() []hwdriver.ConfigKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]hwdriver.ConfigKey, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}

func (s *configStore) Get(key hwdriver.ConfigKey) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("unsupported config key %s", key)
	}
	return value, nil
}

func (s *configStore) Set(key hwdriver.ConfigKey, value interface{}) error {
	s.mu.Lock()
	if _, ok := s.values[key]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("unsupported config key %s", key)
	}
	s.values[key] = value
	onSet := s.onSet
	s.mu.Unlock()
	if onSet != nil {
		onSet(key, value)
	}
	return nil
}

type channelGroup struct {
	*configStore
	name     string
	channels []*hwdriver.Channel
}

func (g *channelGroup) Name() string                  { return g.name }
func (g *channelGroup) Channels() []*hwdriver.Channel { return g.channels }

// Handle is one demo instrument.
type Handle struct {
	*configStore
	cfg      Config
	key      hwdriver.ConfigKey
	channels []*hwdriver.Channel
	groups   []hwdriver.ChannelGroup
	specs    map[string]ChannelSpec

	mu   sync.Mutex
	open bool
	tick uint64
}

// NewHandle builds a demo instrument from cfg. Unknown capability names
// leave the driver key set empty; the device then classifies as unknown.
func NewHandle(cfg Config) *Handle {
	h := &Handle{
		configStore: newConfigStore(),
		cfg:         cfg,
		key:         capabilityKeys[cfg.Capability],
		specs:       make(map[string]ChannelSpec),
	}

	byName := make(map[string]*hwdriver.Channel)
	for i, spec := range cfg.Channels {
		class := hwdriver.ClassAnalog
		if spec.Logic {
			class = hwdriver.ClassLogic
		}
		ch := &hwdriver.Channel{Name: spec.Name, Class: class, Index: i}
		h.channels = append(h.channels, ch)
		h.specs[spec.Name] = spec
		byName[spec.Name] = ch
	}

	for _, groupSpec := range cfg.Groups {
		group := &channelGroup{configStore: newConfigStore(), name: groupSpec.Name}
		for _, name := range groupSpec.Channels {
			if ch, ok := byName[name]; ok {
				group.channels = append(group.channels, ch)
			}
		}
		h.groups = append(h.groups, group)
	}

	return h
}

func (h *Handle) Vendor() string       { return h.cfg.Vendor }
func (h *Handle) Model() string        { return h.cfg.Model }
func (h *Handle) Version() string      { return "" }
func (h *Handle) SerialNumber() string { return h.cfg.Serial }
func (h *Handle) ConnectionID() string { return h.cfg.ConnectionID }

func (h *Handle) DriverKeys() map[hwdriver.ConfigKey]struct{} {
	keys := make(map[hwdriver.ConfigKey]struct{})
	if h.key != hwdriver.KeyUnknown {
		keys[h.key] = struct{}{}
	}
	return keys
}

func (h *Handle) Channels() []*hwdriver.Channel          { return h.channels }
func (h *Handle) ChannelGroups() []hwdriver.ChannelGroup { return h.groups }

func (h *Handle) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.open {
		return fmt.Errorf("demo device %s already open", h.cfg.Model)
	}
	h.open = true
	return nil
}

func (h *Handle) Close() error {
	h.mu.Lock()
	h.open = false
	h.mu.Unlock()
	return nil
}

// burst generates the next burst of n samples for every analog channel.
func (h *Handle) burst(n int) *hwdriver.AnalogPacket {
	h.mu.Lock()
	tick := h.tick
	h.tick += uint64(n)
	h.mu.Unlock()

	packet := &hwdriver.AnalogPacket{}
	for _, ch := range h.channels {
		if ch.Class != hwdriver.ClassAnalog {
			continue
		}
		spec := h.specs[ch.Name]
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = sample(spec, tick+uint64(i))
		}
		packet.ChannelNames = append(packet.ChannelNames, ch.Name)
		packet.Samples = append(packet.Samples, samples)
	}
	return packet
}

func sample(spec ChannelSpec, tick uint64) float64 {
	freq := spec.Frequency
	if freq == 0 {
		freq = 1.0
	}
	phase := math.Mod(float64(tick)*freq/1000.0, 1.0)

	var v float64
	switch spec.Waveform {
	case WaveformSawtooth:
		v = 2.0*phase - 1.0
	case WaveformSquare:
		v = 1.0
		if phase >= 0.5 {
			v = -1.0
		}
	case WaveformNoise:
		v = rand.Float64()*2.0 - 1.0
	default:
		v = math.Sin(2.0 * math.Pi * phase)
	}
	return spec.Offset + spec.Amplitude*v
}
