// Package device builds the in-memory model of a connected instrument and
// runs its acquisition session.
package device

import (
	"strings"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voltbench/voltbench/pkg/util"
	"github.com/voltbench/voltbench/pkg/voltbench/data"
	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

// Type is the instrument category a device is classified into.
type Type int

const (
	TypeUnknown Type = iota
	TypePowerSupply
	TypeElectronicLoad
	TypeMultimeter
	TypeDemoDevice
)

func (t Type) String() string {
	switch t {
	case TypePowerSupply:
		return "power-supply"
	case TypeElectronicLoad:
		return "electronic-load"
	case TypeMultimeter:
		return "multimeter"
	case TypeDemoDevice:
		return "demo-device"
	default:
		return "unknown"
	}
}

type classEntry struct {
	key     hwdriver.ConfigKey
	devType Type

	// fixedMQ locks the measured quantity of every constructed signal.
	fixedMQ bool

	// sharedTimeBase gives all channels one common time series; the
	// device samples them in lockstep.
	sharedTimeBase bool
}

// classTable is evaluated in priority order; the first capability key
// present in the driver's key set wins.
var classTable = []classEntry{
	{hwdriver.KeyPowerSupply, TypePowerSupply, true, false},
	{hwdriver.KeyElectronicLoad, TypeElectronicLoad, true, true},
	{hwdriver.KeyMultimeter, TypeMultimeter, false, false},
	{hwdriver.KeyDemoDev, TypeDemoDevice, false, false},
}

// Hardware models one instrument: its classified type, typed signals,
// control groups, and the acquisition state machine. The handle itself is
// owned by the backend's registry.
type Hardware struct {
	handle   hwdriver.DeviceHandle
	session  hwdriver.Session
	logger   zerolog.Logger
	writeAPI api.WriteAPI

	devType     Type
	fixedMQ     bool
	sampleLimit int
	timeStart   int64 // ms since epoch

	signals         []*data.Signal
	signalByName    map[string]*data.Signal
	signalByChannel map[*hwdriver.Channel]*data.Signal

	voltageSignal     *data.Signal
	currentSignal     *data.Signal
	measurementSignal *data.Signal

	configurables []*Configurable
	groupSignals  map[string][]*data.Signal

	mu    sync.Mutex
	open  bool
	state State
	oom   bool
	done  chan struct{}
}

type Option func(d *Hardware) error

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Hardware) error {
		d.logger = logger
		return nil
	}
}

func WithMetrics(writeAPI api.WriteAPI) Option {
	return func(d *Hardware) error {
		d.writeAPI = writeAPI
		return nil
	}
}

// WithSampleLimit caps every sample series at n samples. Hitting the cap
// during capture stops acquisition with an out-of-memory report.
func WithSampleLimit(n int) Option {
	return func(d *Hardware) error {
		d.sampleLimit = n
		return nil
	}
}

// New builds the device model for handle: classifies it from the driver's
// capability keys, constructs a signal per analog channel, and partitions
// the signals into control groups.
func New(handle hwdriver.DeviceHandle, session hwdriver.Session, opts ...Option) (*Hardware, error) {
	d := &Hardware{
		handle:          handle,
		session:         session,
		logger:          log.Logger,
		writeAPI:        &util.MockWriteAPI{}, // overwritten with option
		timeStart:       time.Now().UnixMilli(),
		signalByName:    make(map[string]*data.Signal),
		signalByChannel: make(map[*hwdriver.Channel]*data.Signal),
		groupSignals:    make(map[string][]*data.Signal),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	// Classify from the driver's declared capability keys. A device with
	// no known key stays usable as TypeUnknown.
	keys := handle.DriverKeys()
	d.devType = TypeUnknown
	var commonTime *data.AnalogData
	for _, entry := range classTable {
		if _, ok := keys[entry.key]; !ok {
			continue
		}
		d.devType = entry.devType
		d.fixedMQ = entry.fixedMQ
		if entry.sharedTimeBase {
			commonTime = d.newTimeBase()
		}
		break
	}
	if d.devType == TypeUnknown {
		d.logger.Warn().
			Str("device", d.ShortName()).
			Msg("no known capability key, device type unknown")
	}

	for _, ch := range handle.Channels() {
		d.initSignal(ch, commonTime)
	}

	groups := handle.ChannelGroups()
	if len(groups) > 0 {
		for _, group := range groups {
			d.configurables = append(d.configurables, NewConfigurable(group.Name(), group))

			var groupSignals []*data.Signal
			for _, ch := range group.Channels() {
				if sig, ok := d.signalByChannel[ch]; ok {
					groupSignals = append(groupSignals, sig)
				}
			}
			d.groupSignals[group.Name()] = groupSignals
		}
	} else {
		// Every device gets at least one control surface.
		d.configurables = append(d.configurables, NewConfigurable(handle.Model(), handle))
	}

	d.logger.Info().
		Str("device", d.ShortName()).
		Str("type", d.devType.String()).
		Int("signals", len(d.signals)).
		Int("configurables", len(d.configurables)).
		Msg("built device model")

	return d, nil
}

func (d *Hardware) newTimeBase() *data.AnalogData {
	timeBase := data.NewAnalogData()
	timeBase.SetFixedQuantity(true)
	timeBase.SetQuantity(data.QuantityTime)
	timeBase.SetUnit(data.UnitSecond)
	if d.sampleLimit > 0 {
		timeBase.SetSampleLimit(d.sampleLimit)
	}
	return timeBase
}

// initSignal constructs the signal for one hardware channel. Logic channels
// are not supported and skipped; any other unknown channel class breaks the
// driver contract.
func (d *Hardware) initSignal(ch *hwdriver.Channel, commonTime *data.AnalogData) *data.Signal {
	switch ch.Class {
	case hwdriver.ClassLogic:
		// Not supported at the moment
		return nil

	case hwdriver.ClassAnalog:

	default:
		panic("unrecognized channel class")
	}

	sig := data.NewSignal(ch, d.fixedMQ, time.Now().UnixMilli())

	if commonTime != nil {
		sig.SetTimeBase(commonTime)
	} else {
		sig.SetTimeBase(d.newTimeBase())
	}

	analog := data.NewAnalogData()
	if d.sampleLimit > 0 {
		analog.SetSampleLimit(d.sampleLimit)
	}

	// Quantity and unit follow the channel naming convention. Unmatched
	// names keep an unset quantity.
	name := ch.Name
	switch {
	case strings.HasPrefix(name, "V"):
		analog.SetFixedQuantity(d.fixedMQ)
		analog.SetQuantity(data.QuantityVoltage)
		analog.SetUnit(data.UnitVolt)
	case strings.HasPrefix(name, "I"):
		analog.SetFixedQuantity(d.fixedMQ)
		analog.SetQuantity(data.QuantityCurrent)
		analog.SetUnit(data.UnitAmpere)
	case strings.HasPrefix(name, "F"):
		analog.SetFixedQuantity(d.fixedMQ)
		analog.SetQuantity(data.QuantityFrequency)
		analog.SetUnit(data.UnitHertz)
	case name == "P1":
		// Aggregate measurement channel, quantity stays unset.
		analog.SetFixedQuantity(d.fixedMQ)
	case strings.HasPrefix(name, "A"):
		// Auxiliary analog input, read as a voltage.
		analog.SetFixedQuantity(d.fixedMQ)
		analog.SetQuantity(data.QuantityVoltage)
		analog.SetUnit(data.UnitVolt)
	}

	sig.SetAnalogData(analog)

	d.logger.Debug().
		Str("signal", name).
		Str("quantity", analog.Quantity().String()).
		Msg("init signal")

	d.signals = append(d.signals, sig)
	d.signalByName[name] = sig
	d.signalByChannel[ch] = sig

	// The first match in enumeration order becomes the canonical accessor;
	// later duplicates are ignored.
	switch {
	case strings.HasPrefix(name, "V") && d.voltageSignal == nil:
		d.voltageSignal = sig
	case strings.HasPrefix(name, "I") && d.currentSignal == nil:
		d.currentSignal = sig
	case name == "P1" && d.measurementSignal == nil:
		d.measurementSignal = sig
	case name == "A1" && d.measurementSignal == nil:
		d.measurementSignal = sig
	}

	return sig
}

func (d *Hardware) Type() Type { return d.devType }

func (d *Hardware) Handle() hwdriver.DeviceHandle { return d.handle }

// VoltageSignal returns the first voltage-prefixed signal, if any.
func (d *Hardware) VoltageSignal() *data.Signal { return d.voltageSignal }

// CurrentSignal returns the first current-prefixed signal, if any.
func (d *Hardware) CurrentSignal() *data.Signal { return d.currentSignal }

// MeasurementSignal returns the first generic measurement signal ("P1" or
// "A1"), if any.
func (d *Hardware) MeasurementSignal() *data.Signal { return d.measurementSignal }

func (d *Hardware) AllSignals() []*data.Signal { return d.signals }

func (d *Hardware) SignalByName(name string) *data.Signal { return d.signalByName[name] }

func (d *Hardware) Configurables() []*Configurable { return d.configurables }

// ChannelGroupSignals maps each control-group name to its member signals in
// channel-enumeration order.
func (d *Hardware) ChannelGroupSignals() map[string][]*data.Signal { return d.groupSignals }

// FullName joins all available identity parts of the underlying handle.
func (d *Hardware) FullName() string {
	parts := nameParts(
		d.handle.Vendor(),
		d.handle.Model(),
		d.handle.Version(),
		d.handle.SerialNumber(),
	)
	if connID := d.handle.ConnectionID(); connID != "" {
		parts = append(parts, "("+connID+")")
	}
	return strings.Join(parts, " ")
}

// ShortName is the vendor/model pair plus the connection ID.
func (d *Hardware) ShortName() string {
	parts := nameParts(d.handle.Vendor(), d.handle.Model())
	if connID := d.handle.ConnectionID(); connID != "" {
		parts = append(parts, "("+connID+")")
	}
	return strings.Join(parts, " ")
}

func nameParts(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
