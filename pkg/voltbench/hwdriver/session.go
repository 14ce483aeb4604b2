package hwdriver

// PacketKind discriminates datafeed packets. Kinds the core does not handle
// are skipped, so backends may add new ones without breaking consumers.
type PacketKind int

const (
	PacketAnalog PacketKind = iota
	PacketMeta
	PacketFrameBegin
	PacketFrameEnd
)

type Packet interface {
	Kind() PacketKind
}

// AnalogPacket carries one burst of samples for one or more analog channels.
// Channels sampled together in one packet share a common acquisition time.
type AnalogPacket struct {
	// ChannelNames and Samples are parallel: Samples[i] holds the burst for
	// ChannelNames[i]. All bursts in one packet have equal length.
	ChannelNames []string
	Samples      [][]float64
}

func (p *AnalogPacket) Kind() PacketKind { return PacketAnalog }

// ConfigEntry is one (key, value) pair of a metadata packet. Value is bool
// for flag keys and float64 for numeric keys.
type ConfigEntry struct {
	Key   ConfigKey
	Value interface{}
}

// MetaPacket carries device-state changes reported by the instrument, e.g.
// a protection trip or a front-panel setpoint change.
type MetaPacket struct {
	Config []ConfigEntry
}

func (p *MetaPacket) Kind() PacketKind { return PacketMeta }

type FrameBeginPacket struct{}

func (p *FrameBeginPacket) Kind() PacketKind { return PacketFrameBegin }

type FrameEndPacket struct{}

func (p *FrameEndPacket) Kind() PacketKind { return PacketFrameEnd }

// DatafeedCallback is invoked on the capture goroutine for every packet the
// session receives from a registered device.
type DatafeedCallback func(handle DeviceHandle, packet Packet)

// Session coordinates live capture against one or more device handles.
// Run blocks until Stop is called or the backend fails.
type Session interface {
	AddDevice(handle DeviceHandle) error
	RemoveDevices()
	AddDatafeedCallback(cb DatafeedCallback)
	RemoveDatafeedCallbacks()
	Start() error
	Run() error
	Stop()
}
