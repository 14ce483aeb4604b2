// Package hwdriver defines the narrow surface the acquisition core expects
// from an instrument driver backend: capability keys, channel enumeration,
// open/close, and a capture session delivering sample and metadata packets.
package hwdriver

// ConfigKey identifies one configuration capability of a driver, device or
// channel group. The set is closed; backends must not invent keys.
type ConfigKey int

const (
	KeyUnknown ConfigKey = iota

	// Driver capability keys used for device classification.
	KeyPowerSupply
	KeyElectronicLoad
	KeyMultimeter
	KeyDemoDev

	// Device and channel-group configuration keys.
	KeyEnabled
	KeyVoltageTarget
	KeyCurrentLimit
	KeyOTPEnabled
	KeyOTPActive
	KeyOVPEnabled
	KeyOVPActive
	KeyOVPThreshold
	KeyOCPEnabled
	KeyOCPActive
	KeyOCPThreshold
	KeyUVCEnabled
	KeyUVCActive
)

var keyNames = map[ConfigKey]string{
	KeyUnknown:        "unknown",
	KeyPowerSupply:    "power-supply",
	KeyElectronicLoad: "electronic-load",
	KeyMultimeter:     "multimeter",
	KeyDemoDev:        "demo-dev",
	KeyEnabled:        "enabled",
	KeyVoltageTarget:  "voltage-target",
	KeyCurrentLimit:   "current-limit",
	KeyOTPEnabled:     "otp-enabled",
	KeyOTPActive:      "otp-active",
	KeyOVPEnabled:     "ovp-enabled",
	KeyOVPActive:      "ovp-active",
	KeyOVPThreshold:   "ovp-threshold",
	KeyOCPEnabled:     "ocp-enabled",
	KeyOCPActive:      "ocp-active",
	KeyOCPThreshold:   "ocp-threshold",
	KeyUVCEnabled:     "uvc-enabled",
	KeyUVCActive:      "uvc-active",
}

func (k ConfigKey) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// ChannelClass distinguishes the two channel kinds drivers are allowed to
// report. Anything else violates the driver contract.
type ChannelClass int

const (
	ClassAnalog ChannelClass = iota
	ClassLogic
)

// Channel is one physical measurement line as enumerated by the driver.
type Channel struct {
	Name  string
	Class ChannelClass
	Index int
}

// Configurer is a gettable/settable configuration surface. Both a whole
// device handle and each of its channel groups expose one.
type Configurer interface {
	Keys() []ConfigKey
	Get(key ConfigKey) (interface{}, error)
	Set(key ConfigKey, value interface{}) error
}

// ChannelGroup is a named cluster of channels sharing one configuration
// surface, e.g. output "1" of a dual-channel supply.
type ChannelGroup interface {
	Configurer
	Name() string
	Channels() []*Channel
}

// DeviceHandle represents one discovered instrument. It is owned by the
// backend's registry; the acquisition core only references it.
type DeviceHandle interface {
	Configurer

	Vendor() string
	Model() string
	Version() string
	SerialNumber() string
	ConnectionID() string

	// DriverKeys returns the driver's declared capability key set.
	DriverKeys() map[ConfigKey]struct{}

	Channels() []*Channel
	ChannelGroups() []ChannelGroup

	Open() error
	Close() error
}
