// Package data holds the typed time-series containers signals append into
// during acquisition.
package data

// Quantity is the measured physical quantity of a time series.
type Quantity int

const (
	QuantityUnset Quantity = iota
	QuantityVoltage
	QuantityCurrent
	QuantityFrequency
	QuantityTime
)

func (q Quantity) String() string {
	switch q {
	case QuantityVoltage:
		return "voltage"
	case QuantityCurrent:
		return "current"
	case QuantityFrequency:
		return "frequency"
	case QuantityTime:
		return "time"
	default:
		return "unset"
	}
}

// Unit is the measurement unit of a time series.
type Unit int

const (
	UnitUnset Unit = iota
	UnitVolt
	UnitAmpere
	UnitHertz
	UnitSecond
)

func (u Unit) String() string {
	switch u {
	case UnitVolt:
		return "V"
	case UnitAmpere:
		return "A"
	case UnitHertz:
		return "Hz"
	case UnitSecond:
		return "s"
	default:
		return ""
	}
}
