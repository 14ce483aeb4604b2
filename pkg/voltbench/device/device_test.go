package device

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/voltbench/voltbench/pkg/voltbench/data"
	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

func mustNew(t *testing.T, handle hwdriver.DeviceHandle, session hwdriver.Session, opts ...Option) *Hardware {
	t.Helper()
	opts = append(opts, WithLogger(zerolog.Nop()))
	d, err := New(handle, session, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return d
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name        string
		key         hwdriver.ConfigKey
		wantType    Type
		wantFixedMQ bool
	}{
		{"power supply", hwdriver.KeyPowerSupply, TypePowerSupply, true},
		{"electronic load", hwdriver.KeyElectronicLoad, TypeElectronicLoad, true},
		{"multimeter", hwdriver.KeyMultimeter, TypeMultimeter, false},
		{"demo device", hwdriver.KeyDemoDev, TypeDemoDevice, false},
		{"no known key", hwdriver.KeyUnknown, TypeUnknown, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustNew(t, newStubHandle(tc.key, "V1", "I1"), newStubSession())
			if d.Type() != tc.wantType {
				t.Errorf("Type() = %s, want %s", d.Type(), tc.wantType)
			}
			for _, sig := range d.AllSignals() {
				if sig.FixedQuantity() != tc.wantFixedMQ {
					t.Errorf("signal %s FixedQuantity() = %v, want %v",
						sig.Name(), sig.FixedQuantity(), tc.wantFixedMQ)
				}
			}
		})
	}
}

func TestUnknownDeviceStillUsable(t *testing.T) {
	d := mustNew(t, newStubHandle(hwdriver.KeyUnknown, "V1"), newStubSession())
	if d.Type() != TypeUnknown {
		t.Fatalf("Type() = %s, want unknown", d.Type())
	}
	if len(d.AllSignals()) != 1 {
		t.Errorf("AllSignals() = %d signals, want 1", len(d.AllSignals()))
	}
	if len(d.Configurables()) != 1 {
		t.Errorf("Configurables() = %d, want 1", len(d.Configurables()))
	}
}

func TestSignalQuantityMapping(t *testing.T) {
	cases := []struct {
		channel      string
		wantQuantity data.Quantity
		wantUnit     data.Unit
	}{
		{"V1", data.QuantityVoltage, data.UnitVolt},
		{"V2", data.QuantityVoltage, data.UnitVolt},
		{"I1", data.QuantityCurrent, data.UnitAmpere},
		{"F1", data.QuantityFrequency, data.UnitHertz},
		{"P1", data.QuantityUnset, data.UnitUnset},
		{"A1", data.QuantityVoltage, data.UnitVolt},
		{"A3", data.QuantityVoltage, data.UnitVolt},
		{"X1", data.QuantityUnset, data.UnitUnset},
		{"CH1", data.QuantityUnset, data.UnitUnset},
	}

	for _, tc := range cases {
		t.Run(tc.channel, func(t *testing.T) {
			d := mustNew(t, newStubHandle(hwdriver.KeyMultimeter, tc.channel), newStubSession())
			sig := d.SignalByName(tc.channel)
			if sig == nil {
				t.Fatalf("SignalByName(%q) = nil", tc.channel)
			}
			if sig.Quantity() != tc.wantQuantity {
				t.Errorf("Quantity() = %s, want %s", sig.Quantity(), tc.wantQuantity)
			}
			if sig.Unit() != tc.wantUnit {
				t.Errorf("Unit() = %q, want %q", sig.Unit(), tc.wantUnit)
			}
		})
	}
}

func TestFirstWinsAccessors(t *testing.T) {
	d := mustNew(t, newStubHandle(hwdriver.KeyPowerSupply, "V1", "V2", "I1", "I2", "P1", "A1"), newStubSession())

	if got := d.VoltageSignal(); got == nil || got.Name() != "V1" {
		t.Errorf("VoltageSignal() = %v, want V1", got)
	}
	if got := d.CurrentSignal(); got == nil || got.Name() != "I1" {
		t.Errorf("CurrentSignal() = %v, want I1", got)
	}
	if got := d.MeasurementSignal(); got == nil || got.Name() != "P1" {
		t.Errorf("MeasurementSignal() = %v, want P1", got)
	}
}

func TestMeasurementAccessorFallsBackToA1(t *testing.T) {
	d := mustNew(t, newStubHandle(hwdriver.KeyMultimeter, "A1"), newStubSession())
	if got := d.MeasurementSignal(); got == nil || got.Name() != "A1" {
		t.Errorf("MeasurementSignal() = %v, want A1", got)
	}
}

func TestLogicChannelsSkipped(t *testing.T) {
	h := newStubHandle(hwdriver.KeyDemoDev, "V1")
	h.chans = append(h.chans, &hwdriver.Channel{Name: "D0", Class: hwdriver.ClassLogic, Index: 1})
	d := mustNew(t, h, newStubSession())

	if len(d.AllSignals()) != 1 {
		t.Fatalf("AllSignals() = %d signals, want 1", len(d.AllSignals()))
	}
	if d.SignalByName("D0") != nil {
		t.Error("logic channel D0 got a signal")
	}
}

func TestUnknownChannelClassPanics(t *testing.T) {
	h := newStubHandle(hwdriver.KeyDemoDev)
	h.chans = append(h.chans, &hwdriver.Channel{Name: "Z1", Class: hwdriver.ChannelClass(99)})

	defer func() {
		if recover() == nil {
			t.Error("New() did not panic on unrecognized channel class")
		}
	}()
	mustNew(t, h, newStubSession())
}

func TestDefaultConfigurable(t *testing.T) {
	h := newStubHandle(hwdriver.KeyMultimeter, "P1")
	d := mustNew(t, h, newStubSession())

	if len(d.Configurables()) != 1 {
		t.Fatalf("Configurables() = %d, want 1", len(d.Configurables()))
	}
	if got := d.Configurables()[0].Name(); got != h.Model() {
		t.Errorf("default configurable name = %q, want %q", got, h.Model())
	}
	if len(d.ChannelGroupSignals()) != 0 {
		t.Errorf("ChannelGroupSignals() = %d entries, want 0", len(d.ChannelGroupSignals()))
	}
}

func TestGroupPartitioning(t *testing.T) {
	h := newStubHandle(hwdriver.KeyPowerSupply, "V1", "I1", "V2", "I2")
	h.groups = []hwdriver.ChannelGroup{
		&stubGroup{name: "1", channels: []*hwdriver.Channel{h.chans[0], h.chans[1]}},
		&stubGroup{name: "2", channels: []*hwdriver.Channel{h.chans[2], h.chans[3]}},
	}
	d := mustNew(t, h, newStubSession())

	if len(d.Configurables()) != 2 {
		t.Fatalf("Configurables() = %d, want 2", len(d.Configurables()))
	}

	union := make(map[string]bool)
	for name, sigs := range d.ChannelGroupSignals() {
		for _, sig := range sigs {
			union[sig.Name()] = true
		}
		if len(sigs) != 2 {
			t.Errorf("group %q has %d signals, want 2", name, len(sigs))
		}
	}
	for _, sig := range d.AllSignals() {
		if !union[sig.Name()] {
			t.Errorf("signal %s not covered by any group", sig.Name())
		}
	}
}

func TestGroupSkipsUnbuiltChannels(t *testing.T) {
	h := newStubHandle(hwdriver.KeyDemoDev, "V1")
	logic := &hwdriver.Channel{Name: "D0", Class: hwdriver.ClassLogic, Index: 1}
	h.chans = append(h.chans, logic)
	h.groups = []hwdriver.ChannelGroup{
		&stubGroup{name: "1", channels: []*hwdriver.Channel{h.chans[0], logic}},
	}
	d := mustNew(t, h, newStubSession())

	sigs := d.ChannelGroupSignals()["1"]
	if len(sigs) != 1 || sigs[0].Name() != "V1" {
		t.Errorf("group 1 = %v, want only V1", sigs)
	}
}

func TestElectronicLoadSharedTimeBase(t *testing.T) {
	h := newStubHandle(hwdriver.KeyElectronicLoad, "V1", "I1")
	h.groups = []hwdriver.ChannelGroup{
		&stubGroup{name: "1", channels: []*hwdriver.Channel{h.chans[0], h.chans[1]}},
	}
	d := mustNew(t, h, newStubSession())

	if len(d.Configurables()) != 1 || d.Configurables()[0].Name() != "1" {
		t.Fatalf("want exactly one configurable named 1, got %d", len(d.Configurables()))
	}

	sigs := d.ChannelGroupSignals()["1"]
	if len(sigs) != 2 || sigs[0].Name() != "V1" || sigs[1].Name() != "I1" {
		t.Fatalf("group 1 signals wrong: %v", sigs)
	}

	if !sigs[0].SharesTimeBase(sigs[1]) {
		t.Error("electronic load channels do not share a time base")
	}
	tb := sigs[0].TimeBase()
	if tb.Quantity() != data.QuantityTime || tb.Unit() != data.UnitSecond || !tb.FixedQuantity() {
		t.Errorf("time base tagged %s/%s fixed=%v, want time/s fixed",
			tb.Quantity(), tb.Unit(), tb.FixedQuantity())
	}
}

func TestPrivateTimeBasePerChannel(t *testing.T) {
	d := mustNew(t, newStubHandle(hwdriver.KeyPowerSupply, "V1", "I1"), newStubSession())
	sigs := d.AllSignals()
	if sigs[0].SharesTimeBase(sigs[1]) {
		t.Error("power supply channels share a time base, want private ones")
	}
}

func TestNames(t *testing.T) {
	h := newStubHandle(hwdriver.KeyPowerSupply, "V1")
	h.vendor = "ACME"
	h.model = "PSU-1"
	d := mustNew(t, h, newStubSession())

	if got := d.FullName(); got != "ACME PSU-1" {
		t.Errorf("FullName() = %q", got)
	}
	if got := d.ShortName(); got != "ACME PSU-1" {
		t.Errorf("ShortName() = %q", got)
	}
}
