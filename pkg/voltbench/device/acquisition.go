package device

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"

	"github.com/voltbench/voltbench/pkg/voltbench/data"
	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver"
)

// State of the acquisition engine.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// ErrOpenFailed wraps backend failures to open the hardware handle.
var ErrOpenFailed = errors.New("could not open device")

// ErrorHandler receives capture failures. It is invoked on the capture
// goroutine; callers marshal to their own threads.
type ErrorHandler func(msg string)

// Open opens the hardware handle, registers the device with the capture
// session, and starts the capture goroutine. An already open device is
// closed and re-opened. Open failures are returned synchronously; start,
// run and out-of-memory failures are reported through errorHandler from the
// capture goroutine. Open and Close must not be called concurrently with
// each other.
func (d *Hardware) Open(errorHandler ErrorHandler) error {
	if errorHandler == nil {
		panic("nil error handler")
	}

	if d.isOpen() {
		d.Close()
	}

	if err := d.handle.Open(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrOpenFailed, d.ShortName(), err)
	}

	if err := d.session.AddDevice(d.handle); err != nil {
		d.handle.Close()
		return fmt.Errorf("%w %s: %v", ErrOpenFailed, d.ShortName(), err)
	}

	d.session.AddDatafeedCallback(d.dataFeedIn)

	d.mu.Lock()
	d.open = true
	d.oom = false
	d.state = Running
	d.done = make(chan struct{})
	d.mu.Unlock()

	// Wait until the capture goroutine has attempted session start, so a
	// following Close always finds a stoppable session.
	started := make(chan struct{})
	go d.captureRun(errorHandler, started)
	<-started

	d.logger.Info().Str("device", d.ShortName()).Msg("acquisition started")

	return nil
}

// Close tears down an open capture: removes the datafeed callback, stops
// the session, and blocks until the capture goroutine has exited, so no
// callback can fire afterwards. Safe on a never-opened device and safe to
// call twice.
func (d *Hardware) Close() {
	if !d.isOpen() {
		return
	}

	d.session.RemoveDatafeedCallbacks()

	d.mu.Lock()
	stillRunning := d.state != Stopped
	d.state = Stopped
	done := d.done
	d.mu.Unlock()

	if stillRunning {
		d.session.Stop()
	}

	// Join barrier: after this no in-flight callback touches the device.
	if done != nil {
		<-done
	}

	d.session.RemoveDevices()
	d.handle.Close()

	d.mu.Lock()
	d.open = false
	d.mu.Unlock()

	d.logger.Info().Str("device", d.ShortName()).Msg("acquisition stopped")
}

func (d *Hardware) State() State {
	d.mu.Lock()
	s := d.state
	d.mu.Unlock()
	return s
}

func (d *Hardware) IsOpen() bool { return d.isOpen() }

func (d *Hardware) isOpen() bool {
	d.mu.Lock()
	open := d.open
	d.mu.Unlock()
	return open
}

func (d *Hardware) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// captureRun is the capture goroutine: it starts the session, blocks in Run
// until the session stops or fails, then reclaims unused sample memory and
// reports a deferred out-of-memory condition, if any.
func (d *Hardware) captureRun(errorHandler ErrorHandler, started chan struct{}) {
	defer close(d.done)

	if err := d.session.Start(); err != nil {
		close(started)
		errorHandler(fmt.Sprintf("starting capture on %s: %v", d.ShortName(), err))
		d.setState(Stopped)
		return
	}
	close(started)

	d.setState(Running)

	if err := d.session.Run(); err != nil {
		errorHandler(fmt.Sprintf("capture on %s failed: %v", d.ShortName(), err))
		d.setState(Stopped)
		return
	}

	d.setState(Stopped)

	d.freeUnusedMemory()

	if d.outOfMemory() {
		errorHandler("out of memory, acquisition stopped")
	}
}

// freeUnusedMemory compacts every sample series and forces a GC pass. Runs
// once per capture, after the loop has ended.
func (d *Hardware) freeUnusedMemory() {
	compacted := make(map[*data.AnalogData]struct{})
	for _, sig := range d.signals {
		for _, series := range []*data.AnalogData{sig.AnalogData(), sig.TimeBase()} {
			if _, ok := compacted[series]; ok {
				continue
			}
			compacted[series] = struct{}{}
			series.Compact()
		}
	}
	runtime.GC()
}

func (d *Hardware) flagOutOfMemory() {
	d.mu.Lock()
	d.oom = true
	d.mu.Unlock()
}

func (d *Hardware) outOfMemory() bool {
	d.mu.Lock()
	oom := d.oom
	d.mu.Unlock()
	return oom
}

// dataFeedIn demultiplexes one datafeed packet. Runs on the capture
// goroutine for every packet the session delivers.
func (d *Hardware) dataFeedIn(handle hwdriver.DeviceHandle, packet hwdriver.Packet) {
	if handle != d.handle {
		return
	}

	switch p := packet.(type) {
	case *hwdriver.AnalogPacket:
		d.feedInAnalog(p)
	case *hwdriver.MetaPacket:
		d.feedInMeta(p)
	default:
		// Frame markers and future packet kinds are skipped.
	}
}

// feedInAnalog appends one sample burst to the addressed signals. A shared
// time base is appended once per packet, not once per member signal. On a
// full series the engine flags out-of-memory, finishes the burst for the
// remaining channels, and stops the session; the condition is reported once
// after the capture loop ends.
func (d *Hardware) feedInAnalog(p *hwdriver.AnalogPacket) {
	start := time.Now()
	stamp := float64(start.UnixMilli()-d.timeStart) / 1000.0

	appended := 0
	full := false
	seenTimeBases := make(map[*data.AnalogData]struct{})

	for i, name := range p.ChannelNames {
		sig := d.signalByName[name]
		if sig == nil || i >= len(p.Samples) {
			continue
		}
		burst := p.Samples[i]

		for _, v := range burst {
			if err := sig.Append(v); err != nil {
				if errors.Is(err, data.ErrSampleLimit) {
					full = true
				}
				break
			}
			appended++
		}

		timeBase := sig.TimeBase()
		if _, ok := seenTimeBases[timeBase]; !ok {
			seenTimeBases[timeBase] = struct{}{}
			for range burst {
				if err := timeBase.Append(stamp); err != nil {
					break
				}
			}
		}
	}

	if full {
		d.flagOutOfMemory()
		d.session.Stop()
		d.setState(Stopped)
	}

	go d.writeAPI.WritePoint(influxdb2.NewPoint("acquisition.samples",
		map[string]string{
			"device": d.ShortName(),
			"type":   d.devType.String(),
		},
		map[string]interface{}{
			"channels":         len(p.ChannelNames),
			"samples_appended": appended,
			"duration":         time.Since(start).Microseconds(),
		}, start))
}
