// Package voltbench ties the acquisition core together: it owns the built
// device models and runs their capture sessions plus the status server.
package voltbench

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/voltbench/voltbench/pkg/util"
	"github.com/voltbench/voltbench/pkg/voltbench/device"
	"github.com/voltbench/voltbench/pkg/voltbench/status"
)

type Workbench struct {
	devices      []*device.Hardware
	writeAPI     api.WriteAPI
	statusServer *status.Server
	logger       zerolog.Logger

	cancel context.CancelFunc
	ctx    context.Context
}

type WorkbenchOption func(w *Workbench) error

func WithInfluxDB(influxClient api.WriteAPI) WorkbenchOption {
	return func(w *Workbench) error {
		w.writeAPI = influxClient
		return nil
	}
}

func WithStatusServer(server *status.Server) WorkbenchOption {
	return func(w *Workbench) error {
		w.statusServer = server
		return nil
	}
}

func WithLogger(logger zerolog.Logger) WorkbenchOption {
	return func(w *Workbench) error {
		w.logger = logger
		return nil
	}
}

func NewWorkbench(devices []*device.Hardware, opts ...WorkbenchOption) (*Workbench, error) {
	w := &Workbench{
		devices:  devices,
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	if len(w.devices) == 0 {
		return nil, fmt.Errorf("must supply at least one device")
	}

	return w, nil
}

func (w *Workbench) Devices() []*device.Hardware { return w.devices }

// Start opens every device and blocks until the context is cancelled or the
// status server fails. Capture failures reported by a device are logged;
// the device stays stopped and is not reopened automatically.
func (w *Workbench) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	w.ctx, w.cancel = context.WithCancel(ctx)

	for _, dev := range w.devices {
		thisDev := dev
		if err := thisDev.Open(func(msg string) {
			w.logger.Error().
				Str("device", thisDev.ShortName()).
				Str("error", msg).
				Msg("capture failure")
		}); err != nil {
			w.closeDevices()
			return err
		}

		w.logger.Info().
			Str("device", thisDev.ShortName()).
			Str("type", thisDev.Type().String()).
			Msg("device open")
	}

	if w.statusServer != nil {
		eg.Go(func() error {
			return w.statusServer.Run(w.ctx)
		})
	}

	eg.Go(func() error {
		<-w.ctx.Done()
		return w.ctx.Err()
	})

	return eg.Wait()
}

func (w *Workbench) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.statusServer != nil {
		w.statusServer.Stop(context.TODO())
	}
	w.closeDevices()
	return nil
}

func (w *Workbench) closeDevices() {
	for _, dev := range w.devices {
		dev.Close()
	}
}
