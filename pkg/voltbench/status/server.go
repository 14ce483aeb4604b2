// Package status serves a read-only HTTP view of the device models and
// their live sample series, for display collaborators outside the core.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voltbench/voltbench/pkg/voltbench/data"
	"github.com/voltbench/voltbench/pkg/voltbench/device"
)

const defaultTail = 256

type Server struct {
	port         int
	srv          *http.Server
	devices      []*device.Hardware
	upgrader     websocket.Upgrader
	pushInterval time.Duration
	logger       zerolog.Logger
}

func NewServer(port int, devices []*device.Hardware, pushInterval time.Duration) *Server {
	if pushInterval <= 0 {
		pushInterval = 500 * time.Millisecond
	}
	return &Server{
		port:         port,
		srv:          &http.Server{Addr: fmt.Sprintf(":%d", port)},
		devices:      devices,
		pushInterval: pushInterval,
		logger:       log.Logger,
	}
}

type signalSummary struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Unit     string  `json:"unit"`
	Fixed    bool    `json:"fixed_quantity"`
	Count    int     `json:"sample_count"`
	Last     float64 `json:"last,omitempty"`
}

type deviceSummary struct {
	Name          string              `json:"name"`
	Type          string              `json:"type"`
	State         string              `json:"state"`
	Signals       []signalSummary     `json:"signals"`
	Configurables []string            `json:"configurables"`
	Groups        map[string][]string `json:"groups"`
}

type signalDetail struct {
	signalSummary
	Stats   data.SeriesStats `json:"stats"`
	Samples []float64        `json:"samples"`
	Times   []float64        `json:"times"`
}

func summarize(sig *data.Signal) signalSummary {
	s := signalSummary{
		Name:     sig.Name(),
		Quantity: sig.Quantity().String(),
		Unit:     sig.Unit().String(),
		Fixed:    sig.FixedQuantity(),
		Count:    sig.AnalogData().SampleCount(),
	}
	if last, ok := sig.AnalogData().Last(); ok {
		s.Last = last
	}
	return s
}

func (s *Server) deviceByName(name string) *device.Hardware {
	for _, dev := range s.devices {
		if dev.Handle().Model() == name {
			return dev
		}
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) Run(ctx context.Context) error {
	s.srv.Handler = s.routes(ctx)

	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) routes(ctx context.Context) http.Handler {
	handler := httprouter.New()

	handler.GET("/devices", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		out := make([]deviceSummary, 0, len(s.devices))
		for _, dev := range s.devices {
			out = append(out, s.summarizeDevice(dev))
		}
		writeJSON(w, out)
	})

	handler.GET("/devices/:device/signals/:signal", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		dev := s.deviceByName(params.ByName("device"))
		if dev == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sig := dev.SignalByName(params.ByName("signal"))
		if sig == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		tail := defaultTail
		if q := r.URL.Query().Get("tail"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 {
				tail = n
			}
		}

		writeJSON(w, signalDetail{
			signalSummary: summarize(sig),
			Stats:         sig.AnalogData().Stats(),
			Samples:       sig.AnalogData().Tail(tail),
			Times:         sig.TimeBase().Tail(tail),
		})
	})

	handler.GET("/devices/:device/live", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		dev := s.deviceByName(params.ByName("device"))
		if dev == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(s.pushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				summaries := make([]signalSummary, 0, len(dev.AllSignals()))
				for _, sig := range dev.AllSignals() {
					summaries = append(summaries, summarize(sig))
				}
				if err := conn.WriteJSON(summaries); err != nil {
					return
				}
			}
		}
	})

	return handler
}

func (s *Server) summarizeDevice(dev *device.Hardware) deviceSummary {
	summary := deviceSummary{
		Name:   dev.Handle().Model(),
		Type:   dev.Type().String(),
		State:  dev.State().String(),
		Groups: make(map[string][]string),
	}
	for _, sig := range dev.AllSignals() {
		summary.Signals = append(summary.Signals, summarize(sig))
	}
	for _, c := range dev.Configurables() {
		summary.Configurables = append(summary.Configurables, c.Name())
	}
	for name, sigs := range dev.ChannelGroupSignals() {
		names := make([]string, 0, len(sigs))
		for _, sig := range sigs {
			names = append(names, sig.Name())
		}
		summary.Groups[name] = names
	}
	return summary
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
