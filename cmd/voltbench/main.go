package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"golang.org/x/sync/errgroup"

	"github.com/voltbench/voltbench/pkg/voltbench"
	"github.com/voltbench/voltbench/pkg/voltbench/config"
	"github.com/voltbench/voltbench/pkg/voltbench/device"
	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver/demo"
	"github.com/voltbench/voltbench/pkg/voltbench/status"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "voltbench.yaml", "YAML config file")

	flag.Parse()
	if configFile == nil {
		flag.Usage()
		os.Exit(1)
	}

	configContents, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading config file")
	}
	var opts config.Config
	if err := yaml.Unmarshal(configContents, &opts); err != nil {
		log.Fatal().Err(err).Msg("error unmarshaling yaml file")
	}

	if level, err := zerolog.ParseLevel(opts.LogLevel); err == nil && opts.LogLevel != "" {
		log.Logger = log.Logger.Level(level)
	}

	var deviceOpts []device.Option
	deviceOpts = append(deviceOpts, device.WithLogger(log.Logger))
	if opts.SampleLimit > 0 {
		deviceOpts = append(deviceOpts, device.WithSampleLimit(opts.SampleLimit))
	}
	if opts.InfluxDB.Host != "" {
		writeAPI := influxdb2.NewClient(opts.InfluxDB.Host, "").
			WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
		deviceOpts = append(deviceOpts, device.WithMetrics(writeAPI))
	}

	var devices []*device.Hardware

	switch opts.Backend {
	case "", "demo":
		log.Info().Str("backend", "demo").Msg("initializing devices...")
		for _, demoCfg := range opts.DemoDevices {
			// One session per device: closing a device tears its whole
			// session down.
			session := demo.NewSession(opts.SamplePeriod, opts.BurstSize)
			handle := demo.NewHandle(demoCfg)
			dev, err := device.New(handle, session, deviceOpts...)
			if err != nil {
				log.Fatal().Str("model", demoCfg.Model).Err(err).Msg("failed to build device model")
			}
			devices = append(devices, dev)
		}
	default:
		log.Fatal().Str("backend", opts.Backend).Msg("unknown backend")
	}

	workbenchOpts := []voltbench.WorkbenchOption{
		voltbench.WithLogger(log.Logger),
	}
	if opts.StatusServer.Port > 0 {
		workbenchOpts = append(workbenchOpts, voltbench.WithStatusServer(
			status.NewServer(opts.StatusServer.Port, devices, opts.StatusServer.PushInterval)))
	}

	workbench, err := voltbench.NewWorkbench(devices, workbenchOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create workbench")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		return workbench.Stop()
	})

	eg.Go(func() error {
		return workbench.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
