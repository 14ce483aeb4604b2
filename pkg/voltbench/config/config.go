package config

import (
	"time"

	"github.com/voltbench/voltbench/pkg/voltbench/hwdriver/demo"
)

type Config struct {
	LogLevel     string        `yaml:"log_level"`
	Backend      string        `yaml:"backend"`
	SamplePeriod time.Duration `yaml:"sample_period"`
	BurstSize    int           `yaml:"burst_size"`
	SampleLimit  int           `yaml:"sample_limit"`
	DemoDevices  []demo.Config `yaml:"demo_devices"`
	StatusServer struct {
		Port         int           `yaml:"port"`
		PushInterval time.Duration `yaml:"push_interval_ms"`
	} `yaml:"status_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}
