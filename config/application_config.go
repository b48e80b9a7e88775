package config

import "time"

const defaultSyncIntervalMillis = 600_000 // ten minutes

// ApplicationConfiguration Must use full names for `sigs.k8s.io/yaml`
type ApplicationConfiguration struct {
	Server     Server
	Sync       SyncConfig
	Prometheus Prometheus
	Tracing    Tracing
}

type Server struct {
	Port int
}

type SyncConfig struct {
	IntervalMillis int64
	RunOnStart     bool
	MaxPages       int
}

func (s SyncConfig) Interval() time.Duration {
	if s.IntervalMillis <= 0 {
		return defaultSyncIntervalMillis * time.Millisecond
	}
	return time.Duration(s.IntervalMillis) * time.Millisecond
}

type Prometheus struct {
	Path string
}

type Tracing struct {
	Enabled         bool
	Endpoint        string
	SamplerFraction float64
}
