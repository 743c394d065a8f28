// Package config defines service configuration and its layered loader.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/vigil/internal/domain/fusion"
	"github.com/okian/vigil/internal/domain/monitor"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds each frame queue partition.
	QueueSize int `koanf:"queue_size"`

	// Partitions sets how many queues (and workers) frames are spread over.
	Partitions int `koanf:"partitions"`

	// DedupeSize bounds the frame idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBatch caps the frames accepted by one POST /frames.
	MaxBatch int `koanf:"max_batch"`

	// DBPath is the SQLite history file.
	DBPath string `koanf:"db_path"`

	// IdleSessionTimeout ends sessions that stop sending frames.
	IdleSessionTimeout time.Duration `koanf:"idle_session_timeout"`

	// StreamBuffer is the per-client WebSocket send buffer, in decisions.
	StreamBuffer int `koanf:"stream_buffer"`

	// Detection tunes the per-session detectors.
	Detection Detection `koanf:"detection"`
}

// Detection holds the detector tuning knobs.
type Detection struct {
	EARThreshold             float64 `koanf:"ear_threshold"`
	MARThreshold             float64 `koanf:"mar_threshold"`
	HeadPitchThreshold       float64 `koanf:"head_pitch_threshold"`
	HeadYawThreshold         float64 `koanf:"head_yaw_threshold"`
	DecayPerFrame            int     `koanf:"decay_per_frame"`
	YawnWeight               int     `koanf:"yawn_weight"`
	NodWeight                int     `koanf:"nod_weight"`
	HeadWeight               int     `koanf:"head_weight"`
	GazeWeight               int     `koanf:"gaze_weight"`
	EyeWeight                int     `koanf:"eye_weight"`
	SunglassesWindow         float64 `koanf:"sunglasses_window"`
	SunglassesThreshold      float64 `koanf:"sunglasses_threshold"`
	PERCLOSThreshold         float64 `koanf:"perclos_threshold"`
	CalibrationDuration      float64 `koanf:"calibration_duration"`
	FixedEARThreshold        float64 `koanf:"fixed_ear_threshold"`
	SmileConfidenceThreshold float64 `koanf:"smile_confidence_threshold"`
	DistractionThreshold     float64 `koanf:"distraction_threshold"`
	FaceLostReset            float64 `koanf:"face_lost_reset"`
	AlarmOn                  int     `koanf:"alarm_on"`
	AlarmOff                 int     `koanf:"alarm_off"`
}

// New creates a Config with defaults.
func New() *Config {
	m := monitor.DefaultConfig()
	f := m.Fusion
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          4096,
		Partitions:         runtime.NumCPU(),
		DedupeSize:         200_000,
		MaxBatch:           300,
		DBPath:             "vigil.db",
		IdleSessionTimeout: 5 * time.Minute,
		StreamBuffer:       64,
		Detection: Detection{
			EARThreshold:             f.EARThreshold,
			MARThreshold:             f.MARThreshold,
			HeadPitchThreshold:       f.HeadPitchThreshold,
			HeadYawThreshold:         f.HeadYawThreshold,
			DecayPerFrame:            f.DecayPerFrame,
			YawnWeight:               f.YawnWeight,
			NodWeight:                f.NodWeight,
			HeadWeight:               f.HeadWeight,
			GazeWeight:               f.GazeWeight,
			EyeWeight:                f.EyeWeight,
			SunglassesWindow:         f.SunglassesWindow,
			SunglassesThreshold:      f.SunglassesThreshold,
			PERCLOSThreshold:         m.PERCLOSThreshold,
			CalibrationDuration:      m.CalibrationDuration,
			SmileConfidenceThreshold: m.SmileConfidenceThreshold,
			DistractionThreshold:     f.DistractionDuration,
			FaceLostReset:            m.FaceLostReset,
			AlarmOn:                  f.AlarmOn,
			AlarmOff:                 f.AlarmOff,
		},
	}
}

// Monitor converts the detection section into a monitor configuration.
func (c *Config) Monitor() monitor.Config {
	d := c.Detection
	return monitor.Config{
		Fusion: fusion.Config{
			EARThreshold:        d.EARThreshold,
			MARThreshold:        d.MARThreshold,
			HeadPitchThreshold:  d.HeadPitchThreshold,
			HeadYawThreshold:    d.HeadYawThreshold,
			DistractionDuration: d.DistractionThreshold,
			DecayPerFrame:       d.DecayPerFrame,
			EyeWeight:           d.EyeWeight,
			YawnWeight:          d.YawnWeight,
			NodWeight:           d.NodWeight,
			HeadWeight:          d.HeadWeight,
			GazeWeight:          d.GazeWeight,
			SunglassesWindow:    d.SunglassesWindow,
			SunglassesThreshold: d.SunglassesThreshold,
			AlarmOn:             d.AlarmOn,
			AlarmOff:            d.AlarmOff,
		},
		PERCLOSThreshold:         d.PERCLOSThreshold,
		CalibrationDuration:      d.CalibrationDuration,
		FixedEARThreshold:        d.FixedEARThreshold,
		SmileConfidenceThreshold: d.SmileConfidenceThreshold,
		GazeDistractionThreshold: d.DistractionThreshold,
		FaceLostReset:            d.FaceLostReset,
	}
}

// Validate checks the service settings and the detector tuning.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.Partitions <= 0:
		return fmt.Errorf("%w: partitions must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxBatch <= 0:
		return fmt.Errorf("%w: max_batch must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.IdleSessionTimeout <= 0:
		return fmt.Errorf("%w: idle_session_timeout must be positive", ErrInvalidConfig)
	case c.StreamBuffer <= 0:
		return fmt.Errorf("%w: stream_buffer must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q is not text or json", ErrInvalidConfig, c.LogFormat)
	}
	if err := c.Monitor().Validate(); err != nil {
		return fmt.Errorf("%w: detection: %w", ErrInvalidConfig, err)
	}
	return nil
}
