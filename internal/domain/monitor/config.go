package monitor

import (
	"fmt"

	"github.com/okian/vigil/internal/domain/fusion"
)

// Config tunes every detector owned by a Monitor.
type Config struct {
	Fusion fusion.Config

	PERCLOSThreshold         float64 // fraction of closed-eye time that starts alerts
	CalibrationDuration      float64 // seconds of EAR samples used to learn the threshold
	FixedEARThreshold        float64 // open-eye EAR; zero means calibrate
	SmileConfidenceThreshold float64
	GazeDistractionThreshold float64 // seconds off road before gaze distraction
	FaceLostReset            float64 // seconds without a face before detectors reset
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Fusion:                   fusion.DefaultConfig(),
		PERCLOSThreshold:         0.20,
		CalibrationDuration:      15,
		SmileConfidenceThreshold: 0.45,
		GazeDistractionThreshold: 2.0,
		FaceLostReset:            3.0,
	}
}

// Validate checks the configuration once at construction.
func (c Config) Validate() error {
	if err := c.Fusion.Validate(); err != nil {
		return err
	}
	switch {
	case c.PERCLOSThreshold <= 0 || c.PERCLOSThreshold >= 1:
		return fmt.Errorf("%w: perclos_threshold %v not in (0,1)", fusion.ErrInvalidConfig, c.PERCLOSThreshold)
	case c.CalibrationDuration <= 0:
		return fmt.Errorf("%w: calibration_duration must be positive", fusion.ErrInvalidConfig)
	case c.FixedEARThreshold < 0 || c.FixedEARThreshold >= 1:
		return fmt.Errorf("%w: fixed ear threshold %v not in [0,1)", fusion.ErrInvalidConfig, c.FixedEARThreshold)
	case c.SmileConfidenceThreshold <= 0 || c.SmileConfidenceThreshold >= 1:
		return fmt.Errorf("%w: smile_confidence_threshold %v not in (0,1)", fusion.ErrInvalidConfig, c.SmileConfidenceThreshold)
	case c.GazeDistractionThreshold <= 0:
		return fmt.Errorf("%w: gaze distraction threshold must be positive", fusion.ErrInvalidConfig)
	case c.FaceLostReset <= 0:
		return fmt.Errorf("%w: face lost reset must be positive", fusion.ErrInvalidConfig)
	}
	return nil
}
