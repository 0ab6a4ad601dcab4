package amp

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/logger"
)

// GradScaler owns the loss scale applied before the backward pass and
// removed from the gradients before the update. Update must be called once
// per step with the group-agreed overflow flag, whether or not the step
// ran, so the bookkeeping observes every step.
type GradScaler interface {
	// Scale returns the current positive loss scale.
	Scale() float64

	// InvScale returns the reciprocal of the scale, computed in float64
	// so unscaling adds no second rounding on top of the forward
	// multiply.
	InvScale() float64

	// Update advances the scaler state given this step's overflow flag.
	Update(foundOverflow bool)

	// Snapshot captures the mutable state needed to resume bit-for-bit
	// scaling behavior.
	Snapshot() ScalerSnapshot

	// Restore resets the mutable state from a snapshot.
	Restore(snap ScalerSnapshot) error
}

// ScalerSnapshot is the persisted form of a scaler's mutable state. The
// immutable hyperparameters come from construction and are not included.
type ScalerSnapshot struct {
	Scale             float64 `json:"scale"`
	MaxScale          float64 `json:"max_scale"`
	GrowthTracker     int     `json:"growth_tracker"`
	HysteresisTracker int     `json:"hysteresis_tracker"`
}

// ScalerConfig holds the dynamic scaler's hyperparameters.
type ScalerConfig struct {
	InitialScale  float64 // Starting loss scale, must be positive
	MinScale      float64 // Lower bound for backoff, 0 < MinScale <= InitialScale
	MaxScale      float64 // Upper bound for growth, 0 means unbounded
	GrowthFactor  float64 // Multiplier on sustained clean steps, must be > 1
	BackoffFactor float64 // Multiplier on overflow, must be in (0, 1)

	// GrowthInterval is the number of consecutive clean steps required
	// before the scale grows.
	GrowthInterval int

	// Hysteresis is the number of consecutive overflows tolerated before
	// the scale is actually cut. Transient spikes then cost skipped
	// steps, not scale.
	Hysteresis int

	Verbose bool          // Log scale adjustments
	Logger  logger.Logger // Sink for Verbose output, nil discards
}

// DefaultScalerConfig returns the conventional mixed precision defaults:
// scale 2^16, doubling after 1000 clean steps, halving after 2 consecutive
// overflows, floored at 1.
func DefaultScalerConfig() ScalerConfig {
	return ScalerConfig{
		InitialScale:   65536,
		MinScale:       1,
		GrowthFactor:   2,
		BackoffFactor:  0.5,
		GrowthInterval: 1000,
		Hysteresis:     2,
	}
}

// Validate checks the hyperparameters. An invalid configuration is a
// programmer error and fails construction; it is never retried.
func (c ScalerConfig) Validate() error {
	if c.InitialScale <= 0 {
		return fmt.Errorf("amp: initial scale must be positive, got %v", c.InitialScale)
	}
	if c.MinScale <= 0 {
		return fmt.Errorf("amp: min scale must be positive, got %v", c.MinScale)
	}
	if c.MinScale > c.InitialScale {
		return fmt.Errorf("amp: min scale %v exceeds initial scale %v", c.MinScale, c.InitialScale)
	}
	if c.GrowthFactor <= 1 {
		return fmt.Errorf("amp: growth factor must be greater than 1, got %v", c.GrowthFactor)
	}
	if c.BackoffFactor <= 0 || c.BackoffFactor >= 1 {
		return fmt.Errorf("amp: backoff factor must be in (0, 1), got %v", c.BackoffFactor)
	}
	if c.GrowthInterval <= 0 {
		return fmt.Errorf("amp: growth interval must be positive, got %d", c.GrowthInterval)
	}
	if c.Hysteresis <= 0 {
		return fmt.Errorf("amp: hysteresis must be positive, got %d", c.Hysteresis)
	}
	if c.MaxScale != 0 {
		if c.MaxScale <= 1 {
			return fmt.Errorf("amp: max scale must be greater than 1, got %v", c.MaxScale)
		}
		if c.InitialScale > c.MaxScale {
			return fmt.Errorf("amp: initial scale %v exceeds max scale %v", c.InitialScale, c.MaxScale)
		}
	}
	return nil
}

// DynamicGradScaler adjusts the loss scale during training: overflow backs
// the scale off once hysteresis is exhausted, a clean growth interval grows
// it. The scaler holds no device state and performs no communication; the
// caller feeds it the already-agreed overflow flag.
type DynamicGradScaler struct {
	scale             float64
	minScale          float64
	maxScale          float64
	growthFactor      float64
	backoffFactor     float64
	growthInterval    int
	hysteresis        int
	growthTracker     int
	hysteresisTracker int
	verbose           bool
	log               logger.Logger
}

var _ GradScaler = (*DynamicGradScaler)(nil)

// NewDynamicGradScaler validates cfg and creates the scaler. Trackers start
// at zero growth and full hysteresis.
func NewDynamicGradScaler(cfg ScalerConfig) (*DynamicGradScaler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &DynamicGradScaler{
		scale:             cfg.InitialScale,
		minScale:          cfg.MinScale,
		maxScale:          cfg.MaxScale,
		growthFactor:      cfg.GrowthFactor,
		backoffFactor:     cfg.BackoffFactor,
		growthInterval:    cfg.GrowthInterval,
		hysteresis:        cfg.Hysteresis,
		growthTracker:     0,
		hysteresisTracker: cfg.Hysteresis,
		verbose:           cfg.Verbose,
		log:               log,
	}, nil
}

// Scale returns the current loss scale.
func (s *DynamicGradScaler) Scale() float64 {
	return s.scale
}

// InvScale returns 1/scale. The division runs in float64, so multiplying a
// gradient by the result narrows exactly once.
func (s *DynamicGradScaler) InvScale() float64 {
	return 1.0 / s.scale
}

// Update advances the state machine one step.
//
// On overflow the growth tracker resets and hysteresis is consumed; only
// when hysteresis runs out does the scale back off, floored at MinScale.
// On a clean step the growth tracker advances; after GrowthInterval
// consecutive clean steps the trackers reset and the scale grows, capped at
// MaxScale when one is set.
func (s *DynamicGradScaler) Update(foundOverflow bool) {
	if foundOverflow {
		s.growthTracker = 0
		s.hysteresisTracker--
		if s.hysteresisTracker <= 0 {
			s.scale = max(s.scale*s.backoffFactor, s.minScale)
		}
		if s.verbose {
			s.log.Info("gradient overflow, loss scale adjusted",
				"scale", s.scale, "hysteresis_left", s.hysteresisTracker)
		}
		return
	}

	s.growthTracker++
	if s.growthTracker < s.growthInterval {
		return
	}
	s.growthTracker = 0
	s.hysteresisTracker = s.hysteresis
	if s.maxScale != 0 && s.scale >= s.maxScale {
		if s.verbose {
			s.log.Info("loss scale saturated at max", "scale", s.scale, "max_scale", s.maxScale)
		}
		return
	}
	s.scale *= s.growthFactor
	if s.maxScale != 0 && s.scale > s.maxScale {
		s.scale = s.maxScale
	}
	if s.verbose {
		s.log.Info("no recent overflow, loss scale grown", "scale", s.scale)
	}
}

// Snapshot captures the mutable state.
func (s *DynamicGradScaler) Snapshot() ScalerSnapshot {
	return ScalerSnapshot{
		Scale:             s.scale,
		MaxScale:          s.maxScale,
		GrowthTracker:     s.growthTracker,
		HysteresisTracker: s.hysteresisTracker,
	}
}

// Restore resets the mutable state from a snapshot. The snapshot's scale
// must respect the construction-time bounds.
func (s *DynamicGradScaler) Restore(snap ScalerSnapshot) error {
	if snap.Scale < s.minScale {
		return fmt.Errorf("amp: snapshot scale %v is below min scale %v", snap.Scale, s.minScale)
	}
	if snap.MaxScale != 0 && snap.Scale > snap.MaxScale {
		return fmt.Errorf("amp: snapshot scale %v exceeds its max scale %v", snap.Scale, snap.MaxScale)
	}
	s.scale = snap.Scale
	s.maxScale = snap.MaxScale
	s.growthTracker = snap.GrowthTracker
	s.hysteresisTracker = snap.HysteresisTracker
	return nil
}

// ConstGradScaler applies a fixed loss scale. Used when dynamic scaling is
// disabled, typically for bf16 runs where the extra exponent range makes
// overflow rare.
type ConstGradScaler struct {
	scale float64
}

var _ GradScaler = (*ConstGradScaler)(nil)

// NewConstGradScaler creates a fixed scaler. A scale of 1 makes the
// mixed precision step numerically transparent.
func NewConstGradScaler(scale float64) (*ConstGradScaler, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("amp: constant scale must be positive, got %v", scale)
	}
	return &ConstGradScaler{scale: scale}, nil
}

// Scale returns the fixed loss scale.
func (s *ConstGradScaler) Scale() float64 { return s.scale }

// InvScale returns 1/scale computed in float64.
func (s *ConstGradScaler) InvScale() float64 { return 1.0 / s.scale }

// Update is a no-op; the scale never moves.
func (s *ConstGradScaler) Update(bool) {}

// Snapshot captures the fixed scale.
func (s *ConstGradScaler) Snapshot() ScalerSnapshot {
	return ScalerSnapshot{Scale: s.scale}
}

// Restore resets the fixed scale from a snapshot.
func (s *ConstGradScaler) Restore(snap ScalerSnapshot) error {
	if snap.Scale <= 0 {
		return fmt.Errorf("amp: snapshot scale must be positive, got %v", snap.Scale)
	}
	s.scale = snap.Scale
	return nil
}
