// Package regime computes descriptive belief dynamics over a probability
// trajectory: velocity, higher derivatives, fragility, belief flips and an
// overall stress level. Read-only; all functions take a date-ascending
// slice and never mutate it.
package regime

import (
	"fmt"

	"eventhorizon/internal/models"
)

const (
	// velocityWindow is the number of points the 3-day SMA velocity needs.
	velocityWindow = 4

	// DefaultBandWidth stands in for the dispersion band when a point
	// carries no low/high bounds during stress scoring.
	DefaultBandWidth = 0.18

	stressVelocityWeight = 4.0
	stressBandWeight     = 1.2
	stressHighThreshold  = 0.45
	stressMedThreshold   = 0.28

	// FlipMinStrength is the minimum acceleration magnitude for a sign
	// change to count as a belief flip.
	FlipMinStrength = 0.001
)

type StressLevel string

const (
	StressLow  StressLevel = "low"
	StressMed  StressLevel = "med"
	StressHigh StressLevel = "high"
)

type StressResult struct {
	Level     StressLevel `json:"level"`
	Rationale string      `json:"rationale"`
}

type FlipType string

const (
	FlipBullish FlipType = "bullish"
	FlipBearish FlipType = "bearish"
)

// Flip marks an inflection in the acceleration trend: momentum has changed
// direction with at least FlipMinStrength behind it.
type Flip struct {
	Type     FlipType `json:"type"`
	Strength float64  `json:"strength"`
}

// velocityAt is the 3-delta SMA velocity ending `back` points before the
// latest one. Returns 0 when the window does not fit.
func velocityAt(points []models.SignalPoint, back int) float64 {
	end := len(points) - back
	if end < velocityWindow {
		return 0
	}
	t0 := points[end-1]
	t1 := points[end-2]
	t2 := points[end-3]
	t3 := points[end-4]
	return ((t0.P - t1.P) + (t1.P - t2.P) + (t2.P - t3.P)) / 3
}

// Velocity is the 3-day simple moving average of day-over-day probability
// deltas. Needs 4 points; 0 otherwise.
func Velocity(points []models.SignalPoint) float64 {
	return velocityAt(points, 0)
}

// accelerationAt is the backward first difference of the velocity series.
func accelerationAt(points []models.SignalPoint, back int) float64 {
	if len(points)-back < velocityWindow+1 {
		return 0
	}
	return velocityAt(points, back) - velocityAt(points, back+1)
}

// Acceleration is the backward difference of the SMA velocity series.
// Needs 5 points; 0 otherwise.
func Acceleration(points []models.SignalPoint) float64 {
	return accelerationAt(points, 0)
}

// Jerk is the backward second difference of the velocity series (third
// derivative of probability). Needs 6 points; 0 otherwise.
func Jerk(points []models.SignalPoint) float64 {
	if len(points) < velocityWindow+2 {
		return 0
	}
	return velocityAt(points, 0) - 2*velocityAt(points, 1) + velocityAt(points, 2)
}

// DetectFragility reports "fragile conviction": probability rose from the
// previous point while the dispersion band widened. Rising belief on a
// breaking consensus tends to precede volatility.
func DetectFragility(points []models.SignalPoint) bool {
	if len(points) < 2 {
		return false
	}
	current := points[len(points)-1]
	previous := points[len(points)-2]

	probRising := current.P > previous.P
	dispersionWidening := current.Band() > previous.Band()

	return probRising && dispersionWidening
}

// DetectBeliefFlip reports an acceleration sign change of at least
// FlipMinStrength magnitude: bullish when momentum turns upward, bearish
// when it reverses down.
func DetectBeliefFlip(points []models.SignalPoint) (Flip, bool) {
	accel := accelerationAt(points, 0)
	prevAccel := accelerationAt(points, 1)

	if accel >= FlipMinStrength && prevAccel <= 0 {
		return Flip{Type: FlipBullish, Strength: accel}, true
	}
	if accel <= -FlipMinStrength && prevAccel >= 0 {
		return Flip{Type: FlipBearish, Strength: -accel}, true
	}
	return Flip{}, false
}

// ComputeStress scores belief instability from velocity and dispersion.
// Regime risk measures consensus breakdown, not outcome certainty: a market
// confidently at 0.95 with a tight band is low stress.
func ComputeStress(points []models.SignalPoint) StressResult {
	if len(points) < velocityWindow {
		return StressResult{Level: StressMed, Rationale: "Insufficient history; defaulting to Elevated."}
	}

	last := points[len(points)-1]

	velocity := Velocity(points)
	if velocity < 0 {
		velocity = -velocity
	}

	band := DefaultBandWidth
	if last.Low != nil && last.High != nil {
		band = *last.High - *last.Low
	}

	score := velocity*stressVelocityWeight + band*stressBandWeight

	velocityPP := fmt.Sprintf("%.2f", velocity*100)
	dispersionPP := fmt.Sprintf("%.1f", band*100)

	switch {
	case score >= stressHighThreshold:
		return StressResult{
			Level:     StressHigh,
			Rationale: fmt.Sprintf("Transitioning regime (velocity=%spp/d, dispersion=%spp). Regime Risk measures belief instability and consensus breakdown, not outcome certainty.", velocityPP, dispersionPP),
		}
	case score >= stressMedThreshold:
		return StressResult{
			Level:     StressMed,
			Rationale: fmt.Sprintf("Elevated regime risk (velocity=%spp/d, dispersion=%spp). Regime Risk measures belief instability and consensus breakdown, not outcome certainty.", velocityPP, dispersionPP),
		}
	default:
		return StressResult{
			Level:     StressLow,
			Rationale: fmt.Sprintf("Stable regime (velocity=%spp/d, dispersion=%spp). Regime Risk measures belief instability and consensus breakdown, not outcome certainty.", velocityPP, dispersionPP),
		}
	}
}

// Metrics bundles every classifier output for one trajectory.
type Metrics struct {
	Velocity     float64      `json:"velocity"`
	Acceleration float64      `json:"acceleration"`
	Jerk         float64      `json:"jerk"`
	Dispersion   float64      `json:"dispersion"`
	Fragile      bool         `json:"fragile"`
	Flip         *Flip        `json:"flip,omitempty"`
	Stress       StressResult `json:"stress"`
}

// Classify runs the full metric set over one trajectory.
func Classify(points []models.SignalPoint) Metrics {
	m := Metrics{
		Velocity:     Velocity(points),
		Acceleration: Acceleration(points),
		Jerk:         Jerk(points),
		Fragile:      DetectFragility(points),
		Stress:       ComputeStress(points),
	}
	if len(points) > 0 {
		m.Dispersion = points[len(points)-1].Band()
	}
	if flip, ok := DetectBeliefFlip(points); ok {
		m.Flip = &flip
	}
	return m
}
