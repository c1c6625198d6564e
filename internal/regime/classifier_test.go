package regime

import (
	"math"
	"strings"
	"testing"
	"time"

	"eventhorizon/internal/models"
)

func series(ps ...float64) []models.SignalPoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.SignalPoint, 0, len(ps))
	for i, p := range ps {
		out = append(out, models.SignalPoint{
			Date:      base.AddDate(0, 0, i),
			P:         p,
			Liquidity: models.DefaultLiquidity,
		})
	}
	return out
}

func withBand(points []models.SignalPoint, idx int, low, high float64) []models.SignalPoint {
	points[idx].Low = &low
	points[idx].High = &high
	return points
}

func TestVelocity_NeedsFourPoints(t *testing.T) {
	if got := Velocity(series(0.1, 0.2, 0.3)); got != 0 {
		t.Fatalf("velocity=%v want 0", got)
	}
}

func TestVelocity_ConstantSeries(t *testing.T) {
	if got := Velocity(series(0.4, 0.4, 0.4, 0.4, 0.4)); got != 0 {
		t.Fatalf("velocity=%v want 0", got)
	}
}

func TestVelocity_LinearRamp(t *testing.T) {
	// Steady +0.05/day: SMA of three identical deltas is the delta.
	got := Velocity(series(0.10, 0.15, 0.20, 0.25))
	if math.Abs(got-0.05) > 1e-12 {
		t.Fatalf("velocity=%v want 0.05", got)
	}
}

func TestVelocity_UsesTrailingWindowOnly(t *testing.T) {
	// Early noise outside the 4-point window must not matter.
	a := Velocity(series(0.9, 0.1, 0.10, 0.15, 0.20, 0.25))
	b := Velocity(series(0.2, 0.3, 0.10, 0.15, 0.20, 0.25))
	if a != b {
		t.Fatalf("window leak: %v vs %v", a, b)
	}
}

func TestAcceleration_NeedsFivePoints(t *testing.T) {
	if got := Acceleration(series(0.1, 0.2, 0.3, 0.4)); got != 0 {
		t.Fatalf("acceleration=%v want 0", got)
	}
}

func TestAcceleration_LinearRampIsZero(t *testing.T) {
	got := Acceleration(series(0.10, 0.15, 0.20, 0.25, 0.30))
	if math.Abs(got) > 1e-12 {
		t.Fatalf("acceleration=%v want 0", got)
	}
}

func TestAcceleration_SpeedUp(t *testing.T) {
	// Deltas 0.01,0.01,0.01 then 0.04: velocity moves from 0.01 to 0.02.
	got := Acceleration(series(0.10, 0.11, 0.12, 0.13, 0.17))
	if math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("acceleration=%v want 0.01", got)
	}
}

func TestJerk_NeedsSixPoints(t *testing.T) {
	if got := Jerk(series(0.1, 0.2, 0.3, 0.4, 0.5)); got != 0 {
		t.Fatalf("jerk=%v want 0", got)
	}
}

func TestJerk_ConstantAccelerationIsZero(t *testing.T) {
	// Quadratic trajectory: acceleration constant, jerk zero.
	got := Jerk(series(0.10, 0.11, 0.13, 0.16, 0.20, 0.25))
	if math.Abs(got) > 1e-9 {
		t.Fatalf("jerk=%v want 0", got)
	}
}

func TestDetectFragility_RisingAndWidening(t *testing.T) {
	points := series(0.40, 0.45)
	points = withBand(points, 0, 0.35, 0.45) // band 0.10
	points = withBand(points, 1, 0.375, 0.525) // band 0.15
	if !DetectFragility(points) {
		t.Fatalf("expected fragile")
	}
}

func TestDetectFragility_RisingButNarrowing(t *testing.T) {
	points := series(0.40, 0.45)
	points = withBand(points, 0, 0.30, 0.50) // band 0.20
	points = withBand(points, 1, 0.40, 0.50) // band 0.10
	if DetectFragility(points) {
		t.Fatalf("expected not fragile")
	}
}

func TestDetectFragility_FallingAndWidening(t *testing.T) {
	points := series(0.45, 0.40)
	points = withBand(points, 0, 0.40, 0.50)
	points = withBand(points, 1, 0.30, 0.50)
	if DetectFragility(points) {
		t.Fatalf("expected not fragile")
	}
}

func TestDetectFragility_MissingBandsNeverFragile(t *testing.T) {
	// Band() is 0 without bounds, so widening can't be observed.
	if DetectFragility(series(0.40, 0.45)) {
		t.Fatalf("expected not fragile without bands")
	}
}

func TestDetectBeliefFlip_Bullish(t *testing.T) {
	// Flat then a sharp upward kink: acceleration swings positive.
	points := series(0.50, 0.50, 0.50, 0.50, 0.50, 0.60)
	flip, ok := DetectBeliefFlip(points)
	if !ok {
		t.Fatalf("expected flip")
	}
	if flip.Type != FlipBullish {
		t.Fatalf("type=%s want bullish", flip.Type)
	}
	if flip.Strength < FlipMinStrength {
		t.Fatalf("strength=%v below threshold", flip.Strength)
	}
}

func TestDetectBeliefFlip_Bearish(t *testing.T) {
	points := series(0.50, 0.50, 0.50, 0.50, 0.50, 0.40)
	flip, ok := DetectBeliefFlip(points)
	if !ok {
		t.Fatalf("expected flip")
	}
	if flip.Type != FlipBearish {
		t.Fatalf("type=%s want bearish", flip.Type)
	}
	if flip.Strength <= 0 {
		t.Fatalf("strength=%v want positive", flip.Strength)
	}
}

func TestDetectBeliefFlip_BelowThreshold(t *testing.T) {
	// A 0.001 move produces acceleration well under FlipMinStrength.
	points := series(0.500, 0.500, 0.500, 0.500, 0.500, 0.501)
	if _, ok := DetectBeliefFlip(points); ok {
		t.Fatalf("expected no flip")
	}
}

func TestComputeStress_InsufficientHistory(t *testing.T) {
	result := ComputeStress(series(0.5, 0.5, 0.5))
	if result.Level != StressMed {
		t.Fatalf("level=%s want med", result.Level)
	}
	if result.Rationale != "Insufficient history; defaulting to Elevated." {
		t.Fatalf("rationale=%q", result.Rationale)
	}
}

func TestComputeStress_StableSeries(t *testing.T) {
	points := series(0.5, 0.5, 0.5, 0.5)
	points = withBand(points, 3, 0.48, 0.52) // band 0.04, score 0.048
	result := ComputeStress(points)
	if result.Level != StressLow {
		t.Fatalf("level=%s want low", result.Level)
	}
	if !strings.HasPrefix(result.Rationale, "Stable regime (velocity=0.00pp/d, dispersion=4.0pp).") {
		t.Fatalf("rationale=%q", result.Rationale)
	}
}

func TestComputeStress_DefaultBandElevates(t *testing.T) {
	// No bounds: band defaults to 0.18, score 0.216 with zero velocity.
	result := ComputeStress(series(0.5, 0.5, 0.5, 0.5))
	if result.Level != StressLow {
		t.Fatalf("level=%s want low", result.Level)
	}
	// 0.05/day velocity pushes score to 0.2+0.216 = 0.416: med.
	result = ComputeStress(series(0.10, 0.15, 0.20, 0.25))
	if result.Level != StressMed {
		t.Fatalf("level=%s want med", result.Level)
	}
}

func TestComputeStress_Transitioning(t *testing.T) {
	// 0.10/day velocity: score 0.4 + 0.18*1.2 = 0.616, high.
	result := ComputeStress(series(0.10, 0.20, 0.30, 0.40))
	if result.Level != StressHigh {
		t.Fatalf("level=%s want high", result.Level)
	}
	if !strings.HasPrefix(result.Rationale, "Transitioning regime (velocity=10.00pp/d, dispersion=18.0pp).") {
		t.Fatalf("rationale=%q", result.Rationale)
	}
	if !strings.Contains(result.Rationale, "not outcome certainty") {
		t.Fatalf("rationale=%q", result.Rationale)
	}
}

func TestComputeStress_HighProbabilityTightBandIsCalm(t *testing.T) {
	points := series(0.95, 0.95, 0.95, 0.95)
	points = withBand(points, 3, 0.94, 0.96)
	result := ComputeStress(points)
	if result.Level != StressLow {
		t.Fatalf("level=%s want low", result.Level)
	}
}

func TestClassify_Bundle(t *testing.T) {
	points := series(0.10, 0.15, 0.20, 0.25, 0.30, 0.35)
	points = withBand(points, 5, 0.30, 0.40)
	m := Classify(points)
	if math.Abs(m.Velocity-0.05) > 1e-12 {
		t.Fatalf("velocity=%v want 0.05", m.Velocity)
	}
	if math.Abs(m.Acceleration) > 1e-12 {
		t.Fatalf("acceleration=%v want 0", m.Acceleration)
	}
	if math.Abs(m.Dispersion-0.10) > 1e-12 {
		t.Fatalf("dispersion=%v want 0.10", m.Dispersion)
	}
	if m.Flip != nil {
		t.Fatalf("flip=%+v want nil", m.Flip)
	}
	if m.Stress.Level == "" {
		t.Fatalf("stress level empty")
	}
}

func TestClassify_EmptySeries(t *testing.T) {
	m := Classify(nil)
	if m.Velocity != 0 || m.Acceleration != 0 || m.Jerk != 0 {
		t.Fatalf("metrics=%+v want zeros", m)
	}
	if m.Stress.Level != StressMed {
		t.Fatalf("stress=%s want med", m.Stress.Level)
	}
}
