package probability

import "math"

const curveFloor = 0.01

// DurationCurve returns the success probability of muting someone else for
// the requested number of minutes. Longer requests are riskier: the curve is
// base*k/(minutes+k), monotonically decreasing, floored at 0.01.
func DurationCurve(base float64, minutes, k int) float64 {
	if k <= 0 {
		k = 15
	}
	if minutes < 0 {
		minutes = 0
	}
	p := base * float64(k) / float64(minutes+k)
	if p < curveFloor {
		return curveFloor
	}
	if p > 1 {
		return 1
	}
	return p
}

// TimeOfDayCurve peaks at the window midpoint and decays linearly toward both
// edges. position is the window-relative fraction from utils.Window.Position.
func TimeOfDayCurve(minProb, maxProb, position float64) float64 {
	if position < 0 {
		position = 0
	}
	if position > 1 {
		position = 1
	}
	if maxProb < minProb {
		maxProb = minProb
	}
	return minProb + (1-2*math.Abs(position-0.5))*(maxProb-minProb)
}

// RepeatCurve is near zero below the threshold and saturates above it.
func RepeatCurve(count int, threshold, spread float64) float64 {
	if spread <= 0 {
		spread = 1
	}
	return 1 / (1 + math.Exp(-(float64(count)-threshold)/spread))
}
