package motor

import (
	"math"

	deverrors "github.com/rehagrip/rehagrip/motor/errors"
)

const (
	// FullTicks is one full revolution of the servo's position space.
	FullTicks = 4095

	TicksPerDegree = FullTicks / 360.0
)

type Hand string

const (
	HandLeft  Hand = "left"
	HandRight Hand = "right"
)

func ParseHand(s string) (Hand, error) {
	switch Hand(s) {
	case HandLeft:
		return HandLeft, nil
	case HandRight:
		return HandRight, nil
	}
	return "", deverrors.InvalidInputError{Field: "hand", Reason: "must be 'left' or 'right'"}
}

// DegreesToTick maps a hand-relative degree offset onto an absolute servo
// tick. The left hand mirrors the sign convention so a positive request
// always means extension regardless of mounting orientation. Rounding is
// math.Round (half away from zero); results are clamped into [0, FullTicks].
func DegreesToTick(centerTick int, hand Hand, degrees float64) int {
	if hand == HandLeft {
		degrees = -degrees
	}

	tick := int(math.Round(float64(centerTick) + degrees*TicksPerDegree))
	if tick < 0 {
		tick = 0
	} else if tick > FullTicks {
		tick = FullTicks
	}
	return tick
}

// TickToDegrees is the inverse of DegreesToTick for a fixed (hand, center)
// pair, up to rounding.
func TickToDegrees(centerTick int, hand Hand, tick int) float64 {
	degrees := float64(tick-centerTick) / TicksPerDegree
	if hand == HandLeft {
		degrees = -degrees
	}
	return degrees
}

// RangeForCenter reports how far the actuator can travel either side of the
// given center before running into the tick-space extremes.
func RangeForCenter(centerTick int) (min, max, total float64) {
	min = -(float64(centerTick) / FullTicks) * 360
	max = (float64(FullTicks-centerTick) / FullTicks) * 360
	total = max - min
	return
}
