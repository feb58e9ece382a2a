package motor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Masterminds/semver"
	deverrors "github.com/rehagrip/rehagrip/motor/errors"
)

const DRIVER_VERSION = ">= 0.1.0"

// State is the authoritative snapshot of the actuator. A single instance
// lives inside the Controller for the life of the process; everything the
// API reports derives from it.
type State struct {
	CurrentTick int
	TargetTick  int
	CenterTick  int

	VelocityPercent int
	Hand            Hand

	Locked           bool
	TorqueEnabled    bool
	EmergencyStopped bool

	LoadEstimate float64
	Moving       bool

	// Version increments on every mutation so pollers can cheaply detect
	// "nothing changed".
	Version uint64
}

func (s State) PositionDegrees() float64 {
	return TickToDegrees(s.CenterTick, s.Hand, s.CurrentTick)
}

type MoveResult struct {
	PositionDegrees  float64
	PositionTick     int
	TargetTick       int
	RequestedDegrees float64
}

// MoveRequest carries one move command. Velocity and Hand are optional
// overrides; nil leaves the current setting untouched.
type MoveRequest struct {
	Degrees  float64
	Velocity *int
	Hand     *Hand
}

// Controller owns the actuator state and gates every position-changing
// command through the safety interlocks. All access is serialized on one
// mutex because the periodic motion loop and the command handlers both
// read-modify-write CurrentTick and Moving.
type Controller struct {
	lock sync.Mutex

	state   State
	centers map[Hand]int

	driver   Driver
	config   RehaGripConfig
	interval time.Duration
}

// NewController homes the actuator to the right-hand center with torque
// enabled and lock/emergency cleared. The driver firmware is checked
// against DRIVER_VERSION the same way control-node firmware is gated on
// the bench rigs; "DEV" builds bypass the check.
func NewController(config RehaGripConfig, driver Driver) (c *Controller, err error) {
	if err = checkDriverVersion(driver); err != nil {
		return
	}

	c = &Controller{
		driver:   driver,
		config:   config,
		interval: time.Duration(config.MotionIntervalMs) * time.Millisecond,
		centers: map[Hand]int{
			HandLeft:  config.CenterFor(HandLeft),
			HandRight: config.CenterFor(HandRight),
		},
	}

	center := c.centers[HandRight]
	c.state = State{
		CurrentTick:     center,
		TargetTick:      center,
		CenterTick:      center,
		VelocityPercent: config.DefaultVelocity,
		Hand:            HandRight,
		TorqueEnabled:   true,
	}

	if err = driver.SetTorque(true); err != nil {
		return nil, err
	}
	if err = driver.Goto(center, c.state.VelocityPercent); err != nil {
		return nil, err
	}

	return
}

func checkDriverVersion(driver Driver) (err error) {
	versionString, err := driver.Firmware()
	if err != nil {
		return
	}

	if versionString == "DEV" {
		return nil
	}

	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		return fmt.Errorf("unable to parse driver firmware version %q: %v", versionString, err)
	}

	constraint, err := semver.NewConstraint(DRIVER_VERSION)
	if err != nil {
		return
	}

	if !constraint.Check(semVer) {
		err = fmt.Errorf("unable to use driver: recieved version %s - require %s", versionString, DRIVER_VERSION)
	}
	return
}

// Move validates a move request against the interlocks and, if permitted,
// stages the new target. A hand override performs the full re-home first so
// the move is evaluated against the new hand's center. Rejections leave the
// state untouched.
func (c *Controller) Move(req MoveRequest) (result MoveResult, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if req.Hand != nil && *req.Hand != c.state.Hand {
		if err = c.rehome(*req.Hand); err != nil {
			return
		}
	}

	if err = c.checkInterlocks(); err != nil {
		return
	}

	velocity := c.state.VelocityPercent
	if req.Velocity != nil {
		// out-of-range velocity is a caller error; clamping would silently
		// change therapy intensity
		if *req.Velocity < 1 || *req.Velocity > 100 {
			err = deverrors.InvalidInputError{Field: "velocity", Reason: "must be within [1, 100]"}
			return
		}
		velocity = *req.Velocity
	}

	degrees := req.Degrees
	if c.state.Hand == HandLeft {
		degrees = -degrees
	}

	target := DegreesToTick(c.state.CenterTick, c.state.Hand, req.Degrees)

	if err = c.driver.Goto(target, velocity); err != nil {
		return
	}

	c.state.VelocityPercent = velocity
	c.state.TargetTick = target
	c.state.Moving = target != c.state.CurrentTick
	c.state.Version++

	result = MoveResult{
		PositionDegrees:  c.state.PositionDegrees(),
		PositionTick:     c.state.CurrentTick,
		TargetTick:       target,
		RequestedDegrees: degrees,
	}
	return
}

func (c *Controller) checkInterlocks() error {
	switch {
	case c.state.EmergencyStopped:
		return deverrors.InterlockError{Reason: deverrors.ReasonEmergency}
	case c.state.Locked:
		return deverrors.InterlockError{Reason: deverrors.ReasonLocked}
	case !c.state.TorqueEnabled:
		return deverrors.InterlockError{Reason: deverrors.ReasonTorqueOff}
	}
	return nil
}

// SetCenter records the current position as the active hand's 0° reference.
func (c *Controller) SetCenter() (centerTick int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.state.CenterTick = c.state.CurrentTick
	c.state.TargetTick = c.state.CurrentTick
	c.state.Moving = false
	c.centers[c.state.Hand] = c.state.CenterTick
	c.state.Version++

	return c.state.CenterTick
}

// Recenter moves the actuator to mid-scale and makes that the new center,
// giving the widest symmetric range.
func (c *Controller) Recenter() (centerTick int, rangeDegrees float64, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	middle := (FullTicks + 1) / 2

	if err = c.driver.Goto(middle, c.state.VelocityPercent); err != nil {
		return
	}

	c.state.CenterTick = middle
	c.state.TargetTick = middle
	c.state.Moving = middle != c.state.CurrentTick && !c.state.EmergencyStopped
	c.centers[c.state.Hand] = middle
	c.state.Version++

	_, _, rangeDegrees = RangeForCenter(middle)
	return middle, rangeDegrees, nil
}

// SetHand switches the active hand and performs the full re-home: current
// and target both snap to the new hand's center, never blending the old
// hand's ticks.
func (c *Controller) SetHand(hand Hand) (centerTick int, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err = c.rehome(hand); err != nil {
		return
	}
	return c.state.CenterTick, nil
}

func (c *Controller) rehome(hand Hand) (err error) {
	center := c.centers[hand]

	if err = c.driver.Goto(center, c.state.VelocityPercent); err != nil {
		return
	}

	c.state.Hand = hand
	c.state.CenterTick = center
	c.state.CurrentTick = center
	c.state.TargetTick = center
	c.state.Moving = false
	c.state.Version++
	return
}

func (c *Controller) SetLock(locked bool) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.state.Locked = locked
	c.state.Version++
	return c.state.Locked
}

func (c *Controller) SetTorque(enabled bool) (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.driver.SetTorque(enabled); err != nil {
		return c.state.TorqueEnabled, err
	}

	c.state.TorqueEnabled = enabled
	if !enabled {
		// free rotation; halt the logical motion at the frozen position
		c.state.TargetTick = c.state.CurrentTick
		c.state.Moving = false
	}
	c.state.Version++
	return c.state.TorqueEnabled, nil
}

// SetEmergency engages or clears the emergency stop. Engaging freezes
// motion in place; the stale target is kept but clearing the flag does NOT
// resume travel — the operator must issue a fresh move. That is deliberate:
// after an emergency the limb position should be re-assessed, not resumed.
func (c *Controller) SetEmergency(stopped bool) (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if stopped && !c.state.EmergencyStopped {
		// hold the servo at its present position
		if err := c.driver.Goto(c.state.CurrentTick, c.state.VelocityPercent); err != nil {
			return c.state.EmergencyStopped, err
		}
		c.state.Moving = false
	}

	c.state.EmergencyStopped = stopped
	c.state.Version++
	return c.state.EmergencyStopped, nil
}

// Status returns a read-only snapshot. When sinceVersion is non-nil and
// matches the current version the snapshot is skipped and changed reports
// false.
func (c *Controller) Status(sinceVersion *uint64) (state State, changed bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if sinceVersion != nil && *sinceVersion == c.state.Version {
		return State{Version: c.state.Version}, false
	}

	if load, err := c.driver.ReadLoad(); err == nil {
		c.state.LoadEstimate = load
	}

	return c.state, true
}

// Range reports how far either side of the current center the actuator may
// travel before hitting the tick-space extremes.
func (c *Controller) Range() (centerTick int, min, max, total float64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	min, max, total = RangeForCenter(c.state.CenterTick)
	return c.state.CenterTick, min, max, total
}

// Advance steps CurrentTick toward TargetTick by the distance covered in
// elapsed at the current velocity, landing exactly on the target. It never
// advances while emergency-stopped, and a cleared emergency stays parked
// until a new move re-arms Moving.
func (c *Controller) Advance(elapsed time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.state.EmergencyStopped || !c.state.Moving {
		return
	}

	rate := float64(c.config.MaxTickRate) * float64(c.state.VelocityPercent) / 100.0
	step := int(math.Ceil(rate * elapsed.Seconds()))
	if step < 1 {
		step = 1
	}

	delta := c.state.TargetTick - c.state.CurrentTick
	switch {
	case delta > step:
		c.state.CurrentTick += step
	case delta < -step:
		c.state.CurrentTick -= step
	default:
		c.state.CurrentTick = c.state.TargetTick
		c.state.Moving = false
	}
	c.state.Version++
}

// Run drives the motion loop at the configured cadence until the context is
// cancelled. Tests call Advance directly with synthetic deltas instead.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Advance(c.interval)
		}
	}
}

// Interval reports the motion loop cadence, reused by the status stream.
func (c *Controller) Interval() time.Duration {
	return c.interval
}
