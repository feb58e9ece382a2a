package motor

// Driver is the hardware-facing side of the controller. It accepts absolute
// tick targets plus a velocity and reports back nothing beyond optional
// position/load sampling; all logical/safety decisions live above it.
type Driver interface {
	// Goto stages an absolute tick target at the given velocity percent.
	Goto(tick, velocityPercent int) error

	SetTorque(enabled bool) error

	ReadPosition() (tick int, err error)

	// ReadLoad samples the advisory load estimate in Nm. Not safety critical.
	ReadLoad() (load float64, err error)

	// Firmware reports the driver firmware version string. "DEV" is accepted
	// as an unversioned development build.
	Firmware() (version string, err error)

	Close() error
}
