package errors

import "fmt"

// Interlock reasons reported back to the caller so the UI can tell the
// operator which condition to clear before retrying.
const (
	ReasonLocked    = "locked"
	ReasonTorqueOff = "torque disabled"
	ReasonEmergency = "emergency stop"
)

type InterlockError struct {
	Reason string
}

func (err InterlockError) Error() string {
	if len(err.Reason) == 0 {
		err.Reason = "UNKOWN"
	}
	return fmt.Sprintf("movement rejected: %s", err.Reason)
}

type InvalidInputError struct {
	Field  string
	Reason string
}

func (err InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}

type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (err StorageError) Error() string {
	return fmt.Sprintf("preset storage %s failed for %s: %v", err.Op, err.Path, err.Err)
}

func (err StorageError) Unwrap() error {
	return err.Err
}
