package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"

	// Command rejections from the mode supervisor.
	InvalidMode        Code = "invalid_mode"
	TargetOutOfRange   Code = "target_out_of_range"
	RampOutOfRange     Code = "ramp_out_of_range"
	FaultLatched       Code = "fault_latched"
	FaultStillActive   Code = "fault_still_active"
	NoFault            Code = "no_fault"
	NotRegulating      Code = "not_regulating"
	Calibrating        Code = "calibrating"
	NotCalibrating     Code = "not_calibrating"
	CalibrationInvalid Code = "calibration_invalid"
	NotReady           Code = "not_ready"

	Timeout Code = "timeout"
	Error   Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
