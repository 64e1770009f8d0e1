package fluid

import "fmt"

// AllocationError reports an invalid or unsupported field buffer request.
// It is fatal to the simulation instance that raised it; recovery means
// reinitializing with valid parameters.
type AllocationError struct {
	Width    int
	Height   int
	Channels int
	Reason   string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating %dx%d field with %d channels: %s", e.Width, e.Height, e.Channels, e.Reason)
}

// ConfigurationError reports an out-of-range tunable. It is returned when
// the value is set, before it can reach a simulation step; on a rejected
// live update the previous configuration stays active.
type ConfigurationError struct {
	Option string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config option %s = %v: %s", e.Option, e.Value, e.Reason)
}
