package pipeline

import "errors"

var (
	ErrMissingCredential = errors.New("ai service credential is not configured")
	ErrMissingImage      = errors.New("image is required")
	ErrNoContent         = errors.New("no content in ai response")
	ErrMalformedResult   = errors.New("ai response does not match the analysis schema")
)

// ConfigurationError means the pipeline cannot run with the current
// configuration. No network call has been made when it is returned.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// InputError means the form handed to the pipeline is unusable.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// AnalysisError wraps any stage-1 failure: transport error, timeout, empty
// response or a response that fails schema checks.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return "analysis: " + e.Err.Error() }
func (e *AnalysisError) Unwrap() error { return e.Err }
