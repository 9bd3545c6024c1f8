package raster

import "fmt"

// InputError marks a dataset level input problem: a raster that cannot be
// opened, a band index out of range, a missing CRS, or an invalid zoom
// range. It is fatal for the dataset it occurred on and must not abort the
// rest of the batch.
type InputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("input error: %s: %v", msg, e.Err)
	}
	return "input error: " + msg
}

func (e *InputError) Unwrap() error {
	return e.Err
}
