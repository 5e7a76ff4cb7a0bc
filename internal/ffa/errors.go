package ffa

import "fmt"

// FetchError reports an upstream response the pipeline cannot use: a non-2xx
// status or a body whose shape does not match the expected collection. It is
// fatal for the current run.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("upstream fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PreconditionError reports week-level state the pipeline refuses to process:
// a missing roster mapping, an odd team count, or an unknown user. It is
// raised before any mutation for the week, so the week can be retried after
// the league data is repaired.
type PreconditionError struct {
	Season int
	Week   int
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("season %d week %d: %s", e.Season, e.Week, e.Reason)
}
