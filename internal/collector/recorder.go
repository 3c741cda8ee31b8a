package collector

import "time"

// Recorder observes a run as it happens.
type Recorder interface {
	ExternalRequest(provider string, ok bool)
	CacheHit(provider string)
	Normalized(provider string, kept, dropped int)
	RunFinished(r RunReport, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ExternalRequest(string, bool)           {}
func (nopRecorder) CacheHit(string)                        {}
func (nopRecorder) Normalized(string, int, int)            {}
func (nopRecorder) RunFinished(RunReport, time.Duration) {}
