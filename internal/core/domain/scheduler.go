package domain

import "time"

// ScheduledTask tracks a recurring sync.
type ScheduledTask struct {
	// Interval defines how often the task runs.
	Interval time.Duration

	// LastRun is when the task last started.
	LastRun time.Time

	// NextRun is when the task runs next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Runs counts completed runs, successful or not.
	Runs int

	// Failures counts runs that ended in an error.
	Failures int
}

// MinScheduleInterval is the shortest interval a recurring sync accepts.
const MinScheduleInterval = time.Minute

// Due returns true if the task should run at now.
func (t ScheduledTask) Due(now time.Time) bool {
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// Record updates the task after a run that started at start and ended at end.
func (t *ScheduledTask) Record(start, end time.Time, err error) {
	t.Runs++
	t.LastRun = start
	t.NextRun = end.Add(t.Interval)
	if err != nil {
		t.Failures++
		t.LastError = err.Error()
		return
	}
	t.LastError = ""
	t.LastSuccess = end
}
