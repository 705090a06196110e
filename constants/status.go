package constants

// JobStatus is the canonical status for extraction jobs.
type JobStatus string

// Stable values (stored verbatim in the job store).
const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusOK      JobStatus = "OK"
	JobStatusFailed  JobStatus = "FAILED"
)
