package domain

import (
	"os"
	"time"
)

// AttemptRecord is one entry in a cascade's attempt trace, kept for
// diagnostics and logging. Collaborators never need it to function.
type AttemptRecord struct {
	Source   string        `json:"source"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// AcquisitionResult is the caller-owned outcome of one request. Success
// implies FilePath exists and is non-empty; failure implies FailureKind is
// set. Expected network failures never surface as Go errors past the facade.
type AcquisitionResult struct {
	FilePath     string          `json:"file_path,omitempty"`
	ByteSize     int64           `json:"byte_size"`
	SourceUsed   string          `json:"source_used,omitempty"`
	AttemptsMade int             `json:"attempts_made"`
	WindowOffset int             `json:"window_offset,omitempty"`
	Elapsed      time.Duration   `json:"elapsed_ns"`
	Success      bool            `json:"success"`
	FailureKind  ErrorKind       `json:"failure_reason,omitempty"`
	Diagnosis    string          `json:"diagnosis,omitempty"`
	Trace        []AttemptRecord `json:"trace,omitempty"`
}

// CheckFileExists reports whether the result's file is still present on
// disk. Holds for any successful result until the caller deletes the file.
func (r AcquisitionResult) CheckFileExists() bool {
	if r.FilePath == "" {
		return false
	}
	info, err := os.Stat(r.FilePath)
	return err == nil && info.Size() > 0
}
