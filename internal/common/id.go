package common

import (
	"github.com/google/uuid"
)

// NewTaskID generates a unique task identifier with the "task_" prefix.
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewFoundJobID generates a unique found-job identifier with the "job_" prefix.
func NewFoundJobID() string {
	return "job_" + uuid.New().String()
}
