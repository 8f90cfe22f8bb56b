package common

import (
	"github.com/google/uuid"
)

// NewSourceID generates a unique Source ID with the "src_" prefix.
// Format: src_<uuid>
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewRunID generates a unique run ID with the "run_" prefix.
func NewRunID() string {
	return "run_" + uuid.New().String()
}
