package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates the 32-character lowercase hex identifier the platform
// expects: a v4 UUID with the hyphens stripped.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
