package jobs

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/zeebo/blake3"
)

// Spec describes a job submission before an identifier is assigned.
type Spec struct {
	Queue       string   `json:"queue"`
	Program     string   `json:"program"`
	Arguments   []string `json:"arguments,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Normalize trims whitespace from the spec's identifying fields.
func (s Spec) Normalize() Spec {
	s.Queue = strings.TrimSpace(s.Queue)
	s.Program = strings.TrimSpace(s.Program)
	s.Description = strings.TrimSpace(s.Description)
	return s
}

// Fingerprint returns the blake3 hash of the canonical spec encoding. The
// fingerprint identifies job content for logging and duplicate diagnostics;
// it is not a job identifier.
func (s Spec) Fingerprint() string {
	normalized := s.Normalize()
	payload, err := json.Marshal(normalized)
	if err != nil {
		// Spec contains only strings and slices; marshal cannot fail.
		return ""
	}
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
