package contract

import (
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit for a describe
	// import batch file.
	DefaultSoftLimitBytes = 64 << 20 // 64 MiB

	// RequestIDMaxBytes is a length cap for a description entry's
	// semanticId field. Neither ValidateBatchScript nor the describe
	// import command checks entries against it.
	RequestIDMaxBytes = 128
)

// SoftLimitBytes returns the effective soft limit for a describe import
// batch file. Controlled via env FUNCQC_SOFT_LIMIT_BYTES; falls back to
// DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("FUNCQC_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateBatchScript checks a describe import file's raw contents
// against the soft size limit before it's parsed as a description
// entry array. This is a size guard only — per-entry validation
// (missing semanticId/description) happens downstream, where bad
// entries are skipped and warned about, not rejected wholesale.
func ValidateBatchScript(script string) *ValidationResult {
	if len(script) > SoftLimitBytes() {
		return &ValidationResult{
			OK:      false,
			Message: "describe import file exceeds soft limit",
		}
	}
	return &ValidationResult{OK: true}
}
