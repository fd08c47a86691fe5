// Package contract provides size-limit validation for the describe
// import batch file (funcqc describe import <file>).
//
// # Batch Size Limits
//
// Import files are capped to prevent memory exhaustion when a caller
// hands funcqc an unexpectedly large JSON array:
//
//	// Default limit is 64 MiB
//	limit := contract.SoftLimitBytes()
//
//	// Validate a batch file's raw contents before parsing
//	result := contract.ValidateBatchScript(raw)
//	if !result.OK {
//	    log.Printf("validation failed: %s", result.Message)
//	}
//
// # Configuration via Environment
//
// The soft limit can be adjusted via the FUNCQC_SOFT_LIMIT_BYTES
// environment variable:
//
//	export FUNCQC_SOFT_LIMIT_BYTES=33554432  # 32 MiB
//
// If unset or invalid, DefaultSoftLimitBytes (64 MiB) applies.
package contract
