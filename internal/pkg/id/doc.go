// Package id provides identifier generation for TraceLab.
//
// This package generates:
//   - trace IDs (32 hex characters)
//   - script run IDs (run-<uuid>)
//   - UUID v4 identifiers
//
// All functions are safe for concurrent use.
package id
