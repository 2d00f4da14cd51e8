// Package errors provides structured application errors for TraceLab.
//
// Errors carry a machine-readable code, a human-readable message, and the
// HTTP status they map to at the API boundary. Repositories return
// NotFound for missing rows; the scripting layer returns Invariant for
// contract violations such as a nil trace handle.
//
// A missing analysis module is NOT an error anywhere in this codebase:
// the resolver returns a nil module instead. Only the HTTP handlers
// translate that nil into a 404.
package errors
