// Package handler contains HTTP request handlers for TraceLab.
//
// Handlers are the entry point for HTTP requests, responsible for:
//   - Request parsing and validation
//   - Calling appropriate services
//   - Response formatting
//   - Error response mapping
//
// # Error Handling
//
// Handlers convert domain errors to appropriate HTTP status codes
// using the apperrors package for consistent error responses.
package handler
