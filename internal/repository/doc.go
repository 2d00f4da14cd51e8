// Package repository contains the persistence implementations.
//
// PostgreSQL holds trace metadata, registered analysis modules, backend
// records with their intervals and segments, and script run history.
// ClickHouse holds the raw trace events.
package repository
