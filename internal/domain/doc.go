// Package domain contains the core domain entities for TraceLab: traces
// and experiments, registered analysis modules, scripted analyses and
// their backends, trace events, and script runs.
//
// Domain types carry no behavior beyond simple accessors. Persistence
// and traversal logic lives in the repository and registry packages.
package domain
