// Package domain provides canonical type definitions for the conveyor
// pipeline orchestrator.
//
// This package is Layer 0 of the module - a zero-dependency library of pure
// data structures with struct tags for JSON serialization. It defines the
// vocabulary shared by every other package: revisions, tool invocations,
// reports, gate decisions, tags, release records, and stage status.
//
// # Design Principles
//
//   - Zero dependencies (standard library only)
//   - Pure data structures (no business logic beyond derivation helpers)
//   - Type-safe enumerations for pipeline concepts
//   - Flat structure with no sub-packages
//
// Behavior lives in the packages that consume these types: runner executes
// ToolInvocations, report produces Reports, gate produces GateDecisions,
// tag allocates Tags, and scheduler drives StageStatus transitions.
package domain
