// Package storage provides a minimal persistence layer for run history.
//
// It currently supports:
//   - Run summary appends (one row per completed run)
//   - Per-task result appends (correlated by run ID)
package storage
