// Package report provides the event sinks that observe scheduler runs:
// console logging, a JSON lines report file, run history persistence and
// Telegram announcements. All sinks are safe to combine; each one ignores
// events it has no interest in.
package report
