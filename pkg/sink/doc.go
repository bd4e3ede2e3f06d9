// Package sink provides supervisor.Sink implementations for task results:
// CSV rows on any io.Writer, structured log entries, JSON lists in Redis, and
// the Multi and Discard combinators.
//
// All sinks are safe for concurrent use by many consumers.
package sink
