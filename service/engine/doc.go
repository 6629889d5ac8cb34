// Package engine is the workflow core: the only writer of task transitions.
// It classifies submitted proposals against the approval policy, applies
// human decisions, executes approved tasks through their integration, and
// parks failures - enqueueing a replay operation when the cause is a
// transient outage. Every annotation it persists passes through the audit
// sanitizer first.
package engine
