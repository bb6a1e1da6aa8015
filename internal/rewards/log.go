package rewards

import "fmt"

// Logger accumulates the human-readable audit trail of a pipeline run,
// mirroring the reference source's Operation/Logger pattern, so the
// final result is auditable the same way a ChangePlan's run_log is on
// the decentralization side. The extrapolation, averaging, multiplier
// and small-provider steps record lines; the metrics selection,
// base-reward lookup and total stages record none.
type Logger struct {
	entries []string
}

func newLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Log(format string, args ...any) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns the accumulated log lines in stage order.
func (l *Logger) Entries() []string {
	return l.entries
}
