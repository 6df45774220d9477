package output

import "io"

type flusher interface {
	Flush() error
}

// flushIfPossible drains a buffered sink writer at close time. Sinks accept
// plain io.Writers in tests, where there is nothing to flush.
func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}
