package pipeline

// RunStats summarises one pass over the source directory.
type RunStats struct {
	Total     int
	Processed int
	Failed    int
	Bytes     int64
	Tracks    int
	// Stopped is set when the run ended early through fail-fast or cancellation.
	Stopped bool
	Errors  []error
}

// Remaining returns how many discovered archives were not attempted.
func (s RunStats) Remaining() int {
	return s.Total - s.Processed - s.Failed
}
