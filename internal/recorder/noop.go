package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *Run) error      { return nil }
func (n *NoopRecorder) LastRun(_ int) (*Run, error) { return nil, ErrNoRuns }
func (n *NoopRecorder) Close() error                { return nil }
