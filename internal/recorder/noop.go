package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *AnalysisRecord) error        { return nil }
func (n *NoopRecorder) RecordFailure(_ *FailureRecord) error          { return nil }
func (n *NoopRecorder) RecordChange(_ *ChangeRecord) error            { return nil }
func (n *NoopRecorder) History(_ string, _ int) ([]HistoryRow, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                  { return nil }
