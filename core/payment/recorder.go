package payment

// Recorder observes the outcome of settlements.
type Recorder interface {
	Settled(p Payment)
	Rejected(reason string)
}

type nopRecorder struct{}

func (nopRecorder) Settled(Payment) {}
func (nopRecorder) Rejected(string) {}
