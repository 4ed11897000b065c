package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	OrdersPlaced      Counter
	ModifiesSubmitted Counter
	ModifiesRejected  Counter
	FillsApplied      Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OrdersPlaced:      n,
		ModifiesSubmitted: n,
		ModifiesRejected:  n,
		FillsApplied:      n,
	}
}
