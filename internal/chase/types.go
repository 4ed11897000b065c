package chase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hl-chase-bot/internal/market"
)

type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateResolving     State = "RESOLVING"
	StateResting       State = "RESTING"
	StateModifying     State = "MODIFYING"
	StateClosed        State = "CLOSED"
)

// Side indexes the book: bids for a buy chase, asks for a sell chase.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) Index() int {
	return int(s)
}

func (s Side) IsBuy() bool {
	return s == SideBuy
}

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy", "b":
		return SideBuy, nil
	case "sell", "s":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", raw)
	}
}

// OrderRequest is what the chaser asks the gateway to put on the book. Every
// order is a post-only limit for the chase's remaining size.
type OrderRequest struct {
	Asset      int
	IsBuy      bool
	Size       float64
	LimitPrice float64
}

// Gateway is the venue surface the chaser consumes: synchronous info queries
// and signed order submission. Feed events arrive separately through OnBook
// and OnFills.
type Gateway interface {
	AssetID(ctx context.Context, coin string) (int, error)
	Book(ctx context.Context, coin string) (market.Book, error)
	OpenOrders(ctx context.Context) ([]market.OpenOrder, error)
	Place(ctx context.Context, req OrderRequest) (int64, error)
	Modify(ctx context.Context, orderID int64, req OrderRequest) error
}

// Recorder receives chase lifecycle events for post-trade analysis. All
// methods must be non-blocking.
type Recorder interface {
	Place(coin string, price, size float64)
	Reprice(coin string, from, to float64, accepted bool)
	Fill(coin string, size, remaining float64)
}

var (
	// ErrAssetNotFound means the coin is absent from the meta universe.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrPlacementRejected means the venue refused the initial order. The
	// chase never retries a placement.
	ErrPlacementRejected = errors.New("order placement rejected")
)
