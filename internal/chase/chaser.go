package chase

import (
	"context"
	"fmt"
	"sync"

	"hl-chase-bot/internal/market"
	"hl-chase-bot/internal/metrics"

	"go.uber.org/zap"
)

const sizeEpsilon = 1e-9

type Config struct {
	Coin string
	Size float64
	Side Side
}

// Chaser keeps one resting post-only order pinned at the best price on its
// side of the book, repricing as the book moves, until the requested size is
// filled. All state mutation happens on the Run goroutine: feed events are
// funneled through a single channel, so no lock is needed beyond the
// cooperative modifying guard.
type Chaser struct {
	gw      Gateway
	log     *zap.Logger
	metrics *metrics.Metrics
	rec     Recorder

	coin string
	side Side

	state          State
	assetID        int
	remaining      float64
	trackedPrice   float64
	restingOrderID int64
	modifying      bool

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
}

type event struct {
	book  *market.Book
	fills *market.FillBatch
}

func New(gw Gateway, cfg Config, log *zap.Logger, m *metrics.Metrics) *Chaser {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Chaser{
		gw:        gw,
		log:       log,
		metrics:   m,
		coin:      cfg.Coin,
		side:      cfg.Side,
		state:     StateUninitialized,
		remaining: cfg.Size,
		events:    make(chan event, 64),
		done:      make(chan struct{}),
	}
}

func (c *Chaser) SetRecorder(rec Recorder) {
	c.rec = rec
}

// Done is closed when the chase reaches its terminal state; the feed
// subscription should be torn down at that point.
func (c *Chaser) Done() <-chan struct{} {
	return c.done
}

func (c *Chaser) State() State {
	return c.state
}

func (c *Chaser) Remaining() float64 {
	return c.remaining
}

// OnBook hands a book snapshot to the chase loop. It never blocks past chase
// termination.
func (c *Chaser) OnBook(book market.Book) {
	select {
	case c.events <- event{book: &book}:
	case <-c.done:
	}
}

// OnFills hands a fill batch to the chase loop.
func (c *Chaser) OnFills(fills market.FillBatch) {
	select {
	case c.events <- event{fills: &fills}:
	case <-c.done:
	}
}

// Run resolves the asset, places the initial order and then drains feed
// events until the size is filled or a fatal error occurs. It owns all chase
// state for its whole lifetime.
func (c *Chaser) Run(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		c.close()
		return err
	}
	for {
		select {
		case <-ctx.Done():
			c.close()
			return ctx.Err()
		case ev := <-c.events:
			if ev.book != nil {
				c.handleBook(ctx, *ev.book)
			}
			if ev.fills != nil {
				c.handleFills(*ev.fills)
			}
			if c.state == StateClosed {
				return nil
			}
		}
	}
}

func (c *Chaser) start(ctx context.Context) error {
	c.state = StateResolving
	assetID, err := c.gw.AssetID(ctx, c.coin)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", c.coin, err)
	}
	c.assetID = assetID

	book, err := c.gw.Book(ctx, c.coin)
	if err != nil {
		return fmt.Errorf("initial book: %w", err)
	}
	levels := book.Side(c.side.Index())
	if len(levels) < 2 {
		return fmt.Errorf("initial book has %d levels on the %s side", len(levels), c.side)
	}
	// The chase seeds from the second level of the initial snapshot, the
	// price it will rest behind once its own order occupies the top.
	c.trackedPrice = levels[1].Price

	orderID, err := c.gw.Place(ctx, c.orderRequest())
	if err != nil {
		return fmt.Errorf("place %s %s: %w", c.side, c.coin, err)
	}
	c.restingOrderID = orderID
	c.state = StateResting
	c.metrics.OrdersPlaced.Inc()
	if c.rec != nil {
		c.rec.Place(c.coin, c.trackedPrice, c.remaining)
	}
	c.log.Info("order resting",
		zap.String("coin", c.coin),
		zap.String("side", c.side.String()),
		zap.Float64("price", c.trackedPrice),
		zap.Float64("size", c.remaining),
		zap.Int64("oid", orderID),
	)
	return nil
}

func (c *Chaser) handleBook(ctx context.Context, book market.Book) {
	if c.modifying || c.trackedPrice <= 0 {
		return
	}
	if c.remaining <= sizeEpsilon {
		c.close()
		return
	}
	levels := book.Side(c.side.Index())
	if len(levels) == 0 {
		return
	}
	last := c.trackedPrice
	if levels[0].Count == 1 && levels[0].Price == last {
		// A single order resting exactly at the tracked price is taken to
		// be our own; the competitive price is the level behind it.
		if len(levels) < 2 {
			return
		}
		c.trackedPrice = levels[1].Price
		c.issueModify(ctx, last)
		return
	}
	c.trackedPrice = levels[0].Price
	if c.restingOrderID != 0 && last != c.trackedPrice {
		c.issueModify(ctx, last)
	}
}

// issueModify reprices the resting order to the current tracked price. The
// modifying flag guards against overlapping modifies from rapid book
// updates; it is cleared on every exit path.
func (c *Chaser) issueModify(ctx context.Context, from float64) {
	if c.restingOrderID == 0 {
		return
	}
	c.modifying = true
	c.state = StateModifying
	c.metrics.ModifiesSubmitted.Inc()
	err := c.gw.Modify(ctx, c.restingOrderID, c.orderRequest())
	if err != nil {
		// Recoverable: the prior order is assumed still resting and the
		// next book event retries.
		c.metrics.ModifiesRejected.Inc()
		c.log.Warn("modify rejected",
			zap.Int64("oid", c.restingOrderID),
			zap.Float64("price", c.trackedPrice),
			zap.Error(err),
		)
		if c.rec != nil {
			c.rec.Reprice(c.coin, from, c.trackedPrice, false)
		}
		c.modifying = false
		c.state = StateResting
		return
	}
	if c.rec != nil {
		c.rec.Reprice(c.coin, from, c.trackedPrice, true)
	}
	// The modify acknowledgment carries no fresh order id, so drop ours and
	// resynchronize from the account's open orders.
	c.restingOrderID = 0
	c.resyncOrders(ctx)
	c.modifying = false
	if c.state != StateClosed {
		c.state = StateResting
	}
}

func (c *Chaser) resyncOrders(ctx context.Context) {
	orders, err := c.gw.OpenOrders(ctx)
	if err != nil {
		c.log.Warn("open orders resync failed", zap.Error(err))
		return
	}
	switch len(orders) {
	case 0:
		// Nothing resting means the order is gone, i.e. fully resolved.
		c.log.Info("no open orders after modify, chase complete")
		c.close()
	case 1:
		c.restingOrderID = orders[0].OrderID
	default:
		c.log.Warn("ambiguous open orders after modify, leaving order id unresolved",
			zap.Int("open_orders", len(orders)))
	}
}

func (c *Chaser) handleFills(batch market.FillBatch) {
	if batch.IsSnapshot {
		return
	}
	for _, fill := range batch.Fills {
		if fill.Coin != "" && fill.Coin != c.coin {
			continue
		}
		c.remaining -= fill.Size
		if c.remaining < 0 {
			c.remaining = 0
		}
		c.metrics.FillsApplied.Inc()
		if c.rec != nil {
			c.rec.Fill(c.coin, fill.Size, c.remaining)
		}
		c.log.Info("fill applied",
			zap.Float64("size", fill.Size),
			zap.Float64("remaining", c.remaining),
		)
	}
	if c.remaining <= sizeEpsilon {
		c.remaining = 0
		c.close()
	}
}

func (c *Chaser) orderRequest() OrderRequest {
	return OrderRequest{
		Asset:      c.assetID,
		IsBuy:      c.side.IsBuy(),
		Size:       c.remaining,
		LimitPrice: c.trackedPrice,
	}
}

func (c *Chaser) close() {
	c.closeOnce.Do(func() {
		c.state = StateClosed
		close(c.done)
	})
}
