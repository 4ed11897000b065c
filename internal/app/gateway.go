package app

import (
	"context"
	"fmt"

	"hl-chase-bot/internal/chase"
	"hl-chase-bot/internal/hl/exchange"
	"hl-chase-bot/internal/hl/rest"
	"hl-chase-bot/internal/market"
)

// gateway adapts the REST and exchange clients to the surface the chaser
// consumes.
type gateway struct {
	rest *rest.Client
	ex   *exchange.Client
	user string
}

func (g *gateway) AssetID(ctx context.Context, coin string) (int, error) {
	meta, err := g.rest.Info(ctx, rest.InfoRequest{Type: "meta"})
	if err != nil {
		return 0, err
	}
	id, ok := market.AssetIndex(meta, coin)
	if !ok {
		return 0, fmt.Errorf("%w: %s", chase.ErrAssetNotFound, coin)
	}
	return id, nil
}

func (g *gateway) Book(ctx context.Context, coin string) (market.Book, error) {
	resp, err := g.rest.Info(ctx, rest.InfoRequest{Type: "l2Book", Coin: coin})
	if err != nil {
		return market.Book{}, err
	}
	return market.ParseBook(resp)
}

func (g *gateway) OpenOrders(ctx context.Context) ([]market.OpenOrder, error) {
	resp, err := g.rest.InfoAny(ctx, rest.InfoRequest{Type: "openOrders", User: g.user})
	if err != nil {
		return nil, err
	}
	return market.ParseOpenOrders(resp), nil
}

func (g *gateway) Place(ctx context.Context, req chase.OrderRequest) (int64, error) {
	wire, err := exchange.LimitOrderWire(req.Asset, req.IsBuy, req.Size, req.LimitPrice, false, exchange.TifAlo, "")
	if err != nil {
		return 0, err
	}
	resp, err := g.ex.PlaceOrder(ctx, wire)
	if err != nil {
		return 0, err
	}
	oid, err := exchange.RestingOrderID(resp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", chase.ErrPlacementRejected, err)
	}
	return oid, nil
}

func (g *gateway) Modify(ctx context.Context, orderID int64, req chase.OrderRequest) error {
	wire, err := exchange.LimitOrderWire(req.Asset, req.IsBuy, req.Size, req.LimitPrice, false, exchange.TifAlo, "")
	if err != nil {
		return err
	}
	resp, err := g.ex.ModifyOrder(ctx, orderID, wire)
	if err != nil {
		return err
	}
	if ok, reason := exchange.ModifyAccepted(resp); !ok {
		return fmt.Errorf("venue rejected modify: %s", reason)
	}
	return nil
}
