package market

import (
	"encoding/json"
	"errors"
)

type Fill struct {
	Coin    string
	Price   float64
	Size    float64
	OrderID int64
}

// FillBatch is one userFills event. IsSnapshot marks the initial replay of
// historical fills sent right after subscribing; those are not new fills.
type FillBatch struct {
	IsSnapshot bool
	User       string
	Fills      []Fill
}

// ParseFills decodes the data field of a ws userFills event.
func ParseFills(data json.RawMessage) (FillBatch, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return FillBatch{}, err
	}
	if payload == nil {
		return FillBatch{}, errors.New("empty fills payload")
	}
	batch := FillBatch{
		User: stringFromAny(payload["user"]),
	}
	if snap, ok := payload["isSnapshot"].(bool); ok {
		batch.IsSnapshot = snap
	}
	raw, _ := toSlice(payload["fills"])
	for _, entry := range raw {
		m, ok := toMap(entry)
		if !ok {
			continue
		}
		size, okSz := floatFromAny(m["sz"])
		if !okSz {
			continue
		}
		price, _ := floatFromAny(m["px"])
		oid, _ := int64FromAny(m["oid"])
		batch.Fills = append(batch.Fills, Fill{
			Coin:    stringFromAny(m["coin"]),
			Price:   price,
			Size:    size,
			OrderID: oid,
		})
	}
	return batch, nil
}
