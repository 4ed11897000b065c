package market

type OpenOrder struct {
	OrderID int64
	Coin    string
	Price   float64
	Size    float64
	IsBuy   bool
}

// ParseOpenOrders decodes an /info openOrders response (a top-level array of
// order objects).
func ParseOpenOrders(payload any) []OpenOrder {
	raw, ok := toSlice(payload)
	if !ok {
		return nil
	}
	orders := make([]OpenOrder, 0, len(raw))
	for _, entry := range raw {
		m, ok := toMap(entry)
		if !ok {
			continue
		}
		oid, ok := int64FromAny(m["oid"])
		if !ok || oid == 0 {
			continue
		}
		price, _ := floatFromAny(m["limitPx"])
		size, _ := floatFromAny(m["sz"])
		orders = append(orders, OpenOrder{
			OrderID: oid,
			Coin:    stringFromAny(m["coin"]),
			Price:   price,
			Size:    size,
			IsBuy:   stringFromAny(m["side"]) == "B",
		})
	}
	return orders
}
