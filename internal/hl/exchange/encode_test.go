package exchange

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type decodedOrderWire struct {
	Asset      int    `msgpack:"a"`
	IsBuy      bool   `msgpack:"b"`
	Price      string `msgpack:"p"`
	Size       string `msgpack:"s"`
	ReduceOnly bool   `msgpack:"r"`
	Cloid      string `msgpack:"c"`
}

func TestEncodeOrderActionIsStable(t *testing.T) {
	action := sampleOrderAction(t)
	first, err := EncodeOrderAction(action)
	if err != nil {
		t.Fatalf("EncodeOrderAction failed: %v", err)
	}
	second, err := EncodeOrderAction(action)
	if err != nil {
		t.Fatalf("EncodeOrderAction failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same action produced different bytes")
	}
}

func TestEncodeOrderActionRoundTrip(t *testing.T) {
	payload, err := EncodeOrderAction(sampleOrderAction(t))
	if err != nil {
		t.Fatalf("EncodeOrderAction failed: %v", err)
	}
	var decoded struct {
		Type     string             `msgpack:"type"`
		Orders   []decodedOrderWire `msgpack:"orders"`
		Grouping string             `msgpack:"grouping"`
	}
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Type != "order" || decoded.Grouping != "na" {
		t.Fatalf("unexpected action fields: %+v", decoded)
	}
	if len(decoded.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(decoded.Orders))
	}
	order := decoded.Orders[0]
	if order.Asset != 3 || order.IsBuy || order.Price != "100000" || order.Size != "0.0001" {
		t.Fatalf("unexpected order wire: %+v", order)
	}
	if order.Cloid != "" {
		t.Fatalf("empty cloid must be omitted, got %q", order.Cloid)
	}
}

func TestEncodeOrderWireIncludesCloid(t *testing.T) {
	wire, err := LimitOrderWire(0, true, 1, 100, false, TifAlo, "0x1234")
	if err != nil {
		t.Fatalf("LimitOrderWire failed: %v", err)
	}
	payload, err := EncodeOrderAction(OrderAction{Type: "order", Orders: []OrderWire{wire}})
	if err != nil {
		t.Fatalf("EncodeOrderAction failed: %v", err)
	}
	var decoded struct {
		Orders []decodedOrderWire `msgpack:"orders"`
	}
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded.Orders) != 1 || decoded.Orders[0].Cloid != "0x1234" {
		t.Fatalf("expected cloid on the wire, got %+v", decoded.Orders)
	}
}

func TestEncodeModifyAction(t *testing.T) {
	wire, err := LimitOrderWire(3, false, 0.5, 101, false, TifAlo, "")
	if err != nil {
		t.Fatalf("LimitOrderWire failed: %v", err)
	}
	payload, err := EncodeModifyAction(ModifyAction{Type: "modify", OrderID: 42, Order: wire})
	if err != nil {
		t.Fatalf("EncodeModifyAction failed: %v", err)
	}
	var decoded struct {
		Type    string           `msgpack:"type"`
		OrderID int64            `msgpack:"oid"`
		Order   decodedOrderWire `msgpack:"order"`
	}
	if err := msgpack.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Type != "modify" || decoded.OrderID != 42 {
		t.Fatalf("unexpected action fields: %+v", decoded)
	}
	if decoded.Order.Price != "101" || decoded.Order.Size != "0.5" {
		t.Fatalf("unexpected nested order: %+v", decoded.Order)
	}
}

func TestEncodeValidation(t *testing.T) {
	if _, err := EncodeOrderAction(OrderAction{Type: "order"}); err == nil {
		t.Fatalf("expected error for empty orders")
	}
	if _, err := EncodeModifyAction(ModifyAction{Type: "modify"}); err == nil {
		t.Fatalf("expected error for missing order id")
	}
}
