// Command verify prints the action hash and signature for a fixed sample
// order under a key from the environment, so other implementations of the
// signing scheme can be checked byte for byte.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"hl-chase-bot/internal/config"
	"hl-chase-bot/internal/hl/exchange"
)

const defaultVerifyEnvFile = ".env"

func main() {
	nonce := flag.Uint64("nonce", 1700000000000, "nonce to sign with")
	mainnet := flag.Bool("mainnet", false, "sign with the mainnet source marker")
	asset := flag.Int("asset", 0, "asset id for the sample order")
	price := flag.Float64("price", 100000, "limit price for the sample order")
	size := flag.Float64("size", 0.0001, "size for the sample order")
	buy := flag.Bool("buy", true, "sample order side")
	modifyOid := flag.Int64("modify-oid", 0, "sign a modify of this order id instead of a place")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	privateKey := strings.TrimSpace(os.Getenv("HL_PRIVATE_KEY"))
	if privateKey == "" {
		fatal(fmt.Errorf("HL_PRIVATE_KEY is required"))
	}
	signer, err := exchange.NewSigner(privateKey, *mainnet)
	if err != nil {
		fatal(err)
	}

	wire, err := exchange.LimitOrderWire(*asset, *buy, *size, *price, false, exchange.TifAlo, "")
	if err != nil {
		fatal(err)
	}

	var action any
	var sig exchange.Signature
	if *modifyOid != 0 {
		modify := exchange.ModifyAction{Type: "modify", OrderID: *modifyOid, Order: wire}
		action = modify
		sig, err = signer.SignModifyAction(modify, *nonce, nil)
	} else {
		place := exchange.OrderAction{Type: "order", Orders: []exchange.OrderWire{wire}, Grouping: "na"}
		action = place
		sig, err = signer.SignOrderAction(place, *nonce, nil)
	}
	if err != nil {
		fatal(err)
	}

	out := map[string]any{
		"signer":    signer.Address().Hex(),
		"action":    action,
		"nonce":     *nonce,
		"signature": sig,
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(encoded))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "verify: %v\n", err)
	os.Exit(1)
}
