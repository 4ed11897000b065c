package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hl-chase-bot/internal/alerts"
	"hl-chase-bot/internal/chase"
	"hl-chase-bot/internal/config"
	"hl-chase-bot/internal/hl/exchange"
	"hl-chase-bot/internal/hl/rest"
	"hl-chase-bot/internal/hl/ws"
	"hl-chase-bot/internal/market"
	"hl-chase-bot/internal/metrics"
	"hl-chase-bot/internal/state/sqlite"
	"hl-chase-bot/internal/timescale"

	"go.uber.org/zap"
)

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *sqlite.Store
	rest      *rest.Client
	ws        *ws.Client
	exchange  *exchange.Client
	chaser    *chase.Chaser
	prom      *metrics.Prometheus
	timescale *timescale.Writer
	alerts    *alerts.Telegram
	user      string
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	restClient := rest.New(cfg.REST.BaseURL, cfg.REST.Timeout, log)
	wsClient := ws.New(cfg.WS.URL, cfg.WS.PingInterval, log)

	privateKey := strings.TrimSpace(os.Getenv("HL_PRIVATE_KEY"))
	if privateKey == "" {
		return nil, errors.New("HL_PRIVATE_KEY is required")
	}
	vaultAddress := strings.TrimSpace(os.Getenv("HL_VAULT_ADDRESS"))
	isMainnet := !strings.Contains(strings.ToLower(cfg.REST.BaseURL), "testnet")
	signer, err := exchange.NewSigner(privateKey, isMainnet)
	if err != nil {
		return nil, err
	}
	user := strings.TrimSpace(os.Getenv("HL_ACCOUNT_ADDRESS"))
	if user == "" {
		user = signer.Address().Hex()
	}
	exClient, err := exchange.NewClient(cfg.REST.BaseURL, cfg.REST.Timeout, signer, vaultAddress)
	if err != nil {
		return nil, err
	}
	exClient.SetLogger(log)

	side, err := chase.ParseSide(cfg.Chase.Side)
	if err != nil {
		return nil, err
	}

	var prom *metrics.Prometheus
	m := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	tsWriter, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		return nil, err
	}

	gw := &gateway{rest: restClient, ex: exClient, user: user}
	chaser := chase.New(gw, chase.Config{
		Coin: cfg.Chase.Coin,
		Size: cfg.Chase.Size,
		Side: side,
	}, log, m)
	if tsWriter != nil {
		chaser.SetRecorder(eventRecorder{w: tsWriter})
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		rest:      restClient,
		ws:        wsClient,
		exchange:  exClient,
		chaser:    chaser,
		prom:      prom,
		timescale: tsWriter,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		user:      user,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.timescale.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.exchange.InitNonceStore(ctx, a.store); err != nil {
		a.log.Warn("nonce store init failed", zap.Error(err))
	} else if state, ok := a.exchange.NonceState(); ok {
		a.log.Info("nonce persistence enabled", zap.String("nonce_key", state.Key), zap.Uint64("nonce_seed", state.Last))
	}
	a.timescale.Start(ctx)
	a.startMetricsServer(ctx)

	if err := a.ws.Connect(ctx); err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	defer a.ws.Close()
	bookSub := map[string]any{
		"method":       "subscribe",
		"subscription": map[string]any{"type": "l2Book", "coin": a.cfg.Chase.Coin},
	}
	if err := a.ws.Subscribe(ctx, bookSub); err != nil {
		return fmt.Errorf("l2Book subscribe: %w", err)
	}
	fillsSub := map[string]any{
		"method":       "subscribe",
		"subscription": map[string]any{"type": "userFills", "user": a.user},
	}
	if err := a.ws.Subscribe(ctx, fillsSub); err != nil {
		return fmt.Errorf("userFills subscribe: %w", err)
	}

	// A dead feed ends the chase: no reconnect, no replay.
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- a.ws.Run(ctx, a.dispatch)
		cancel()
	}()

	err := a.chaser.Run(ctx)
	cancel()
	select {
	case ferr := <-feedErr:
		if errors.Is(err, context.Canceled) && ferr != nil && !errors.Is(ferr, context.Canceled) {
			err = fmt.Errorf("feed: %w", ferr)
		}
	default:
	}

	if err != nil {
		a.notify(fmt.Sprintf("Chase %s %s failed: %v", a.cfg.Chase.Side, a.cfg.Chase.Coin, err))
		return err
	}
	a.log.Info("chase complete",
		zap.String("coin", a.cfg.Chase.Coin),
		zap.String("side", a.cfg.Chase.Side),
		zap.Float64("size", a.cfg.Chase.Size),
	)
	a.notify(fmt.Sprintf("Chase %s %s size %v filled", a.cfg.Chase.Side, a.cfg.Chase.Coin, a.cfg.Chase.Size))
	return nil
}

// dispatch routes one raw feed message to the chaser.
func (a *App) dispatch(raw json.RawMessage) {
	var msg struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		a.log.Debug("feed decode error", zap.Error(err))
		return
	}
	switch msg.Channel {
	case "l2Book":
		book, err := market.ParseBookMessage(msg.Data)
		if err != nil {
			a.log.Debug("book decode error", zap.Error(err))
			return
		}
		a.chaser.OnBook(book)
	case "userFills":
		batch, err := market.ParseFills(msg.Data)
		if err != nil {
			a.log.Debug("fills decode error", zap.Error(err))
			return
		}
		a.chaser.OnFills(batch)
	}
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
}

func (a *App) notify(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.alerts.Send(ctx, message); err != nil {
		a.log.Warn("alert send failed", zap.Error(err))
	}
}

// eventRecorder bridges the chaser to the Timescale writer.
type eventRecorder struct {
	w *timescale.Writer
}

func (r eventRecorder) Place(coin string, price, size float64) {
	r.w.Enqueue(timescale.Event{Coin: coin, Kind: timescale.EventPlace, ToPrice: price, Size: size, Accepted: true})
}

func (r eventRecorder) Reprice(coin string, from, to float64, accepted bool) {
	r.w.Enqueue(timescale.Event{Coin: coin, Kind: timescale.EventReprice, FromPrice: from, ToPrice: to, Accepted: accepted})
}

func (r eventRecorder) Fill(coin string, size, remaining float64) {
	r.w.Enqueue(timescale.Event{Coin: coin, Kind: timescale.EventFill, Size: size, Remaining: remaining, Accepted: true})
}
