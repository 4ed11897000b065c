package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

type memNonceStore struct {
	mu     sync.Mutex
	values map[string]string
	fail   bool
}

func newMemNonceStore() *memNonceStore {
	return &memNonceStore{values: map[string]string{}}
}

func (s *memNonceStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memNonceStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	s.values[key] = value
	return nil
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(baseURL, 5*time.Second, testSigner(t, false), "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNextNonceIsStrictlyIncreasing(t *testing.T) {
	client := testClient(t, "https://example.invalid")
	prev := client.nextNonce()
	for i := 0; i < 1000; i++ {
		next := client.nextNonce()
		if next <= prev {
			t.Fatalf("nonce went backwards: %d after %d", next, prev)
		}
		prev = next
	}
}

func TestNextNonceConcurrentUniqueness(t *testing.T) {
	client := testClient(t, "https://example.invalid")
	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[uint64]bool, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n := client.nextNonce()
				mu.Lock()
				if seen[n] {
					mu.Unlock()
					t.Errorf("duplicate nonce %d", n)
					return
				}
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestInitNonceStoreSeedsFromPersistedValue(t *testing.T) {
	client := testClient(t, "https://example.invalid")
	store := newMemNonceStore()
	future := uint64(time.Now().UnixMilli()) + uint64((time.Hour).Milliseconds())
	key := nonceStoreKey(client.baseURL, client.signer, client.vaultAddress)
	store.values[key] = strconv.FormatUint(future, 10)

	if err := client.InitNonceStore(context.Background(), store); err != nil {
		t.Fatalf("InitNonceStore failed: %v", err)
	}
	state, ok := client.NonceState()
	if !ok {
		t.Fatalf("expected nonce state after init")
	}
	if state.Last != future {
		t.Fatalf("expected seed %d, got %d", future, state.Last)
	}

	// Issued nonces must stay ahead of the persisted one even though the
	// wall clock is behind it.
	if n := client.nextNonce(); n <= future {
		t.Fatalf("nonce %d not past persisted %d", n, future)
	}
	if got := store.values[key]; got == "" {
		t.Fatalf("expected nonce persisted after issue")
	}
}

func TestInitNonceStoreRejectsGarbage(t *testing.T) {
	client := testClient(t, "https://example.invalid")
	store := newMemNonceStore()
	key := nonceStoreKey(client.baseURL, client.signer, client.vaultAddress)
	store.values[key] = "not-a-number"

	if err := client.InitNonceStore(context.Background(), store); err == nil {
		t.Fatalf("expected error for corrupt stored nonce")
	}
}

func TestPersistFailureDoesNotBlockNonces(t *testing.T) {
	client := testClient(t, "https://example.invalid")
	store := newMemNonceStore()
	if err := client.InitNonceStore(context.Background(), store); err != nil {
		t.Fatalf("InitNonceStore failed: %v", err)
	}
	store.mu.Lock()
	store.fail = true
	store.mu.Unlock()

	first := client.nextNonce()
	second := client.nextNonce()
	if second <= first {
		t.Fatalf("nonces stalled under persist failure: %d then %d", first, second)
	}
}

func TestPlaceOrderPostsSignedAction(t *testing.T) {
	var got struct {
		Action struct {
			Type     string `json:"type"`
			Grouping string `json:"grouping"`
		} `json:"action"`
		Nonce     uint64    `json:"nonce"`
		Signature Signature `json:"signature"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":77}}]}}}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	wire, err := LimitOrderWire(3, false, 0.0001, 100000, false, TifAlo, "")
	if err != nil {
		t.Fatalf("LimitOrderWire failed: %v", err)
	}
	resp, err := client.PlaceOrder(context.Background(), wire)
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	oid, err := RestingOrderID(resp)
	if err != nil {
		t.Fatalf("RestingOrderID failed: %v", err)
	}
	if oid != 77 {
		t.Fatalf("expected oid 77, got %d", oid)
	}
	if got.Action.Type != "order" || got.Action.Grouping != "na" {
		t.Fatalf("unexpected action payload: %+v", got.Action)
	}
	if got.Nonce == 0 || got.Signature.R == "" || got.Signature.S == "" {
		t.Fatalf("missing nonce or signature: %+v", got)
	}
}

func TestModifyOrderRequiresOrderID(t *testing.T) {
	client := testClient(t, "https://example.invalid")
	wire, err := LimitOrderWire(3, false, 0.0001, 100000, false, TifAlo, "")
	if err != nil {
		t.Fatalf("LimitOrderWire failed: %v", err)
	}
	if _, err := client.ModifyOrder(context.Background(), 0, wire); err == nil {
		t.Fatalf("expected error for zero order id")
	}
}

func TestPostSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	wire, err := LimitOrderWire(3, false, 0.0001, 100000, false, TifAlo, "")
	if err != nil {
		t.Fatalf("LimitOrderWire failed: %v", err)
	}
	if _, err := client.PlaceOrder(context.Background(), wire); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}
