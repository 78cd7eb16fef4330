package application_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/adapters/memory"
	"github.com/campus-music/campus-music-sub001/internal/application"
	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
)

// scriptedVerifier treats the payload as a key into a table of pre-built events.
type scriptedVerifier struct {
	events map[string]domain.PaymentEvent
	err    error
}

func (v *scriptedVerifier) Verify(payload []byte, _ string) (domain.PaymentEvent, error) {
	if v.err != nil {
		return domain.PaymentEvent{}, v.err
	}
	event, ok := v.events[string(payload)]
	if !ok {
		return domain.PaymentEvent{}, domain.ErrSignatureInvalid
	}
	return event, nil
}

type mapCache struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func (c *mapCache) IsSettled(_ context.Context, txID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.keys[txID]
	return ok, nil
}

func (c *mapCache) MarkSettled(_ context.Context, txID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.keys[txID] = ttl
	return nil
}

func tipEvent(sessionID, artistID, supporterID, amount string) domain.PaymentEvent {
	return domain.PaymentEvent{
		EventID: "evt_" + sessionID,
		Type:    domain.EventCheckoutSessionCompleted,
		Checkout: &domain.CheckoutSession{
			SessionID: sessionID,
			Currency:  "usd",
			Metadata: map[string]string{
				"type":        "artist_tip",
				"artistId":    artistID,
				"supporterId": supporterID,
				"amount":      amount,
			},
		},
	}
}

type harness struct {
	svc      *application.Service
	ledger   *memory.LedgerStore
	verifier *scriptedVerifier
}

func newHarness(t *testing.T, cache ports.SettledTransactionCache) harness {
	t.Helper()
	ledger := memory.NewLedgerStore()
	verifier := &scriptedVerifier{events: map[string]domain.PaymentEvent{}}
	svc := application.NewService(application.Dependencies{
		Config:   application.Config{LedgerCurrency: "USD"},
		Verifier: verifier,
		Ledger:   ledger,
		Settled:  cache,
	})
	svc.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return harness{svc: svc, ledger: ledger, verifier: verifier}
}

func (h harness) deliver(t *testing.T, key string, event domain.PaymentEvent) (application.WebhookResult, error) {
	t.Helper()
	h.verifier.events[key] = event
	return h.svc.HandleWebhook(context.Background(), []byte(key), "sig")
}

func (h harness) wallet(t *testing.T, artistID string) domain.ArtistWallet {
	t.Helper()
	w, err := h.ledger.GetWallet(context.Background(), artistID)
	if err != nil {
		t.Fatalf("get wallet %s: %v", artistID, err)
	}
	return w
}

func TestWebhookSettlesAndSuppressesRedelivery(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	res, err := h.deliver(t, "d1", tipEvent("tx_123", "a1", "u1", "500"))
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if res.Outcome != domain.OutcomeSettled || res.TransactionID != "tx_123" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if w := h.wallet(t, "a1"); w.TotalReceived != 500 || w.Balance != 500 {
		t.Fatalf("unexpected wallet after first delivery: %+v", w)
	}

	res, err = h.deliver(t, "d1", tipEvent("tx_123", "a1", "u1", "500"))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if res.Outcome != domain.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %+v", res)
	}
	if w := h.wallet(t, "a1"); w.TotalReceived != 500 || w.Balance != 500 {
		t.Fatalf("redelivery changed wallet: %+v", w)
	}

	if _, err := h.deliver(t, "d2", tipEvent("tx_124", "a1", "u2", "300")); err != nil {
		t.Fatalf("second tip: %v", err)
	}
	if w := h.wallet(t, "a1"); w.TotalReceived != 800 || w.Balance != 800 {
		t.Fatalf("expected additive wallet of 800, got %+v", w)
	}
	if h.ledger.SupportCount() != 2 {
		t.Fatalf("expected two support records, got %d", h.ledger.SupportCount())
	}
}

func TestConcurrentRedeliveriesCreditOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.verifier.events["dup"] = tipEvent("tx_race", "a1", "u1", "500")

	const workers = 16
	outcomes := make(chan domain.SettlementOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.svc.HandleWebhook(context.Background(), []byte("dup"), "sig")
			if err != nil {
				t.Errorf("delivery failed: %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	settled := 0
	for outcome := range outcomes {
		switch outcome {
		case domain.OutcomeSettled:
			settled++
		case domain.OutcomeDuplicate:
		default:
			t.Fatalf("unexpected outcome %q", outcome)
		}
	}
	if settled != 1 {
		t.Fatalf("expected exactly one settlement, got %d", settled)
	}
	if w := h.wallet(t, "a1"); w.TotalReceived != 500 {
		t.Fatalf("expected wallet credited once, got %+v", w)
	}
}

func TestConcurrentDistinctTipsAreAdditive(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	const tips = 10
	for i := 0; i < tips; i++ {
		key := string(rune('a' + i))
		h.verifier.events[key] = tipEvent("tx_"+key, "a1", "u1", "100")
	}
	var wg sync.WaitGroup
	for i := 0; i < tips; i++ {
		key := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.HandleWebhook(context.Background(), []byte(key), "sig"); err != nil {
				t.Errorf("delivery %s: %v", key, err)
			}
		}()
	}
	wg.Wait()

	if w := h.wallet(t, "a1"); w.TotalReceived != 1000 || w.Balance != 1000 {
		t.Fatalf("expected 1000 credited, got %+v", w)
	}
}

func TestFailedSettlementLeavesNoPartialState(t *testing.T) {
	t.Parallel()
	for _, point := range []memory.FaultPoint{memory.FaultInsertSupport, memory.FaultUpsertWallet, memory.FaultEnqueueOutbox} {
		point := point
		t.Run(string(point), func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nil)
			h.ledger.SetFault(point, errors.New("disk full"))

			_, err := h.deliver(t, "d", tipEvent("tx_fault", "a1", "u1", "500"))
			if !errors.Is(err, domain.ErrLedgerUnavailable) {
				t.Fatalf("expected ErrLedgerUnavailable, got %v", err)
			}
			if h.ledger.SupportCount() != 0 {
				t.Fatal("support record survived a failed settlement")
			}
			if _, err := h.ledger.GetWallet(context.Background(), "a1"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("wallet survived a failed settlement: %v", err)
			}

			h.ledger.SetFault(point, nil)
			res, err := h.deliver(t, "d", tipEvent("tx_fault", "a1", "u1", "500"))
			if err != nil || res.Outcome != domain.OutcomeSettled {
				t.Fatalf("expected retry to settle, res=%+v err=%v", res, err)
			}
		})
	}
}

func TestSettlementEnqueuesSupportSettledEvent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	if _, err := h.deliver(t, "d", tipEvent("tx_evt", "a9", "u1", "700")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	rows, err := h.ledger.OutboxRepository().FetchUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch outbox: %v", err)
	}
	if len(rows) != 1 || rows[0].EventType != domain.EventSupportSettled || rows[0].PartitionKey != "a9" {
		t.Fatalf("unexpected outbox rows: %+v", rows)
	}
}

func TestClassifierDropsIncompleteTips(t *testing.T) {
	t.Parallel()
	mutate := map[string]func(e *domain.PaymentEvent){
		"wrong type":        func(e *domain.PaymentEvent) { e.Checkout.Metadata["type"] = "merch" },
		"missing artist":    func(e *domain.PaymentEvent) { delete(e.Checkout.Metadata, "artistId") },
		"missing supporter": func(e *domain.PaymentEvent) { e.Checkout.Metadata["supporterId"] = "  " },
		"missing amount":    func(e *domain.PaymentEvent) { delete(e.Checkout.Metadata, "amount") },
		"non integer":       func(e *domain.PaymentEvent) { e.Checkout.Metadata["amount"] = "5.00" },
		"zero amount":       func(e *domain.PaymentEvent) { e.Checkout.Metadata["amount"] = "0" },
		"negative amount":   func(e *domain.PaymentEvent) { e.Checkout.Metadata["amount"] = "-500" },
		"above ceiling":     func(e *domain.PaymentEvent) { e.Checkout.Metadata["amount"] = "9223372036854775807" },
		"total mismatch":    func(e *domain.PaymentEvent) { e.Checkout.AmountTotal = 900 },
		"other currency":    func(e *domain.PaymentEvent) { e.Checkout.Currency = "eur" },
		"no session id":     func(e *domain.PaymentEvent) { e.Checkout.SessionID = "" },
		"no session":        func(e *domain.PaymentEvent) { e.Checkout = nil },
	}
	for name, fn := range mutate {
		name, fn := name, fn
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nil)
			event := tipEvent("tx_bad", "a1", "u1", "500")
			fn(&event)

			res, err := h.deliver(t, "d", event)
			if err != nil {
				t.Fatalf("dropped events must be acknowledged, got %v", err)
			}
			if res.Outcome != domain.OutcomeDropped || res.Reason == "" {
				t.Fatalf("expected dropped with reason, got %+v", res)
			}
			if h.ledger.SupportCount() != 0 {
				t.Fatal("dropped event reached the ledger")
			}
		})
	}
}

func TestClassifierIgnoresOtherEventTypes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	event := tipEvent("tx_other", "a1", "u1", "500")
	event.Type = "payment_intent.succeeded"

	res, err := h.deliver(t, "d", event)
	if err != nil || res.Outcome != domain.OutcomeIgnored {
		t.Fatalf("expected ignored, res=%+v err=%v", res, err)
	}
	if h.ledger.SupportCount() != 0 {
		t.Fatal("ignored event reached the ledger")
	}
}

func TestClassifierTruncatesLongMessages(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	event := tipEvent("tx_msg", "a1", "u1", "500")
	long := make([]rune, domain.MaxSupportMessageRunes+50)
	for i := range long {
		long[i] = 'ä'
	}
	event.Checkout.Metadata["message"] = string(long)

	if _, err := h.deliver(t, "d", event); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	items, err := h.svc.ListArtistSupports(context.Background(), ports.AuthClaims{UserID: "a1"}, "a1", application.SupportListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || len([]rune(items[0].Message)) != domain.MaxSupportMessageRunes {
		t.Fatalf("expected message truncated to %d runes", domain.MaxSupportMessageRunes)
	}
}

func TestUnauthenticatedEventsNeverReachLedger(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	_, err := h.svc.HandleWebhook(context.Background(), []byte("unknown"), "forged")
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if h.ledger.SupportCount() != 0 {
		t.Fatal("unauthenticated event reached the ledger")
	}
}

func TestMalformedVerifiedEventIsDropped(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.verifier.err = errors.Join(domain.ErrMalformedEvent, errors.New("bad json"))

	res, err := h.svc.HandleWebhook(context.Background(), []byte("x"), "sig")
	if err != nil || res.Outcome != domain.OutcomeDropped {
		t.Fatalf("expected dropped ack, res=%+v err=%v", res, err)
	}
}

func TestSettledCacheShortCircuitsKnownTransactions(t *testing.T) {
	t.Parallel()
	cache := &mapCache{keys: map[string]time.Duration{"tx_cached": time.Hour}}
	h := newHarness(t, cache)
	h.ledger.SetFault(memory.FaultInsertSupport, errors.New("ledger must not be written"))

	res, err := h.deliver(t, "d", tipEvent("tx_cached", "a1", "u1", "500"))
	if err != nil || res.Outcome != domain.OutcomeDuplicate {
		t.Fatalf("expected cached duplicate, res=%+v err=%v", res, err)
	}
}

func TestSettledCacheIsPopulatedAfterSettlement(t *testing.T) {
	t.Parallel()
	cache := &mapCache{keys: map[string]time.Duration{}}
	h := newHarness(t, cache)

	if _, err := h.deliver(t, "d", tipEvent("tx_fresh", "a1", "u1", "500")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if ttl, ok := cache.keys["tx_fresh"]; !ok || ttl != 72*time.Hour {
		t.Fatalf("expected settled key with default ttl, got %v %v", ttl, ok)
	}
}

func TestSettledCacheOutageFallsBackToLedger(t *testing.T) {
	t.Parallel()
	cache := &mapCache{keys: map[string]time.Duration{}, err: errors.New("redis down")}
	h := newHarness(t, cache)

	res, err := h.deliver(t, "d", tipEvent("tx_nocache", "a1", "u1", "500"))
	if err != nil || res.Outcome != domain.OutcomeSettled {
		t.Fatalf("expected settlement despite cache outage, res=%+v err=%v", res, err)
	}
	res, err = h.deliver(t, "d", tipEvent("tx_nocache", "a1", "u1", "500"))
	if err != nil || res.Outcome != domain.OutcomeDuplicate {
		t.Fatalf("expected ledger to catch duplicate, res=%+v err=%v", res, err)
	}
}

func TestSettleRejectsInvalidTip(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	_, err := h.svc.Settle(context.Background(), domain.TipSettlement{ArtistID: "a1", SupporterID: "u1", TransactionID: "tx", Amount: 0})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSettleTrimsTransactionIDBeforeWriting(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.svc.Settle(ctx, domain.TipSettlement{ArtistID: " a1", SupporterID: "u1 ", TransactionID: "tx_124 ", Amount: 300})
	if err != nil || first.Outcome != domain.OutcomeSettled {
		t.Fatalf("first settle: res=%+v err=%v", first, err)
	}
	second, err := h.svc.Settle(ctx, domain.TipSettlement{ArtistID: "a1", SupporterID: "u1", TransactionID: "tx_124", Amount: 300})
	if err != nil || second.Outcome != domain.OutcomeDuplicate {
		t.Fatalf("expected duplicate for the same id without padding, res=%+v err=%v", second, err)
	}
	if h.ledger.SupportCount() != 1 {
		t.Fatalf("expected one support record, got %d", h.ledger.SupportCount())
	}
	if w := h.wallet(t, "a1"); w.TotalReceived != 300 || w.Balance != 300 {
		t.Fatalf("expected a single credit of 300, got %+v", w)
	}
	page, err := h.ledger.ListSupportsByArtist(ctx, "a1", 10, 0)
	if err != nil || len(page) != 1 || page[0].TransactionID != "tx_124" || page[0].SupporterID != "u1" {
		t.Fatalf("expected stored ids to be trimmed, page=%+v err=%v", page, err)
	}
}

func TestSettleRejectsAmountAboveCeiling(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	_, err := h.svc.Settle(context.Background(), domain.TipSettlement{ArtistID: "a1", SupporterID: "u1", TransactionID: "tx_max", Amount: math.MaxInt64})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if h.ledger.SupportCount() != 0 {
		t.Fatal("rejected tip reached the ledger")
	}
}

func TestWalletOverflowDropsWithoutPartialWrites(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	full := domain.ArtistWallet{ArtistID: "a1", TotalReceived: math.MaxInt64 - 10, Balance: math.MaxInt64 - 10}
	h.ledger.OverwriteWallet(full)

	_, err := h.svc.Settle(context.Background(), domain.TipSettlement{ArtistID: "a1", SupporterID: "u1", TransactionID: "tx_of", Amount: 500})
	if !errors.Is(err, domain.ErrInvalidInput) || !errors.Is(err, domain.ErrWalletOverflow) {
		t.Fatalf("expected invalid input wrapping wallet overflow, got %v", err)
	}
	if w := h.wallet(t, "a1"); w.TotalReceived != full.TotalReceived || w.Balance != full.Balance {
		t.Fatalf("overflowing credit changed the wallet: %+v", w)
	}
	if h.ledger.SupportCount() != 0 {
		t.Fatal("overflowing credit left a support record")
	}

	res, err := h.deliver(t, "d", tipEvent("tx_of", "a1", "u1", "500"))
	if err != nil || res.Outcome != domain.OutcomeDropped {
		t.Fatalf("expected the webhook to acknowledge as dropped, res=%+v err=%v", res, err)
	}
}
