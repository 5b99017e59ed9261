package escrow

import (
	"encoding/hex"
	"math/big"
	"testing"

	"escrowmarket/core/events"
)

func TestPurchaseEventPayload(t *testing.T) {
	purchase := &Purchase{
		ID:              7,
		Buyer:           newTestAddress(0x01),
		Seller:          newTestAddress(0x02),
		ProductID:       3,
		Quantity:        2,
		State:           StateCreated,
		BuyerDeposit:    big.NewInt(600),
		SellerDeposit:   big.NewInt(400),
		HeldBuyerFunds:  big.NewInt(0),
		HeldSellerFunds: big.NewInt(400),
	}
	evt := NewPurchaseAcknowledgedEvent(purchase)
	if evt.Type != EventTypePurchaseAcknowledged {
		t.Fatalf("unexpected event type %q", evt.Type)
	}
	if evt.Attributes["id"] != "7" || evt.Attributes["state"] != "created" {
		t.Fatalf("unexpected attributes: %v", evt.Attributes)
	}
	if evt.Attributes["buyer"] != hex.EncodeToString(purchase.Buyer[:]) {
		t.Fatalf("buyer attribute mismatch: %v", evt.Attributes)
	}
	if evt.Attributes["heldSellerFunds"] != "400" {
		t.Fatalf("held funds attribute mismatch: %v", evt.Attributes)
	}
}

func TestEngineEmitsPerTransition(t *testing.T) {
	engine, _, cat, _ := newTestEngine(t)
	sink := events.NewMemory()
	engine.SetEmitter(sink)
	cat.add(1, seller, 100)

	id := mustExpressInterest(t, engine, 1, 2, buyer)
	if err := engine.SellerAcknowledge(id, seller, big.NewInt(400)); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := engine.BuyerConfirm(id, buyer, big.NewInt(600)); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := engine.BuyerConfirmReceipt(id, buyer); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if err := engine.SellerReclaim(id, seller); err != nil {
		t.Fatalf("reclaim: %v", err)
	}

	want := []string{
		EventTypePurchaseCreated,
		EventTypePurchaseAcknowledged,
		EventTypePurchaseConfirmed,
		EventTypePurchaseReleased,
		EventTypePurchaseCompleted,
	}
	got := sink.Events()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, evt := range got {
		if evt.EventType() != want[i] {
			t.Fatalf("event %d: want %s, got %s", i, want[i], evt.EventType())
		}
	}
}

func TestFailedTransitionEmitsNothing(t *testing.T) {
	engine, _, cat, _ := newTestEngine(t)
	sink := events.NewMemory()
	engine.SetEmitter(sink)
	cat.add(1, seller, 100)
	id := mustExpressInterest(t, engine, 1, 2, buyer)
	sink.Reset()

	if err := engine.SellerAcknowledge(id, seller, big.NewInt(1)); err == nil {
		t.Fatal("expected deposit mismatch")
	}
	if len(sink.Events()) != 0 {
		t.Fatal("failed transition must not emit")
	}
}
