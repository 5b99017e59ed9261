package events

import (
	"testing"

	"escrowmarket/core/types"
	"escrowmarket/storage/kv"
)

type stubEvent struct {
	evt *types.Event
}

func (s stubEvent) EventType() string {
	if s.evt == nil {
		return ""
	}
	return s.evt.Type
}

func (s stubEvent) Event() *types.Event { return s.evt }

func TestJournalPersistsEventsInSequence(t *testing.T) {
	db := kv.NewMemDB()
	journal, err := NewJournal(db, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	journal.Emit(stubEvent{evt: &types.Event{Type: "escrow.purchase.created", Attributes: map[string]string{"id": "1"}}})
	journal.Emit(stubEvent{evt: &types.Event{Type: "escrow.purchase.acknowledged", Attributes: map[string]string{"id": "1"}}})
	if got := journal.Len(); got != 2 {
		t.Fatalf("expected 2 journalled entries, got %d", got)
	}
	first, err := journal.Entry(0)
	if err != nil {
		t.Fatalf("load entry 0: %v", err)
	}
	if first.Type != "escrow.purchase.created" {
		t.Fatalf("unexpected entry type %q", first.Type)
	}
	if first.Attributes["id"] != "1" {
		t.Fatalf("unexpected entry attributes %v", first.Attributes)
	}
}

func TestJournalResumesCursor(t *testing.T) {
	db := kv.NewMemDB()
	journal, err := NewJournal(db, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	journal.Emit(stubEvent{evt: &types.Event{Type: "catalog.created"}})

	reopened, err := NewJournal(db, nil)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}
	if got := reopened.Len(); got != 1 {
		t.Fatalf("expected cursor at 1 after reopen, got %d", got)
	}
	reopened.Emit(stubEvent{evt: &types.Event{Type: "catalog.created"}})
	if _, err := reopened.Entry(1); err != nil {
		t.Fatalf("load entry 1: %v", err)
	}
}
