package events

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"escrowmarket/core/types"
	"escrowmarket/storage/kv"
)

const (
	journalKeyPrefix  = "events/"
	journalCursorKey  = "events/next"
	journalKeyPadding = 8
)

// Journal persists every emitted event to a key-value store under a strictly
// increasing sequence number. It is best-effort: a write failure never blocks
// the state transition that produced the event.
type Journal struct {
	mu    sync.Mutex
	db    kv.Database
	next  uint64
	onErr func(error)
}

// NewJournal opens a journal over the supplied database, resuming the sequence
// counter from a previous run when present.
func NewJournal(db kv.Database, onErr func(error)) (*Journal, error) {
	if db == nil {
		return nil, errors.New("events: journal database required")
	}
	j := &Journal{db: db, onErr: onErr}
	raw, err := db.Get([]byte(journalCursorKey))
	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		j.next = 0
	case err != nil:
		return nil, fmt.Errorf("events: load journal cursor: %w", err)
	default:
		if len(raw) != journalKeyPadding {
			return nil, fmt.Errorf("events: corrupt journal cursor (%d bytes)", len(raw))
		}
		j.next = binary.BigEndian.Uint64(raw)
	}
	return j, nil
}

// Emit implements the Emitter interface.
func (j *Journal) Emit(evt Event) {
	if j == nil || evt == nil {
		return
	}
	payload := &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	if p, ok := evt.(Payload); ok && p.Event() != nil {
		payload = p.Event()
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		j.fail(fmt.Errorf("events: encode journal entry: %w", err))
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	seq := j.next
	if err := j.db.Put(journalKey(seq), encoded); err != nil {
		j.fail(fmt.Errorf("events: write journal entry %d: %w", seq, err))
		return
	}
	cursor := make([]byte, journalKeyPadding)
	binary.BigEndian.PutUint64(cursor, seq+1)
	if err := j.db.Put([]byte(journalCursorKey), cursor); err != nil {
		j.fail(fmt.Errorf("events: advance journal cursor: %w", err))
		return
	}
	j.next = seq + 1
}

// Len reports how many entries have been journalled.
func (j *Journal) Len() uint64 {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.next
}

// Entry loads a journalled event by sequence number.
func (j *Journal) Entry(seq uint64) (*types.Event, error) {
	if j == nil {
		return nil, errors.New("events: journal not configured")
	}
	raw, err := j.db.Get(journalKey(seq))
	if err != nil {
		return nil, err
	}
	evt := &types.Event{}
	if err := json.Unmarshal(raw, evt); err != nil {
		return nil, fmt.Errorf("events: decode journal entry %d: %w", seq, err)
	}
	return evt, nil
}

func (j *Journal) fail(err error) {
	if j.onErr != nil {
		j.onErr(err)
	}
}

func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalKeyPrefix)+journalKeyPadding)
	copy(key, journalKeyPrefix)
	binary.BigEndian.PutUint64(key[len(journalKeyPrefix):], seq)
	return key
}
