package token

import "math/big"

// Ledger is an undo journal shared by every asset bound to it. Hosts take a
// snapshot before a multi-step operation and revert to it when any step fails,
// which gives the operation all-or-nothing semantics across assets.
//
// A Ledger and the assets bound to it are not safe for concurrent use; the
// vault serializes every call that touches them.
type Ledger struct {
	journal  []func()
	deferred []deferredAction
}

type deferredAction struct {
	position int
	fn       func()
}

// NewLedger constructs an empty journal.
func NewLedger() *Ledger { return &Ledger{} }

// Snapshot returns an identifier for the current journal position.
func (l *Ledger) Snapshot() int {
	if l == nil {
		return 0
	}
	return len(l.journal)
}

// RevertToSnapshot undoes every change recorded after the snapshot was taken.
func (l *Ledger) RevertToSnapshot(id int) {
	if l == nil {
		return
	}
	if id < 0 {
		id = 0
	}
	for i := len(l.journal) - 1; i >= id; i-- {
		l.journal[i]()
	}
	if id < len(l.journal) {
		l.journal = l.journal[:id]
	}
	kept := l.deferred[:0]
	for _, action := range l.deferred {
		if action.position < id {
			kept = append(kept, action)
		}
	}
	l.deferred = kept
}

// Defer schedules fn to run on the next Commit. Reverting to a snapshot taken
// before the call drops it.
func (l *Ledger) Defer(fn func()) {
	if fn == nil {
		return
	}
	if l == nil {
		fn()
		return
	}
	l.deferred = append(l.deferred, deferredAction{position: len(l.journal), fn: fn})
	l.journal = append(l.journal, func() {})
}

// Commit discards the undo history and runs the deferred actions in the order
// they were scheduled. Snapshots taken before the call become invalid.
func (l *Ledger) Commit() {
	if l == nil {
		return
	}
	deferred := l.deferred
	l.journal = nil
	l.deferred = nil
	for _, action := range deferred {
		action.fn()
	}
}

// Len returns the number of pending journal entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.journal)
}

// Record appends an undo step. Collaborators that keep their own state use it
// to take part in the host's snapshots.
func (l *Ledger) Record(undo func()) {
	if l == nil || undo == nil {
		return
	}
	l.journal = append(l.journal, undo)
}

// setEntry stores value under key and journals the previous entry. Values are
// never mutated in place so the undo closure can restore the old pointer.
func setEntry[K comparable](l *Ledger, m map[K]*big.Int, key K, value *big.Int) {
	prev, existed := m[key]
	l.Record(func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
	if value == nil || value.Sign() == 0 {
		delete(m, key)
		return
	}
	m[key] = value
}

func setBig(l *Ledger, target **big.Int, value *big.Int) {
	prev := *target
	l.Record(func() { *target = prev })
	*target = value
}

func setBool(l *Ledger, target *bool, value bool) {
	prev := *target
	l.Record(func() { *target = prev })
	*target = value
}

func get[K comparable](m map[K]*big.Int, key K) *big.Int {
	if v, ok := m[key]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}
