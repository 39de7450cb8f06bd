package kv

// entry records the first-touch prior value and the current buffered value
// for one key touched within a ChangeSet.
type entry struct {
	priorExists bool
	prior       []byte // meaningful only if priorExists
	deleted     bool   // true: key is buffered as deleted
	value       []byte // meaningful only if !deleted
}

// ChangeSet is a staged, reversible batch of mutations bound to a Store.
// Reads observe the buffered value if the key was touched in this
// ChangeSet, otherwise they delegate to the backing store. Apply flushes
// the buffer to the store in insertion order; Undo restores the recorded
// prior values in reverse insertion order. A ChangeSet may be applied at
// most once, and may only be undone after it has been applied.
type ChangeSet struct {
	store   Store
	entries map[string]*entry
	order   []string // insertion order of first touch, for Apply/Undo ordering
	applied bool
	spent   bool // true once Undo has completed
}

// NewChangeSet creates a ChangeSet bound to store.
func NewChangeSet(store Store) *ChangeSet {
	return &ChangeSet{
		store:   store,
		entries: make(map[string]*entry),
	}
}

// Get returns the pending value for key if this ChangeSet has buffered a
// write or delete for it, otherwise it reads through to the backing store.
func (cs *ChangeSet) Get(key []byte) ([]byte, error) {
	k := string(key)
	if e, ok := cs.entries[k]; ok {
		if e.deleted {
			return nil, ErrNotFound
		}
		cp := make([]byte, len(e.value))
		copy(cp, e.value)
		return cp, nil
	}
	return cs.store.Get(key)
}

// Contains reports whether key resolves to a present value, honoring
// buffered writes/deletes the same way Get does.
func (cs *ChangeSet) Contains(key []byte) (bool, error) {
	k := string(key)
	if e, ok := cs.entries[k]; ok {
		return !e.deleted, nil
	}
	return cs.store.Contains(key)
}

// Put buffers a write. The first touch of key records its prior value from
// the backing store; later touches only update the buffered value.
func (cs *ChangeSet) Put(key, value []byte) error {
	k := string(key)
	e, ok := cs.entries[k]
	if !ok {
		e = cs.firstTouch(key)
		cs.entries[k] = e
		cs.order = append(cs.order, k)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	e.value = cp
	e.deleted = false
	return nil
}

// Delete buffers a deletion, following the same first-touch recording rule
// as Put.
func (cs *ChangeSet) Delete(key []byte) error {
	k := string(key)
	e, ok := cs.entries[k]
	if !ok {
		e = cs.firstTouch(key)
		cs.entries[k] = e
		cs.order = append(cs.order, k)
	}
	e.value = nil
	e.deleted = true
	return nil
}

// firstTouch captures the backing store's current value for key so it can
// be restored on Undo.
func (cs *ChangeSet) firstTouch(key []byte) *entry {
	prior, err := cs.store.Get(key)
	if err == ErrNotFound {
		return &entry{priorExists: false}
	}
	return &entry{priorExists: true, prior: prior}
}

// Apply flushes all buffered mutations to the backing store in insertion
// order. Calling Apply again after a successful Apply is a no-op.
// Applying a ChangeSet that has already been Undo-ne is a programmer error.
func (cs *ChangeSet) Apply() error {
	if cs.spent {
		panic("kv: apply called on an undone change-set")
	}
	if cs.applied {
		return nil
	}
	for _, k := range cs.order {
		e := cs.entries[k]
		if e.deleted {
			if err := cs.store.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := cs.store.Put([]byte(k), e.value); err != nil {
			return err
		}
	}
	cs.applied = true
	return nil
}

// Undo restores each recorded prior value in reverse insertion order, then
// marks the ChangeSet spent. It requires that Apply was called first;
// calling Undo before Apply is a programmer error.
func (cs *ChangeSet) Undo() error {
	if !cs.applied {
		panic("kv: undo called on a change-set that was never applied")
	}
	if cs.spent {
		panic("kv: undo called twice on the same change-set")
	}
	for i := len(cs.order) - 1; i >= 0; i-- {
		k := cs.order[i]
		e := cs.entries[k]
		if !e.priorExists {
			if err := cs.store.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := cs.store.Put([]byte(k), e.prior); err != nil {
			return err
		}
	}
	cs.spent = true
	return nil
}
