package expiringmap

import "strconv"

/*
The compute family never runs a callback with the lock held. Each operation:

 1. reads the key's value and generation under the read lock
 2. runs the callback unlocked
 3. takes the write lock and commits through putLocked / removeLocked only if
    the generation is unchanged, otherwise starts over with the fresh value

A slow callback therefore delays only its own key, never the expiration worker.
*/

// observe returns key's value and live generation (0 when absent).
func (m *Map[K, V]) observe(key K) (V, uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero V
	if m.closed {
		return zero, 0, false, ErrClosed
	}
	ent, ok := m.store.Get(key)
	if !ok {
		return zero, 0, false, nil
	}
	return ent.Value, ent.Generation, true, nil
}

/*
commit applies the outcome of a callback if key still has generation gen.
keep == false removes the key. It reports false when the key changed and the
caller must retry.
*/
func (m *Map[K, V]) commit(key K, gen uint64, value V, keep bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}
	if m.generationLocked(key) != gen {
		return false, nil
	}

	if keep {
		m.putLocked(key, value)
	} else if gen != 0 {
		m.removeLocked(key)
	}
	return true, nil
}

// PutIfAbsent stores value only if key is absent. It returns the existing
// value and true when key was already present.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if m.closed {
		return zero, false, ErrClosed
	}
	if ent, ok := m.store.Get(key); ok {
		return ent.Value, true, nil
	}
	m.putLocked(key, value)
	return zero, false, nil
}

// Replace writes value only if key is present.
func (m *Map[K, V]) Replace(key K, value V) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if m.closed {
		return zero, false, ErrClosed
	}
	if !m.store.ContainsKey(key) {
		return zero, false, nil
	}
	old, _ := m.putLocked(key, value)
	return old, true, nil
}

// ReplaceValue writes newValue only if key currently maps to oldValue.
func (m *Map[K, V]) ReplaceValue(key K, oldValue, newValue V) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}
	ent, ok := m.store.Get(key)
	if !ok || ent.Value != oldValue {
		return false, nil
	}
	m.putLocked(key, newValue)
	return true, nil
}

// RemoveValue deletes key only if it currently maps to value.
func (m *Map[K, V]) RemoveValue(key K, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.store.Get(key)
	if !ok || ent.Value != value {
		return false
	}
	m.removeLocked(key)
	return true
}

/*
Compute stores fn(key, old, present) under key, or removes key when fn returns
ok == false. It returns the value now stored and whether one is stored.
*/
func (m *Map[K, V]) Compute(key K, fn func(key K, old V, present bool) (V, bool)) (V, bool, error) {
	var zero V
	if fn == nil {
		return zero, false, ErrNilFunction
	}

	for {
		old, gen, present, err := m.observe(key)
		if err != nil {
			return zero, false, err
		}

		value, keep := fn(key, old, present)

		done, err := m.commit(key, gen, value, keep)
		if err != nil {
			return zero, false, err
		}
		if !done {
			continue
		}
		if !keep {
			return zero, false, nil
		}
		return value, true, nil
	}
}

// computed carries a mapping result through singleflight.
type computed[V any] struct {
	value V
	ok    bool
}

/*
ComputeIfAbsent returns the value of key, storing fn(key) first if key is
absent. fn returning ok == false stores nothing.

Concurrent callers for the same absent key share one call of fn. If another
caller stores a value while fn runs, that value wins and is returned.
*/
func (m *Map[K, V]) ComputeIfAbsent(key K, fn func(key K) (V, bool)) (V, bool, error) {
	var zero V
	if fn == nil {
		return zero, false, ErrNilFunction
	}

	current, _, present, err := m.observe(key)
	if err != nil {
		return zero, false, err
	}
	if present {
		return current, true, nil
	}

	res, err := m.shareFlight(key, fn)
	if err != nil {
		return zero, false, err
	}
	c, ok := res.(computed[V])
	if !ok || !c.ok {
		return zero, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return zero, false, ErrClosed
	}
	if ent, ok := m.store.Get(key); ok {
		return ent.Value, true, nil
	}
	m.putLocked(key, c.value)
	return c.value, true, nil
}

/*
ComputeIfPresent replaces the value of a present key with fn(key, old), or
removes it when fn returns ok == false. Absent keys are left alone.
*/
func (m *Map[K, V]) ComputeIfPresent(key K, fn func(key K, old V) (V, bool)) (V, bool, error) {
	var zero V
	if fn == nil {
		return zero, false, ErrNilFunction
	}

	for {
		old, gen, present, err := m.observe(key)
		if err != nil {
			return zero, false, err
		}
		if !present {
			return zero, false, nil
		}

		value, keep := fn(key, old)

		done, err := m.commit(key, gen, value, keep)
		if err != nil {
			return zero, false, err
		}
		if !done {
			continue
		}
		if !keep {
			return zero, false, nil
		}
		return value, true, nil
	}
}

/*
Merge stores value if key is absent, otherwise fn(old, value). fn returning
ok == false removes key.
*/
func (m *Map[K, V]) Merge(key K, value V, fn func(old, value V) (V, bool)) (V, bool, error) {
	var zero V
	if fn == nil {
		return zero, false, ErrNilFunction
	}

	for {
		old, gen, present, err := m.observe(key)
		if err != nil {
			return zero, false, err
		}

		merged, keep := value, true
		if present {
			merged, keep = fn(old, value)
		}

		done, err := m.commit(key, gen, merged, keep)
		if err != nil {
			return zero, false, err
		}
		if !done {
			continue
		}
		if !keep {
			return zero, false, nil
		}
		return merged, true, nil
	}
}

// flight is the singleflight token of one key, shared by its waiters.
type flight struct {
	token string
	refs  int
}

// shareFlight runs fn(key) once for all concurrent callers of key.
func (m *Map[K, V]) shareFlight(key K, fn func(key K) (V, bool)) (any, error) {
	token := m.joinFlight(key)
	defer m.leaveFlight(key)

	res, err, _ := m.sf.Do(token, func() (any, error) {
		v, ok := fn(key)
		return computed[V]{value: v, ok: ok}, nil
	})
	return res, err
}

// joinFlight returns the token for key, allocating one if no call for key
// is in flight. Every joinFlight must be paired with leaveFlight.
func (m *Map[K, V]) joinFlight(key K) string {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()

	f, ok := m.flights[key]
	if !ok {
		m.flightID++
		f = &flight{token: strconv.FormatUint(m.flightID, 10)}
		m.flights[key] = f
	}
	f.refs++
	return f.token
}

func (m *Map[K, V]) leaveFlight(key K) {
	m.flightMu.Lock()
	defer m.flightMu.Unlock()

	f := m.flights[key]
	if f.refs--; f.refs == 0 {
		delete(m.flights, key)
	}
}
