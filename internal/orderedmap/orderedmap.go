// Package orderedmap provides an insertion-ordered string-keyed map.
//
// Several stages of the planning pipeline rely on reproducible iteration
// order (log lines and tie-breaks must not depend on Go's randomized map
// iteration), so a plain map[string]V cannot be used where callers walk the
// keys.
package orderedmap

// Map is a string-keyed map that remembers insertion order.
// The zero value is not usable; construct with New.
type Map[V any] struct {
	keys   []string
	values map[string]V
}

// New returns an empty Map.
func New[V any]() *Map[V] {
	return &Map[V]{values: make(map[string]V)}
}

// Set assigns v to k, appending k to the key order the first time it is seen.
func (m *Map[V]) Set(k string, v V) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value for k and whether it was present.
func (m *Map[V]) Get(k string) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Delete removes k, if present, compacting the key order.
func (m *Map[V]) Delete(k string) {
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	for i, existing := range m.keys {
		if existing == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. The caller must not mutate it.
func (m *Map[V]) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	return len(m.keys)
}
