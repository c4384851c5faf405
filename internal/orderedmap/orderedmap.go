package orderedmap

import "container/list"

// Map is a map datastructure that allows accessing it's element in a
// fixed order.
type Map[K comparable, V any] struct {
	order *list.List
	m     map[K]*list.Element
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		order: list.New(),
		m:     map[K]*list.Element{},
	}
}

// AddIfNotExist appends val to the map if key does not exist.
// It returns the value stored for key and if val was added.
func (m *Map[K, V]) AddIfNotExist(key K, val V) (stored V, added bool) {
	if e, exist := m.m[key]; exist {
		return e.Value.(V), false
	}

	m.m[key] = m.order.PushBack(val)

	return val, true
}

// Len returns the number of elements in the maps.
func (m *Map[K, V]) Len() int {
	return m.order.Len()
}

// Foreach itereates through the map in order.
// When fn returns false the iteration is aborted.
func (m *Map[K, V]) Foreach(fn func(V) bool) {
	for e := m.order.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(V)) {
			return
		}
	}
}

// AsSlice returns a new slice containing the elements of the orderedMap in
// order.
func (m *Map[K, V]) AsSlice() []V {
	result := make([]V, 0, m.order.Len())

	for e := m.order.Front(); e != nil; e = e.Next() {
		result = append(result, e.Value.(V))
	}

	return result
}
