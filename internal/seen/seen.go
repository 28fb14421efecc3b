// Package seen implements a bounded, insertion-ordered set of handled
// message IDs.
//
// Time complexity: O(1) for Add, Has, Len.
//
// Implementation uses a hash map for O(1) membership combined with a
// doubly linked list for O(1) eviction ordering. Unlike an LRU cache,
// lookups never promote an entry: eviction order is strictly order of
// insertion, and re-adding an existing key keeps its original position.
package seen

import "sync"

// node is a doubly linked list node holding a set member.
type node[K comparable] struct {
	key  K
	prev *node[K]
	next *node[K]
}

// Set is a bounded set that evicts its oldest-inserted member when
// capacity is exceeded.
type Set[K comparable] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*node[K]
	head     *node[K] // oldest inserted (sentinel)
	tail     *node[K] // newest inserted (sentinel)
}

// New creates a Set with the given capacity.
// Panics if capacity < 1.
func New[K comparable](capacity int) *Set[K] {
	if capacity < 1 {
		panic("seen: capacity must be >= 1")
	}

	head := &node[K]{}
	tail := &node[K]{}
	head.next = tail
	tail.prev = head

	return &Set[K]{
		capacity: capacity,
		items:    make(map[K]*node[K], capacity),
		head:     head,
		tail:     tail,
	}
}

// Add inserts a key. If the set is over capacity afterwards, the
// oldest-inserted key is evicted. Adding an existing key is a no-op.
// Returns the evicted key and true if an eviction occurred. O(1).
func (s *Set[K]) Add(key K) (K, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero K
	if _, ok := s.items[key]; ok {
		return zero, false
	}

	n := &node[K]{key: key}
	s.items[key] = n
	s.pushBack(n)

	if len(s.items) <= s.capacity {
		return zero, false
	}

	victim := s.head.next
	s.remove(victim)
	delete(s.items, victim.key)
	return victim.key, true
}

// Has reports whether key is in the set. O(1).
func (s *Set[K]) Has(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok
}

// Len returns the current number of members. O(1).
func (s *Set[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Keys returns all members in order from oldest to newest inserted. O(n).
func (s *Set[K]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]K, 0, len(s.items))
	for cur := s.head.next; cur != s.tail; cur = cur.next {
		keys = append(keys, cur.key)
	}
	return keys
}

// Clear removes all members. O(n).
func (s *Set[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head.next = s.tail
	s.tail.prev = s.head
	s.items = make(map[K]*node[K], s.capacity)
}

// --- internal linked list operations (caller must hold lock) ---

// remove detaches a node from the list.
func (s *Set[K]) remove(n *node[K]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

// pushBack inserts a node right before the tail sentinel.
func (s *Set[K]) pushBack(n *node[K]) {
	n.prev = s.tail.prev
	n.next = s.tail
	s.tail.prev.next = n
	s.tail.prev = n
}
