// Package ring is an index-addressed adaption of `container/ring`
// for use as the admission order of cache slots.
package ring

import "iter"

// detached marks a slot that is not linked into the ring.
const detached = -1

// A Ring is a circular list of slot ids in the range [0, capacity).
// Rather than pointers, elements are referenced by their slot id,
// and the links for every slot live in two parallel arrays.
// An extra sentinel slot (id == capacity) closes the circle,
// so the element after the sentinel is the oldest (front)
// and the element before it is the newest (back).
// The zero value is not usable; construct with [New].
type Ring struct {
	next, prev []int
	length     int
}

// New creates an empty ring able to hold slot ids [0, capacity).
func New(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	var (
		size = capacity + 1
		r    = &Ring{
			next: make([]int, size),
			prev: make([]int, size),
		}
		sentinel = r.sentinel()
	)
	for i := range capacity {
		r.next[i] = detached
		r.prev[i] = detached
	}
	r.next[sentinel] = sentinel
	r.prev[sentinel] = sentinel
	return r
}

func (r *Ring) sentinel() int { return len(r.next) - 1 }

// Cap returns the number of slot ids the ring can address.
func (r *Ring) Cap() int { return len(r.next) - 1 }

// Len returns the number of linked slots.
func (r *Ring) Len() int { return r.length }

func (r *Ring) valid(slot int) bool {
	return slot >= 0 && slot < r.Cap()
}

// Linked reports whether slot is currently a member of the ring.
func (r *Ring) Linked(slot int) bool {
	return r.valid(slot) && r.next[slot] != detached
}

// link connects slot s after element at.
// s must be detached.
func (r *Ring) link(at, s int) {
	n := r.next[at]
	r.next[at] = s
	r.prev[s] = at
	r.next[s] = n
	r.prev[n] = s
}

// unlink removes s from between its neighbours
// and marks it as detached.
func (r *Ring) unlink(s int) {
	p, n := r.prev[s], r.next[s]
	r.next[p] = n
	r.prev[n] = p
	r.next[s] = detached
	r.prev[s] = detached
}

// PushBack links slot as the newest element.
// It returns false if slot is out of range or already linked.
func (r *Ring) PushBack(slot int) bool {
	if !r.valid(slot) || r.next[slot] != detached {
		return false
	}
	r.link(r.prev[r.sentinel()], slot)
	r.length++
	return true
}

// Remove unlinks slot from wherever it is in the ring.
// It returns false if slot was not linked.
func (r *Ring) Remove(slot int) bool {
	if !r.Linked(slot) {
		return false
	}
	r.unlink(slot)
	r.length--
	return true
}

// Front returns the oldest linked slot without removing it.
func (r *Ring) Front() (int, bool) {
	sentinel := r.sentinel()
	front := r.next[sentinel]
	if front == sentinel {
		return detached, false
	}
	return front, true
}

// All returns an iterator over the linked slots, oldest first.
// The behavior of All is undefined if the ring
// is modified during iteration.
func (r *Ring) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		sentinel := r.sentinel()
		for p := r.next[sentinel]; p != sentinel; p = r.next[p] {
			if !yield(p) {
				return
			}
		}
	}
}
