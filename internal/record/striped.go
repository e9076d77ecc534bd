package record

import (
	"hash/fnv"
	"sync"
)

const stripeCount = 64

// Striped serializes mutations per entry id using a fixed set of mutex
// stripes. Two ids may share a stripe; that only costs contention, never
// correctness.
type Striped struct {
	stripes [stripeCount]sync.Mutex
}

// Lock acquires the stripe for key and returns its unlock function.
func (s *Striped) Lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &s.stripes[h.Sum32()%stripeCount]
	m.Lock()
	return m.Unlock
}
