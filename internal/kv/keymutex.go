package kv

import (
	"hash/fnv"
	"sync"
)

const keyMutexStripes = 64

// KeyMutex serialises read-modify-write sequences per key so that concurrent
// aggregate updates (rating recompute, scan counters) within this process do
// not lose writes. Keys are hashed onto a fixed set of stripes.
type KeyMutex struct {
	stripes [keyMutexStripes]sync.Mutex
}

// NewKeyMutex returns a ready-to-use KeyMutex.
func NewKeyMutex() *KeyMutex {
	return &KeyMutex{}
}

// Lock acquires the stripe for key and returns its unlock function.
func (k *KeyMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	stripe := &k.stripes[h.Sum32()%keyMutexStripes]
	stripe.Lock()
	return stripe.Unlock
}
