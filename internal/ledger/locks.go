package ledger

import (
	"hash/fnv"
	"sync"
)

const defaultShardCount = 64

// lockTable serializes work per identity while distinct identities mostly
// land on different shards.
type lockTable struct {
	shards []sync.Mutex
	mask   uint32
}

func newLockTable(count int) *lockTable {
	n := 1
	for n < count {
		n <<= 1
	}
	return &lockTable{shards: make([]sync.Mutex, n), mask: uint32(n - 1)}
}

func (t *lockTable) shard(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &t.shards[h.Sum32()&t.mask]
}

// lock acquires the shard of id and returns its release function.
func (t *lockTable) lock(id string) func() {
	mu := t.shard(id)
	mu.Lock()
	return mu.Unlock
}
