package branch

import (
	"fmt"
	"sync"

	"github.com/sdming/gosnow"
)

// WorkerID identifies one spawned worker for the lifetime of its branch.
// Ids are Snowflake values (timestamp, worker-shard, sequence), so they
// sort roughly in spawn order and never collide across a running process,
// the same way euphoria.io/heim/proto/snowflake mints ids for jobs and
// sessions.
type WorkerID uint64

func (id WorkerID) String() string { return fmt.Sprintf("w%013x", uint64(id)) }

var (
	idGenOnce sync.Once
	idGen     *gosnow.SnowFlake
	idGenErr  error
)

func nextWorkerID() WorkerID {
	idGenOnce.Do(func() {
		idGen, idGenErr = gosnow.NewSnowFlake(gosnow.DefaultWorkId())
	})
	if idGenErr != nil || idGen == nil {
		// A fresh generator only fails on a clock/address read; fall back to
		// a process-local counter rather than panicking a running tree.
		return nextFallbackWorkerID()
	}
	n, err := idGen.Next()
	if err != nil {
		return nextFallbackWorkerID()
	}
	return WorkerID(n)
}

var (
	fallbackMu  sync.Mutex
	fallbackSeq uint64
)

func nextFallbackWorkerID() WorkerID {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	fallbackSeq++
	return WorkerID(fallbackSeq)
}
