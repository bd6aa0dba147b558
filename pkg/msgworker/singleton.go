package msgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-tweetcast/core/config"
	"github.com/sirupsen/logrus"
)

var (
	globalPool     *Pool
	globalPoolOnce sync.Once
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the process-wide schedule pool, starting it on first use.
func GetGlobalPool() *Pool {
	globalPoolOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size, queue := 0, 0
		if coreconfig.Global != nil {
			size = coreconfig.Global.WorkerPool.Size
			queue = coreconfig.Global.WorkerPool.QueueSize
		}

		globalPool = NewPool(size, queue)
		globalPool.Start(ctx)
		logrus.Infof("[WORKER_POOL] Global instance started with %d workers and queue size %d", globalPool.numWorkers, globalPool.queueSize)
	})
	return globalPool
}

// StopGlobalPool stops the singleton pool
func StopGlobalPool() {
	if globalCancel != nil {
		globalCancel()
	}
	if globalPool != nil {
		globalPool.Stop()
	}
}

func GetGlobalStats() PoolStats {
	return GetGlobalPool().GetStats()
}
