package msgworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one unit of work bound to a key. Jobs sharing a key always land on
// the same worker and therefore run one after another.
type Job struct {
	Key     string
	Label   string
	Handler func(ctx context.Context) error
}

// PoolStats is a live snapshot of the pool.
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveKeys      map[string]int `json:"active_keys"` // key -> worker_id
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// Pool runs keyed jobs on a fixed set of sharded workers.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	started    int32
	stopped    int32

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	pending         int64

	activeMu   sync.RWMutex
	activeKeys map[string]int

	OnJobStart func(workerID int, key string)
	OnJobEnd   func(workerID int, key string, err error)
}

type worker struct {
	id            int
	jobQueue      chan Job
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *Pool
}

// NewPool creates a pool; call Start before dispatching.
func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		activeKeys: make(map[string]int),
	}
}

// Start launches every worker. Cancelling ctx drains queued jobs and exits.
func (p *Pool) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&p.started, 0, 1) {
		return
	}
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan Job, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch enqueues job on its shard without blocking and reports whether
// it was accepted.
func (p *Pool) TryDispatch(job Job) bool {
	if atomic.LoadInt32(&p.stopped) == 1 || atomic.LoadInt32(&p.started) == 0 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job.Key)
	atomic.AddInt64(&p.totalDispatched, 1)

	atomic.AddInt64(&p.pending, 1)
	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}

	atomic.AddInt64(&p.pending, -1)
	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[WORKER_POOL] Worker %d queue full (or stopped), dropping job %s %s", shard, job.Key, job.Label)
	return false
}

// Dispatch is TryDispatch without the result.
func (p *Pool) Dispatch(job Job) {
	_ = p.TryDispatch(job)
}

// Stop cancels workers and waits for them.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		if atomic.LoadInt32(&p.started) == 0 {
			return
		}
		logrus.Info("[WORKER_POOL] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}
		p.wg.Wait()

		logrus.Info("[WORKER_POOL] All workers stopped")
	})
}

// WaitIdle polls until every accepted job has finished.
// It returns false if timeout passes first.
func (p *Pool) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if p.idle() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (p *Pool) idle() bool {
	return atomic.LoadInt64(&p.pending) == 0
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, 0, len(p.workers))
	activeWorkers := 0

	for _, w := range p.workers {
		if w == nil {
			continue
		}
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}
		workerStats = append(workerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}

	p.activeMu.RLock()
	active := make(map[string]int, len(p.activeKeys))
	for k, v := range p.activeKeys {
		active[k] = v
	}
	p.activeMu.RUnlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		ActiveKeys:      active,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		case <-w.ctx.Done():
			logrus.Debugf("[WORKER_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(job Job) {
	p := w.pool
	p.activeMu.Lock()
	p.activeKeys[job.Key] = w.id
	p.activeMu.Unlock()

	if p.OnJobStart != nil {
		p.OnJobStart(w.id, job.Key)
	}
	atomic.StoreInt32(&w.isProcessing, 1)

	var err error
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&p.totalErrors, 1)
			logrus.Errorf("[WORKER_POOL] Worker %d panic for %s: %v", w.id, job.Key, r)
		}
		p.activeMu.Lock()
		delete(p.activeKeys, job.Key)
		p.activeMu.Unlock()
		if p.OnJobEnd != nil {
			p.OnJobEnd(w.id, job.Key, err)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&p.totalProcessed, 1)
		atomic.AddInt64(&p.pending, -1)
	}()

	err = job.Handler(w.ctx)
	if err != nil {
		atomic.AddInt64(&p.totalErrors, 1)
		logrus.WithError(err).Errorf("[WORKER_POOL] Worker %d job %s failed", w.id, job.Key)
	}
}

func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}
