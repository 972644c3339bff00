package workerpool

import (
	"container/list"
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type workerState int

const (
	stateStarting workerState = iota
	stateIdle
	stateBusy
	stateRetiring
	stateStopped
)

func (s workerState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case stateIdle:
		return "idle"
	case stateBusy:
		return "busy"
	case stateRetiring:
		return "retiring"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// worker 除 wake 外的字段都由池锁保护
type worker struct {
	id     string
	handle workerHandle
	pool   *Pool
	state  workerState
	// retire 被标记退出,回到空闲状态时退出
	retire bool
	// parkedAt 非 nil 表示正在空闲链表上等待
	parkedAt *list.Element
	wake     chan struct{}
}

func newWorker(p *Pool) *worker {
	return &worker{
		id:    uuid.New().String(),
		pool:  p,
		state: stateStarting,
		wake:  make(chan struct{}, 1),
	}
}

// signal 唤醒 worker,不阻塞
func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) run() {
	p := w.pool
	ctx := context.Background()
	exited := false
	defer p.wg.Done()
	defer func() {
		// 任务调用了 runtime.Goexit
		if !exited {
			p.mu.Lock()
			w.abortLocked()
			p.mu.Unlock()
		}
	}()

	p.conf.logger.Debug(ctx, "worker %s started", w.id)

	p.mu.Lock()
	w.state = stateIdle
	for {
		if w.shouldExitLocked() {
			break
		}

		task, err := p.queue.TryDequeue()
		if err != nil {
			if !errors.Is(err, ErrQueueEmpty) {
				p.conf.logger.Warn(ctx, "worker %s dequeue error: %v", w.id, err)
			}
			if w.parkLocked() && w.canSelfRetireLocked() {
				w.retire = true
				p.state.retiring++
				p.conf.logger.Debug(ctx, "worker %s idle for %v, retiring", w.id, p.conf.idleTimeout)
			}
			continue
		}

		w.state = stateBusy
		p.state.idle--
		p.state.busy++
		p.mu.Unlock()

		panicked := w.execute(ctx, task)

		p.mu.Lock()
		if panicked {
			w.abortLocked()
			exited = true
			p.mu.Unlock()
			return
		}
		w.state = stateIdle
		p.state.busy--
		p.state.idle++
		p.state.completed++
		p.metrics.add(p.metrics.completed, 1)
	}

	if w.state == stateIdle {
		w.state = stateRetiring
		p.state.idle--
	}
	w.exitLocked()
	exited = true
	p.mu.Unlock()

	p.conf.logger.Debug(ctx, "worker %s stopped", w.id)
}

// shouldExitLocked 被标记退出,或者池正在关闭且无需再排空队列。
// 排空期间忽略退出标记,所有 worker 一起消费剩余任务。
func (w *worker) shouldExitLocked() bool {
	p := w.pool
	if p.state.shuttingDown {
		return !p.state.draining || p.queue.Len() == 0
	}
	return w.retire
}

// canSelfRetireLocked 空闲超时后退出不会让存活数低于下限
func (w *worker) canSelfRetireLocked() bool {
	p := w.pool
	if w.retire || p.state.shuttingDown || p.queue.Len() > 0 {
		return false
	}
	return p.state.alive-p.state.retiring > p.state.minWorkers
}

// parkLocked 进入空闲等待,调用和返回时都持有池锁。
// 返回 true 表示空闲超时且期间没有被唤醒。
func (w *worker) parkLocked() bool {
	p := w.pool
	w.parkedAt = p.parked.PushBack(w)
	p.mu.Unlock()

	var timeout <-chan time.Time
	if p.conf.idleTimeout > 0 {
		timer := time.NewTimer(p.conf.idleTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	timedOut := false
	select {
	case <-w.wake:
	case <-timeout:
		timedOut = true
	}

	p.mu.Lock()
	if w.parkedAt != nil {
		p.parked.Remove(w.parkedAt)
		w.parkedAt = nil
	} else if timedOut {
		// 超时的同时被唤醒,以唤醒为准
		select {
		case <-w.wake:
		default:
		}
		timedOut = false
	}
	return timedOut
}

// execute 在不持有池锁的情况下执行任务,返回任务是否 panic
func (w *worker) execute(ctx context.Context, task *Task) (panicked bool) {
	p := w.pool
	start := time.Now()
	defer func() {
		p.metrics.observeDuration(time.Since(start))
		if r := recover(); r != nil {
			panicked = true
			p.conf.logger.Warn(ctx, "worker %s task %s panic: %v\n%s", w.id, task.label(), r, debug.Stack())
		}
	}()
	task.run()
	return false
}

// abortLocked 任务异常终止了 worker
func (w *worker) abortLocked() {
	p := w.pool
	p.state.panicked++
	p.metrics.add(p.metrics.panicked, 1)
	w.exitLocked()

	// 排空期间最后一个 worker 异常退出,补一个以免队列无人处理
	if p.state.shuttingDown && p.state.draining && p.state.alive == 0 && p.queue.Len() > 0 {
		p.spawnLocked(1)
	}
}

// exitLocked 把 worker 从活动集合中移除
func (w *worker) exitLocked() {
	p := w.pool
	switch w.state {
	case stateStarting, stateIdle:
		p.state.idle--
	case stateBusy:
		p.state.busy--
	}
	if w.retire {
		p.state.retiring--
	}
	if w.parkedAt != nil {
		p.parked.Remove(w.parkedAt)
		w.parkedAt = nil
	}
	w.state = stateStopped
	p.state.alive--
	p.state.retired++
	p.metrics.add(p.metrics.retired, 1)
	if !p.workers.release(w.handle) {
		panic("workerpool: stale worker handle " + w.id)
	}
}
