package workerpool

import (
	"container/list"
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Pool 弹性 worker 池:任务进入共享 FIFO 队列,由 [Min, Max] 个 worker 消费,
// supervisor 按采样结果伸缩 worker 数量。
type Pool struct {
	conf    options
	queue   TaskQueue
	metrics *poolMetrics

	// mu 保护 state、workers、parked 以及所有 worker 的状态字段
	mu      sync.Mutex
	state   poolState
	workers workerArena
	parked  list.List
	wg      sync.WaitGroup

	stopCh         chan struct{}
	supervisorDone chan struct{}
	done           chan struct{}
}

type poolState struct {
	minWorkers int
	maxWorkers int
	alive      int
	busy       int
	idle       int
	retiring   int

	shuttingDown bool
	draining     bool

	submitted uint64
	completed uint64
	panicked  uint64
	discarded uint64
	spawned   uint64
	retired   uint64
}

// Stats 池状态快照,在池锁内一次性读取,各字段之间相互一致
type Stats struct {
	Name         string
	Min          int
	Max          int
	Alive        int
	Busy         int
	Idle         int
	Retiring     int
	QueueLength  int
	ShuttingDown bool

	Submitted uint64
	Completed uint64
	Panicked  uint64
	Discarded uint64
	Spawned   uint64
	Retired   uint64
}

// New 创建并启动 worker 池,立即启动 minWorkers 个 worker 和 supervisor。
// 要求 0 < minWorkers <= maxWorkers,否则返回 ErrInvalidConfiguration。
func New(minWorkers, maxWorkers int, opts ...Option) (*Pool, error) {
	conf := defaultOptions()
	for _, opt := range opts {
		opt(&conf)
	}
	if err := validate(minWorkers, maxWorkers, &conf); err != nil {
		return nil, err
	}

	queue := conf.queue
	if queue == nil {
		if conf.queueCapacity > 0 {
			queue = NewMemoryTaskQueue(conf.queueCapacity)
		} else {
			queue = NewListTaskQueue()
		}
	}

	p := &Pool{
		conf:           conf,
		queue:          queue,
		stopCh:         make(chan struct{}),
		supervisorDone: make(chan struct{}),
		done:           make(chan struct{}),
	}
	p.state.minWorkers = minWorkers
	p.state.maxWorkers = maxWorkers

	metrics, err := newPoolMetrics(p, conf.meterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "init worker pool metrics")
	}
	p.metrics = metrics

	p.mu.Lock()
	p.spawnLocked(minWorkers)
	p.mu.Unlock()
	go p.supervise()

	p.conf.logger.Info(context.Background(), "worker pool %q started, min: %d, max: %d", conf.name, minWorkers, maxWorkers)
	return p, nil
}

func validateBounds(minWorkers, maxWorkers int) error {
	if minWorkers <= 0 || minWorkers > maxWorkers {
		return errors.Wrapf(ErrInvalidConfiguration, "min workers %d, max workers %d", minWorkers, maxWorkers)
	}
	return nil
}

func validate(minWorkers, maxWorkers int, conf *options) error {
	if err := validateBounds(minWorkers, maxWorkers); err != nil {
		return err
	}
	if conf.growthStep <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "growth step %d", conf.growthStep)
	}
	if conf.samplingInterval <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "sampling interval %v", conf.samplingInterval)
	}
	if conf.idleTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "idle timeout %v", conf.idleTimeout)
	}
	if conf.queueCapacity < 0 || conf.queueCapacity > MaxQueueCapacity {
		return errors.Wrapf(ErrInvalidConfiguration, "queue capacity %d", conf.queueCapacity)
	}
	return nil
}

// Submit 提交 action(arg) 到队列
func (p *Pool) Submit(action Action, arg any, opts ...TaskOption) error {
	if action == nil {
		return errors.WithStack(ErrNilTask)
	}
	return p.SubmitTask(NewTask(action, arg, opts...))
}

// SubmitTask 提交任务,不会阻塞。
// 池已开始关闭返回 ErrPoolShuttingDown,有界队列已满返回 ErrQueueFull。
func (p *Pool) SubmitTask(task *Task) error {
	if task == nil || task.action == nil {
		return errors.WithStack(ErrNilTask)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.shuttingDown {
		return errors.WithStack(ErrPoolShuttingDown)
	}
	if err := p.queue.Enqueue(task); err != nil {
		return err
	}
	p.state.submitted++
	p.metrics.add(p.metrics.submitted, 1)

	if p.wakeOneLocked() {
		return nil
	}
	// 没有空闲 worker 时不等下一个采样周期,直接扩容
	if p.conf.eagerSpawn && p.state.idle == 0 {
		p.spawnLocked(1)
	}
	return nil
}

// Resize 运行时调整上下限,存活数低于新下限时立即补齐,
// 高于新上限时标记多余的 worker 退出(忙碌的 worker 完成当前任务后退出)。
func (p *Pool) Resize(minWorkers, maxWorkers int) error {
	if err := validateBounds(minWorkers, maxWorkers); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.shuttingDown {
		return errors.WithStack(ErrPoolShuttingDown)
	}
	p.state.minWorkers = minWorkers
	p.state.maxWorkers = maxWorkers

	active := p.state.alive - p.state.retiring
	switch {
	case active < minWorkers:
		p.spawnLocked(minWorkers - active)
	case active > maxWorkers:
		p.retireLocked(active - maxWorkers)
	}
	p.conf.logger.Info(context.Background(), "worker pool %q resized, min: %d, max: %d", p.conf.name, minWorkers, maxWorkers)
	return nil
}

// Shutdown 关闭池并等待所有 worker 和 supervisor 退出。
// drain 为 true 时先执行完队列中的全部任务;为 false 时丢弃队列,
// 正在执行的任务仍会执行完。重复调用等待首次关闭完成后返回。
func (p *Pool) Shutdown(drain bool) {
	_ = p.ShutdownContext(context.Background(), drain)
}

// ShutdownContext 与 Shutdown 相同,但 ctx 结束时提前返回 ctx 的错误,
// 剩余 worker 会在后台继续退出,可通过 Done 等待。
func (p *Pool) ShutdownContext(ctx context.Context, drain bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if !p.state.shuttingDown {
		p.state.shuttingDown = true
		p.state.draining = drain
		if !drain {
			if n := p.queue.Clear(); n > 0 {
				p.state.discarded += uint64(n)
				p.metrics.add(p.metrics.discarded, n)
				p.conf.logger.Warn(ctx, "worker pool %q discarded %d pending tasks", p.conf.name, n)
			}
		} else if p.state.alive == 0 && p.queue.Len() > 0 {
			// 所有 worker 都已异常退出且 supervisor 还没来得及补齐
			p.spawnLocked(1)
		}
		p.wakeAllLocked()
		close(p.stopCh)
		go p.finish()
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "worker pool shutdown")
	}
}

func (p *Pool) finish() {
	<-p.supervisorDone
	p.wg.Wait()

	ctx := context.Background()
	if err := p.metrics.close(); err != nil {
		p.conf.logger.Warn(ctx, "worker pool %q unregister metrics: %v", p.conf.name, err)
	}
	p.conf.logger.Info(ctx, "worker pool %q stopped", p.conf.name)
	close(p.done)
}

// Done 返回的 channel 在关闭完成后被关闭
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:         p.conf.name,
		Min:          p.state.minWorkers,
		Max:          p.state.maxWorkers,
		Alive:        p.state.alive,
		Busy:         p.state.busy,
		Idle:         p.state.idle,
		Retiring:     p.state.retiring,
		QueueLength:  p.queue.Len(),
		ShuttingDown: p.state.shuttingDown,
		Submitted:    p.state.submitted,
		Completed:    p.state.completed,
		Panicked:     p.state.panicked,
		Discarded:    p.state.discarded,
		Spawned:      p.state.spawned,
		Retired:      p.state.retired,
	}
}

func (p *Pool) AliveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.alive
}

func (p *Pool) BusyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.busy
}

func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.idle
}

// QueueLength 队列长度,仅供参考
func (p *Pool) QueueLength() int {
	return p.queue.Len()
}
