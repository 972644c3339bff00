package workerpool

import (
	"context"
	"time"
)

// supervise 周期性采样池状态并按策略伸缩,直到池开始关闭
func (p *Pool) supervise() {
	defer close(p.supervisorDone)

	ticker := time.NewTicker(p.conf.samplingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.adjust()
		}
	}
}

// adjust 执行一次伸缩决策
func (p *Pool) adjust() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.shuttingDown {
		return
	}

	s := p.snapshotLocked()
	d := p.conf.policy.Decide(s).clamp(s)
	ctx := context.Background()
	switch {
	case d.Grow > 0:
		n := p.spawnLocked(d.Grow)
		p.conf.logger.Info(ctx, "worker pool %q grow %d workers, queue: %d, alive: %d, busy: %d",
			p.conf.name, n, s.QueueLength, s.Alive, s.Busy)
	case d.Shrink > 0:
		n := p.retireLocked(d.Shrink)
		p.conf.logger.Info(ctx, "worker pool %q shrink %d workers, queue: %d, alive: %d, busy: %d",
			p.conf.name, n, s.QueueLength, s.Alive, s.Busy)
	}
}

func (p *Pool) snapshotLocked() Snapshot {
	return Snapshot{
		QueueLength: p.queue.Len(),
		Alive:       p.state.alive - p.state.retiring,
		Busy:        p.state.busy,
		Idle:        p.state.idle,
		Retiring:    p.state.retiring,
		Min:         p.state.minWorkers,
		Max:         p.state.maxWorkers,
		Step:        p.conf.growthStep,
	}
}

// spawnLocked 启动至多 n 个 worker,不会超过上限,返回实际启动数
func (p *Pool) spawnLocked(n int) int {
	spawned := 0
	for ; spawned < n && p.state.alive < p.state.maxWorkers; spawned++ {
		w := newWorker(p)
		w.handle = p.workers.insert(w)
		p.state.alive++
		p.state.idle++
		p.state.spawned++
		p.wg.Add(1)
		go w.run()
	}
	p.metrics.add(p.metrics.spawned, spawned)
	return spawned
}

// retireLocked 标记至多 n 个 worker 退出,优先选择空闲等待中的 worker。
// 忙碌的 worker 在完成当前任务后退出。
func (p *Pool) retireLocked(n int) int {
	marked := 0
	for marked < n {
		e := p.parked.Front()
		if e == nil {
			break
		}
		w := p.parked.Remove(e).(*worker)
		w.parkedAt = nil
		w.retire = true
		p.state.retiring++
		w.signal()
		marked++
	}
	if marked < n {
		p.workers.each(func(w *worker) {
			if marked >= n || w.retire {
				return
			}
			w.retire = true
			p.state.retiring++
			marked++
		})
	}
	return marked
}

// wakeOneLocked 唤醒最近进入等待的 worker,没有等待者时返回 false
func (p *Pool) wakeOneLocked() bool {
	e := p.parked.Back()
	if e == nil {
		return false
	}
	w := p.parked.Remove(e).(*worker)
	w.parkedAt = nil
	w.signal()
	return true
}

func (p *Pool) wakeAllLocked() {
	for p.wakeOneLocked() {
	}
}
