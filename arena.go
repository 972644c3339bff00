package workerpool

// workerHandle 指向 arena 中某个槽位的某一代 worker
type workerHandle struct {
	index int
	gen   uint32
}

type arenaSlot struct {
	gen uint32
	w   *worker
}

// workerArena 保存所有存活 worker,只在池锁内访问。
// 槽位释放时 gen 自增,过期句柄无法清空被复用的槽位。
type workerArena struct {
	slots []arenaSlot
	free  []int
	live  int
}

func (a *workerArena) insert(w *worker) workerHandle {
	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, arenaSlot{})
		idx = len(a.slots) - 1
	}
	a.slots[idx].w = w
	a.live++
	return workerHandle{index: idx, gen: a.slots[idx].gen}
}

func (a *workerArena) get(h workerHandle) *worker {
	if h.index < 0 || h.index >= len(a.slots) {
		return nil
	}
	s := a.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.w
}

// release 释放句柄对应的槽位,句柄过期时返回 false
func (a *workerArena) release(h workerHandle) bool {
	if a.get(h) == nil {
		return false
	}
	a.slots[h.index].w = nil
	a.slots[h.index].gen++
	a.free = append(a.free, h.index)
	a.live--
	return true
}

func (a *workerArena) each(fn func(w *worker)) {
	for _, s := range a.slots {
		if s.w != nil {
			fn(s.w)
		}
	}
}

func (a *workerArena) len() int {
	return a.live
}
