package workerpool

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hedzr/go-ringbuf/v2"
	"github.com/hedzr/go-ringbuf/v2/mpmc"
)

type (
	// ListTaskQueue 无界 FIFO 队列,默认实现
	ListTaskQueue struct {
		data  []*Task
		mutex sync.Mutex
	}

	// MemoryTaskQueue 基于 ringbuf 的有界 FIFO 队列
	MemoryTaskQueue struct {
		data     mpmc.RingBuffer[*Task]
		capacity int
		size     int
		mutex    sync.Mutex
	}
)

var (
	_ TaskQueue = &ListTaskQueue{}
	_ TaskQueue = &MemoryTaskQueue{}
)

func NewListTaskQueue() *ListTaskQueue {
	return &ListTaskQueue{}
}

// NewMemoryTaskQueue 创建容量为 capacity 的有界队列,
// capacity 被限制在 [1, MaxQueueCapacity] 范围内
func NewMemoryTaskQueue(capacity int) *MemoryTaskQueue {
	capacity = min(max(capacity, 1), MaxQueueCapacity)
	// ringbuf 会保留一个空槽,多申请一个保证能装下 capacity 个任务
	return &MemoryTaskQueue{
		data:     ringbuf.New[*Task](uint32(capacity + 1)),
		capacity: capacity,
	}
}

func (q *ListTaskQueue) Enqueue(task *Task) error {
	if task == nil {
		return errors.WithStack(ErrNilTask)
	}
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.data = append(q.data, task)
	return nil
}

func (q *ListTaskQueue) TryDequeue() (*Task, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.data) == 0 {
		return nil, ErrQueueEmpty
	}
	task := q.data[0]
	q.data[0] = nil
	q.data = q.data[1:]
	return task, nil
}

func (q *ListTaskQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.data)
}

func (q *ListTaskQueue) Clear() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	n := len(q.data)
	q.data = nil
	return n
}

func (q *MemoryTaskQueue) Enqueue(task *Task) error {
	if task == nil {
		return errors.WithStack(ErrNilTask)
	}
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.size >= q.capacity {
		return errors.WithStack(ErrQueueFull)
	}
	err := q.data.Enqueue(task)
	if errors.Is(err, mpmc.ErrQueueFull) {
		return errors.WithStack(ErrQueueFull)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	q.size++
	return nil
}

func (q *MemoryTaskQueue) TryDequeue() (*Task, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if q.size == 0 {
		return nil, ErrQueueEmpty
	}
	task, err := q.data.Dequeue()
	if errors.Is(err, mpmc.ErrQueueEmpty) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	q.size--
	return task, nil
}

func (q *MemoryTaskQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.size
}

func (q *MemoryTaskQueue) Cap() int {
	return q.capacity
}

func (q *MemoryTaskQueue) Clear() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	n := 0
	for q.size > 0 {
		if _, err := q.data.Dequeue(); err != nil {
			break
		}
		q.size--
		n++
	}
	q.size = 0
	return n
}
