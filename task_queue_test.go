package workerpool

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueImpls() map[string]func() TaskQueue {
	return map[string]func() TaskQueue{
		"list":   func() TaskQueue { return NewListTaskQueue() },
		"memory": func() TaskQueue { return NewMemoryTaskQueue(1024) },
	}
}

func TestTaskQueue_FIFO(t *testing.T) {
	for name, newQueue := range queueImpls() {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			_, err := q.TryDequeue()
			assert.ErrorIs(t, err, ErrQueueEmpty)

			for i := 0; i < 10; i++ {
				require.NoError(t, q.Enqueue(NewTask(func(any) {}, i)))
			}
			assert.Equal(t, 10, q.Len())

			for i := 0; i < 10; i++ {
				task, err := q.TryDequeue()
				require.NoError(t, err)
				assert.Equal(t, i, task.Arg())
			}
			assert.Equal(t, 0, q.Len())
			_, err = q.TryDequeue()
			assert.ErrorIs(t, err, ErrQueueEmpty)
		})
	}
}

func TestTaskQueue_NilTask(t *testing.T) {
	for name, newQueue := range queueImpls() {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, newQueue().Enqueue(nil), ErrNilTask)
		})
	}
}

func TestTaskQueue_Clear(t *testing.T) {
	for name, newQueue := range queueImpls() {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			for i := 0; i < 5; i++ {
				require.NoError(t, q.Enqueue(NewTask(func(any) {}, i)))
			}
			assert.Equal(t, 5, q.Clear())
			assert.Equal(t, 0, q.Len())
			assert.Equal(t, 0, q.Clear())

			require.NoError(t, q.Enqueue(NewTask(func(any) {}, "after")))
			task, err := q.TryDequeue()
			require.NoError(t, err)
			assert.Equal(t, "after", task.Arg())
		})
	}
}

func TestTaskQueue_ConcurrentNoLossNoDuplicate(t *testing.T) {
	const producers, perProducer = 8, 500
	for name, newQueue := range queueImpls() {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			var wg sync.WaitGroup
			var mu sync.Mutex
			seen := make(map[int]int)

			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < perProducer; i++ {
						task := NewTask(func(any) {}, p*perProducer+i)
						for q.Enqueue(task) != nil {
							// 有界队列满了,等消费者腾出空间
						}
					}
				}(p)
			}

			var consumers sync.WaitGroup
			for c := 0; c < 4; c++ {
				consumers.Add(1)
				go func() {
					defer consumers.Done()
					for {
						mu.Lock()
						done := len(seen) == producers*perProducer
						mu.Unlock()
						if done {
							return
						}
						task, err := q.TryDequeue()
						if err != nil {
							continue
						}
						mu.Lock()
						seen[task.Arg().(int)]++
						mu.Unlock()
					}
				}()
			}

			wg.Wait()
			consumers.Wait()
			require.Len(t, seen, producers*perProducer)
			for k, v := range seen {
				assert.Equal(t, 1, v, "task %d", k)
			}
		})
	}
}

func TestMemoryTaskQueue_Full(t *testing.T) {
	q := NewMemoryTaskQueue(3)
	assert.Equal(t, 3, q.Cap())
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(NewTask(func(any) {}, i)))
	}
	assert.ErrorIs(t, q.Enqueue(NewTask(func(any) {}, 3)), ErrQueueFull)
	assert.Equal(t, 3, q.Len())

	_, err := q.TryDequeue()
	require.NoError(t, err)
	assert.NoError(t, q.Enqueue(NewTask(func(any) {}, 4)))
}

func TestNewMemoryTaskQueue_ClampsCapacity(t *testing.T) {
	assert.Equal(t, 1, NewMemoryTaskQueue(0).Cap())

	q := NewMemoryTaskQueue(math.MaxInt32)
	assert.Equal(t, MaxQueueCapacity, q.Cap())
	require.NoError(t, q.Enqueue(NewTask(func(any) {}, nil)))
	task, err := q.TryDequeue()
	require.NoError(t, err)
	assert.NotNil(t, task)
}

func TestNewTask(t *testing.T) {
	task := NewTask(func(any) {}, 1, WithTaskName("resize"))
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "resize", task.Name)
	assert.Equal(t, "resize/"+task.ID, task.label())

	other := NewTask(func(any) {}, 1)
	assert.NotEqual(t, task.ID, other.ID)
	assert.Equal(t, other.ID, other.label())
}

func TestTask_ReleaseRunsOnPanic(t *testing.T) {
	var released any
	task := NewTask(func(any) { panic("boom") }, 42, WithRelease(func(arg any) { released = arg }))

	assert.Panics(t, task.run)
	assert.Equal(t, 42, released)
}

// BenchmarkListTaskQueue 测试无界队列入队出队性能
func BenchmarkListTaskQueue(b *testing.B) {
	q := NewListTaskQueue()
	task := NewTask(func(any) {}, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = q.Enqueue(task)
		_, _ = q.TryDequeue()
	}
}
