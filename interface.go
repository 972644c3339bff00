package workerpool

import "context"

// TaskQueue 任务队列,所有实现必须是并发安全的 FIFO
type TaskQueue interface {
	// Enqueue 入队,有界队列已满时返回 ErrQueueFull
	Enqueue(task *Task) error
	// TryDequeue 非阻塞出队,队列为空时返回 ErrQueueEmpty
	TryDequeue() (*Task, error)
	// Len 当前长度,仅供参考,返回后可能立刻过期
	Len() int
	// Clear 清空队列并返回被丢弃的任务数
	Clear() int
}

// ScalingPolicy 伸缩策略,由 supervisor 周期性调用
type ScalingPolicy interface {
	Decide(s Snapshot) Decision
}

type Logger interface {
	Debug(ctx context.Context, format string, args ...any)
	Info(ctx context.Context, format string, args ...any)
	Warn(ctx context.Context, format string, args ...any)
}
