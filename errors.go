package workerpool

import "errors"

var (
	// ErrInvalidConfiguration 配置非法,要求 0 < MinWorkers <= MaxWorkers
	ErrInvalidConfiguration = errors.New("invalid pool configuration")
	// ErrPoolShuttingDown 池已开始关闭,不再接受任务
	ErrPoolShuttingDown = errors.New("worker pool is shutting down")
	// ErrQueueFull 队列已满,当 Enqueue 时队列已满应返回此错误
	ErrQueueFull = errors.New("task queue full")
	// ErrQueueEmpty 队列为空,当 TryDequeue 没数据时应返回此错误
	ErrQueueEmpty = errors.New("task queue empty")
	ErrNilTask    = errors.New("task or task action is nil")
)
