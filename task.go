package workerpool

import (
	"github.com/google/uuid"
)

// Action 任务函数, arg 为提交时携带的参数
type Action func(arg any)

// Task 一个不可变的工作单元,入队后不应再修改
type Task struct {
	TaskOptions
	ID     string
	action Action
	arg    any
}

type TaskOptions struct {
	// Name 任务名称,仅用于日志
	Name string
	// Release 任务执行完成后(无论成功或 panic)调用,用于释放 arg 引用的资源
	Release func(arg any)
}

type TaskOption func(*TaskOptions)

func (o *TaskOptions) Apply(opts ...TaskOption) {
	for _, opt := range opts {
		opt(o)
	}
}

func WithTaskName(name string) TaskOption {
	return func(opts *TaskOptions) {
		opts.Name = name
	}
}

func WithRelease(release func(arg any)) TaskOption {
	return func(opts *TaskOptions) {
		opts.Release = release
	}
}

func NewTask(action Action, arg any, opts ...TaskOption) *Task {
	o := TaskOptions{}
	o.Apply(opts...)

	return &Task{
		TaskOptions: o,
		ID:          uuid.New().String(),
		action:      action,
		arg:         arg,
	}
}

// Arg 返回任务参数
func (t *Task) Arg() any {
	return t.arg
}

func (t *Task) label() string {
	if t.Name != "" {
		return t.Name + "/" + t.ID
	}
	return t.ID
}

// run 执行任务并在最后释放参数; panic 会继续向上传播给 worker
func (t *Task) run() {
	if t.Release != nil {
		defer t.Release(t.arg)
	}
	t.action(t.arg)
}
