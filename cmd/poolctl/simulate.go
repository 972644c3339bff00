package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	workerpool "github.com/simplely77/elasticpool"
)

// 队列满时的重试间隔,按退避策略从 submitRetryDelay 递增到 submitMaxDelay
const (
	submitRetryDelay = 5 * time.Millisecond
	submitMaxDelay   = 200 * time.Millisecond
)

// simulation 用多个并发提交者向池里灌入固定时长的任务
type simulation struct {
	pool          *workerpool.Pool
	tasks         int
	submitters    int
	taskDuration  time.Duration
	retryAttempts int
	out           io.Writer

	completed atomic.Int64
	outMu     sync.Mutex
}

func (s *simulation) run(ctx context.Context, reportInterval time.Duration, drain bool) error {
	start := time.Now()
	stopReport := s.startReporter(reportInterval)

	submitErr := s.submitAll(ctx)

	// 提交阶段被信号中断时放弃队列中剩余的任务;
	// 排空阶段再收到信号则不再等待
	var shutdownErr error
	if ctx.Err() != nil {
		s.pool.Shutdown(false)
	} else {
		shutdownErr = s.pool.ShutdownContext(ctx, drain)
	}
	stopReport()

	stats := s.pool.Stats()
	s.printf("done in %v: submitted=%d completed=%d panicked=%d discarded=%d spawned=%d retired=%d\n",
		time.Since(start).Round(time.Millisecond),
		stats.Submitted, stats.Completed, stats.Panicked, stats.Discarded, stats.Spawned, stats.Retired)

	if submitErr != nil && !errors.Is(submitErr, context.Canceled) {
		return submitErr
	}
	return shutdownErr
}

// submitAll 把任务尽量平均地分给各个提交者
func (s *simulation) submitAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	per, rem := s.tasks/s.submitters, s.tasks%s.submitters

	for i := 0; i < s.submitters; i++ {
		n := per
		if i < rem {
			n++
		}
		g.Go(func() error {
			for j := 0; j < n; j++ {
				if err := s.submit(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// submit 提交单个任务,只有 ErrQueueFull 会重试
func (s *simulation) submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(s.retryAttempts)),
		retry.Delay(submitRetryDelay),
		retry.MaxDelay(submitMaxDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, workerpool.ErrQueueFull)
		}),
		retry.LastErrorOnly(true),
	).Do(func() error {
		return s.pool.Submit(s.work, nil, workerpool.WithTaskName("sleep"))
	})
}

func (s *simulation) work(any) {
	time.Sleep(s.taskDuration)
	s.completed.Add(1)
}

// startReporter 周期性打印池状态,返回的函数停止打印并等待 goroutine 退出
func (s *simulation) startReporter(interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.pool.Stats()
				s.printf("alive=%d busy=%d idle=%d retiring=%d queue=%d completed=%d\n",
					st.Alive, st.Busy, st.Idle, st.Retiring, st.QueueLength, s.completed.Load())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

func (s *simulation) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
