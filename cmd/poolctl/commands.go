package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	workerpool "github.com/simplely77/elasticpool"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件路径 (yaml/json)",
		},
		&cli.IntFlag{Name: "min", Usage: "最少 worker 数"},
		&cli.IntFlag{Name: "max", Usage: "最多 worker 数"},
		&cli.IntFlag{Name: "growth-step", Usage: "每次伸缩的 worker 数"},
		&cli.DurationFlag{Name: "sampling-interval", Usage: "supervisor 采样周期"},
		&cli.DurationFlag{Name: "idle-timeout", Usage: "worker 空闲超时,0 表示不超时"},
		&cli.IntFlag{Name: "queue-capacity", Usage: "队列容量,0 表示无界"},
		&cli.StringFlag{Name: "policy", Usage: "伸缩策略: utilization / grow-only"},
		&cli.BoolFlag{Name: "eager-spawn", Usage: "提交时无空闲 worker 立即扩容,--eager-spawn=false 关闭"},
		&cli.StringFlag{Name: "log-file", Usage: "日志文件,为空时输出到 stderr"},
		&cli.StringFlag{Name: "log-level", Usage: "日志级别", Value: "info"},
	}
}

// loadConfig 读取配置文件并用命令行参数覆盖
func loadConfig(cmd *cli.Command) (workerpool.Config, error) {
	cfg := workerpool.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = workerpool.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	applyOverrides(cmd, &cfg)
	return cfg, nil
}

func applyOverrides(cmd *cli.Command, cfg *workerpool.Config) {
	if cmd.IsSet("min") {
		cfg.MinWorkers = cmd.Int("min")
	}
	if cmd.IsSet("max") {
		cfg.MaxWorkers = cmd.Int("max")
	}
	if cmd.IsSet("growth-step") {
		cfg.GrowthStep = cmd.Int("growth-step")
	}
	if cmd.IsSet("sampling-interval") {
		cfg.SamplingInterval = cmd.Duration("sampling-interval")
	}
	if cmd.IsSet("idle-timeout") {
		cfg.IdleTimeout = cmd.Duration("idle-timeout")
	}
	if cmd.IsSet("queue-capacity") {
		cfg.QueueCapacity = cmd.Int("queue-capacity")
	}
	if cmd.IsSet("policy") {
		cfg.Policy = cmd.String("policy")
	}
	if cmd.IsSet("eager-spawn") {
		cfg.EagerSpawn = cmd.Bool("eager-spawn")
	}
}

func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "打印合并后的最终配置",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			printConfig(cmd.Root().Writer, cfg)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg workerpool.Config) {
	fmt.Fprintf(w, "name:              %s\n", cfg.Name)
	fmt.Fprintf(w, "min_workers:       %d\n", cfg.MinWorkers)
	fmt.Fprintf(w, "max_workers:       %d\n", cfg.MaxWorkers)
	fmt.Fprintf(w, "growth_step:       %d\n", cfg.GrowthStep)
	fmt.Fprintf(w, "sampling_interval: %v\n", cfg.SamplingInterval)
	fmt.Fprintf(w, "idle_timeout:      %v\n", cfg.IdleTimeout)
	fmt.Fprintf(w, "queue_capacity:    %d\n", cfg.QueueCapacity)
	fmt.Fprintf(w, "policy:            %s\n", cfg.Policy)
	fmt.Fprintf(w, "eager_spawn:       %t\n", cfg.EagerSpawn)
}

func createSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "提交一批休眠任务并观察池的伸缩",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tasks", Aliases: []string{"n"}, Usage: "任务总数", Value: 100},
			&cli.DurationFlag{Name: "task-duration", Aliases: []string{"d"}, Usage: "每个任务的休眠时间", Value: time.Second},
			&cli.IntFlag{Name: "submitters", Usage: "并发提交者数量", Value: 1},
			&cli.IntFlag{Name: "retry-attempts", Usage: "队列满时的最多尝试次数", Value: 10},
			&cli.DurationFlag{Name: "report-interval", Usage: "状态打印周期,0 表示不打印", Value: time.Second},
			&cli.BoolFlag{Name: "drain", Usage: "关闭时执行完队列中的任务", Value: true},
			&cli.BoolFlag{Name: "watch", Usage: "监听配置文件变化并实时调整上下限"},
		},
		Action: runSimulate,
	}
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	logger, closer, err := newLogger(cmd.String("log-file"), cmd.String("log-level"), cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer closer.Close()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Int("tasks") < 0 || cmd.Int("submitters") <= 0 || cmd.Int("retry-attempts") <= 0 {
		return errors.New("tasks must be >= 0, submitters and retry-attempts must be > 0")
	}

	pool, err := workerpool.NewFromConfig(cfg, workerpool.WithLogger(workerpool.NewSlogLogger(logger)))
	if err != nil {
		return err
	}

	if path := cmd.String("config"); cmd.Bool("watch") && path != "" {
		w, err := watchConfig(path, defaultDebounce, func(next workerpool.Config, err error) {
			if err != nil {
				logger.Warn("config reload failed", "error", err)
				return
			}
			// 命令行参数优先级高于配置文件
			applyOverrides(cmd, &next)
			if err := pool.Resize(next.MinWorkers, next.MaxWorkers); err != nil {
				logger.Warn("resize from config failed", "error", err)
				return
			}
			logger.Info("config reloaded", "min", next.MinWorkers, "max", next.MaxWorkers)
		})
		if err != nil {
			pool.Shutdown(false)
			return err
		}
		defer w.Close()
	}

	sim := &simulation{
		pool:          pool,
		tasks:         cmd.Int("tasks"),
		submitters:    cmd.Int("submitters"),
		taskDuration:  cmd.Duration("task-duration"),
		retryAttempts: cmd.Int("retry-attempts"),
		out:           cmd.Root().Writer,
	}
	return sim.run(ctx, cmd.Duration("report-interval"), cmd.Bool("drain"))
}
