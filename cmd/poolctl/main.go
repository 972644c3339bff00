// poolctl 是弹性 worker 池的演示与压测工具。
//
// 用法:
//
//	poolctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config          配置文件路径 (yaml/json),pool 段落
//	--min, --max          覆盖配置中的 worker 上下限
//	--growth-step         覆盖每次伸缩的 worker 数
//	--sampling-interval   覆盖 supervisor 采样周期
//	--idle-timeout        覆盖 worker 空闲超时
//	--queue-capacity      覆盖队列容量 (0 表示无界)
//	--policy              覆盖伸缩策略 (utilization / grow-only)
//	--eager-spawn         覆盖提交时立即扩容开关
//	--log-file            日志输出文件,按大小滚动;为空时输出到 stderr
//	--log-level           日志级别 (debug/info/warn/error)
//
// 命令:
//
//	simulate   提交一批休眠任务,周期性打印池状态,最后按 --drain 关闭
//	config     打印合并后的最终配置
//
// 示例:
//
//	poolctl --min 2 --max 5 simulate --tasks 100 --task-duration 1s
//	poolctl -c pool.yaml simulate --watch      # 修改 pool.yaml 的上下限会实时生效
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	_ "go.uber.org/automaxprocs"
)

// Version 可通过 -ldflags "-X main.Version=..." 注入
var Version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:     "poolctl",
		Usage:    "弹性 worker 池演示与压测工具",
		Version:  Version,
		Flags:    globalFlags(),
		Commands: []*cli.Command{createSimulateCommand(), createConfigCommand()},
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := createApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
