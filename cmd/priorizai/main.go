// priorizai 是 PriorizAI 服务的入口：HTTP 服务与运维命令。
//
// 用法:
//
//	priorizai [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config    配置文件路径（YAML/JSON），也可用 PRIORIZAI_CONFIG 指定
//	    --env-file  额外加载的 .env 文件，默认加载工作目录下的 .env
//
// 命令:
//
//	serve           启动 HTTP 服务（默认命令）
//	hash            计算地址标识（HASH_SALT + 地址）
//	quota           查看或重置某个地址今日的用量
//	config check    校验配置
//
// 退出码:
//
//	0: 成功
//	1: 运行失败
//	2: 参数或配置错误
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "priorizai",
		Usage:   "PriorizAI API：每日配额网关与文本助手",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				Sources: cli.EnvVars("PRIORIZAI_CONFIG"),
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "加载的 .env 文件",
			},
		},
		Before:         loadDotenv,
		Commands:       createCommands(),
		DefaultCommand: "serve",
		// 退出码由 run() 统一映射
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exitCode(createApp().Run(ctx, os.Args))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", ue)
		return 2
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	return 1
}
