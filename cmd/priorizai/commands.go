package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/priorizai/internal/app"
	"github.com/omeyang/priorizai/pkg/config/xconf"
	"github.com/omeyang/priorizai/pkg/lifecycle/xrun"
	"github.com/omeyang/priorizai/pkg/resilience/xquota"
	"github.com/omeyang/priorizai/pkg/util/xnet"
)

// usageError 参数或配置错误，退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// exitError 已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

func createCommands() []*cli.Command {
	return []*cli.Command{
		createServeCommand(),
		createHashCommand(),
		createQuotaCommand(),
		createConfigCommand(),
	}
}

func loadDotenv(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := xconf.LoadDotenv(cmd.StringSlice("env-file")...); err != nil {
		return ctx, &usageError{err: err}
	}
	return ctx, nil
}

func loadConfig(cmd *cli.Command) (*xconf.Config, app.Config, error) {
	conf, cfg, err := app.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, app.Config{}, &usageError{err: err}
	}
	return conf, cfg, nil
}

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动 HTTP 服务",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := app.New(ctx, conf, cfg)
			if err != nil {
				return &usageError{err: err}
			}
			runErr := a.Run(ctx)
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			closeErr := a.Close(closeCtx)
			if runErr != nil && !errors.Is(runErr, xrun.ErrSignal) && !errors.Is(runErr, context.Canceled) {
				return errors.Join(runErr, closeErr)
			}
			return closeErr
		},
	}
}

func createHashCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash",
		Usage: "计算地址标识，用于排查计数键",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "secret", Usage: "哈希密钥", Sources: cli.EnvVars("HASH_SALT")},
			&cli.StringFlag{Name: "addr", Usage: "客户端地址", Required: true},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			h, err := xquota.NewHasher(cmd.String("secret"))
			if err != nil {
				return &usageError{err: err}
			}
			addr, err := xnet.NormalizeAddr(cmd.String("addr"))
			if err != nil {
				return &usageError{err: err}
			}
			sum, err := h.Hash(addr)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, sum)
			return err
		},
	}
}

func createQuotaCommand() *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "查看或重置某个地址今日的用量",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "客户端地址", Required: true},
			&cli.BoolFlag{Name: "reset", Usage: "清零今日计数（运行中服务的耗尽缓存在 exhausted_cache_ttl 后失效）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Metrics.Enabled = false
			cfg.Log.Level = "error"
			a, err := app.New(ctx, nil, cfg)
			if err != nil {
				return &usageError{err: err}
			}
			defer a.Close(context.WithoutCancel(ctx)) //nolint:errcheck // 命令结束

			addr := cmd.String("addr")
			if cmd.Bool("reset") {
				if err := a.Gate().Reset(ctx, addr); err != nil {
					return err
				}
			}
			q, err := a.Gate().Peek(ctx, addr)
			if err != nil {
				return err
			}
			return writeJSON(cmd, q)
		},
	}
}

func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "配置相关命令",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "校验配置，失败时退出码为 2",
				Action: func(_ context.Context, cmd *cli.Command) error {
					_, cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					if err := errors.Join(cfg.Validate(), cfg.Quota.Validate()); err != nil {
						return &usageError{err: err}
					}
					_, err = fmt.Fprintf(cmd.Root().Writer, "ok: store=%s limit=%d timezone=%s\n",
						cfg.Store.Backend, cfg.Quota.Limit, cfg.Quota.Timezone)
					return err
				},
			},
		},
	}
}

func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
