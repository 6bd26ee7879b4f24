package xconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/v2"
)

// EnvBinding 把环境变量绑定到配置键。
//
// 环境变量存在且非空时覆盖文件中的值。Transform 可选，用于类型转换或过滤，
// 返回 ok=false 时忽略该变量（保留文件值或默认值）。
type EnvBinding struct {
	Var       string
	Key       string
	Transform func(raw string) (value any, ok bool)
}

// Bind 创建不做转换的绑定
func Bind(envVar, key string) EnvBinding {
	return EnvBinding{Var: envVar, Key: key}
}

func applyEnv(k *koanf.Koanf, bindings []EnvBinding) error {
	for _, b := range bindings {
		raw, ok := os.LookupEnv(b.Var)
		if !ok || raw == "" {
			continue
		}
		var value any = raw
		if b.Transform != nil {
			v, keep := b.Transform(raw)
			if !keep {
				continue
			}
			value = v
		}
		if err := k.Set(b.Key, value); err != nil {
			return fmt.Errorf("%w: env %s: %w", ErrLoadFailed, b.Var, err)
		}
	}
	return nil
}

// LoadDotenv 把 .env 文件加载进进程环境变量，已存在的变量不会被覆盖。
//
// 未指定 paths 时加载工作目录下的 .env，文件不存在不算错误；
// 显式指定的文件不存在时返回错误。
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return nil
}
