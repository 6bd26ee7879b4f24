// Package xconf 基于 koanf 的配置：YAML/JSON 文件、环境变量绑定、文件热更新。
//
// 环境变量在每次加载（包括 Reload）时叠加在文件之上，热更新不会把 env 设置的值改回文件值。
//
//	_ = xconf.LoadDotenv()
//	cfg, err := xconf.New("config.yaml", xconf.WithEnv(xconf.Bind("HASH_SALT", "quota.secret")))
//	var q QuotaConfig
//	err = cfg.Unmarshal("quota", &q)
//
//	w, err := cfg.NewWatcher()
//	go w.Run(ctx, func(err error) { ... })
package xconf
