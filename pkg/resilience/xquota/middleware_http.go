package xquota

import "net/http"

// HTTPMiddleware 创建每日配额中间件。
//
// 放行时写入配额响应头并调用 next；超额时调用 DenyHandler（默认 429）；
// 网关出错时调用 ErrorHandler，请求不会被放行。
//
//	gate := xquota.New(cfg, store)
//	r.With(xquota.HTTPMiddleware(gate)).Post("/prioritize", h)
func HTTPMiddleware(gate *Gate, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if gate == nil {
		panic("xquota: HTTPMiddleware requires a non-nil Gate")
	}
	mopts := defaultMiddlewareOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(mopts)
		}
	}
	mopts.sanitize()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mopts.SkipFunc != nil && mopts.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}
			d, err := gate.Check(r.Context(), r)
			if err != nil {
				mopts.ErrorHandler(w, r, err)
				return
			}
			if mopts.EnableHeaders {
				d.SetHeaders(w)
			}
			if !d.Admitted {
				mopts.DenyHandler(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
