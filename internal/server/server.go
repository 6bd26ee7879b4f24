package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/omeyang/priorizai/internal/assist"
	"github.com/omeyang/priorizai/pkg/context/xctx"
	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/resilience/xquota"
)

// ServiceName GET / 返回的服务名
const ServiceName = "priorizai-worker"

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// Assistant 助手操作
type Assistant interface {
	Prioritize(ctx context.Context, in assist.PrioritizeInput) (*assist.PrioritizeResult, error)
	Calm(ctx context.Context, in assist.CalmInput) (*assist.CalmResult, error)
	Brief(ctx context.Context, in assist.BriefInput) (*assist.BriefResult, error)
}

// Server HTTP 入口：配额中间件挡在三个助手接口之前。
type Server struct {
	cfg       Config
	gate      *xquota.Gate
	assistant Assistant
	logger    xlog.Logger
	metrics   http.Handler
	quotaOpts []xquota.MiddlewareOption
	handler   http.Handler
}

type Option func(*Server)

func WithLogger(l xlog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler 挂载到 GET /metrics，未设置时不注册该路由。
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithQuotaOptions 透传给 xquota.HTTPMiddleware
func WithQuotaOptions(opts ...xquota.MiddlewareOption) Option {
	return func(s *Server) { s.quotaOpts = append(s.quotaOpts, opts...) }
}

func New(cfg Config, gate *xquota.Gate, assistant Assistant, opts ...Option) (*Server, error) {
	if gate == nil {
		return nil, ErrNilGate
	}
	if assistant == nil {
		return nil, ErrNilAssistant
	}
	s := &Server{
		cfg:       cfg.withDefaults(),
		gate:      gate,
		assistant: assistant,
		logger:    xlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) Config() Config { return s.cfg }

func (s *Server) Handler() http.Handler { return s.handler }

// HTTPServer 按配置创建 *http.Server，由 xrun.HTTPServer 管理生命周期。
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(preflight)
	r.Use(s.limitBody)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": ServiceName})
	})
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(xquota.HTTPMiddleware(s.gate, s.quotaOpts...))
		r.Post("/prioritize", s.handlePrioritize)
		r.Post("/calmai", s.handleCalm)
		r.Post("/briefai", s.handleBrief)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{
			xquota.HeaderLimit, xquota.HeaderRemaining, xquota.HeaderReset, xquota.HeaderRetryAfter, HeaderRequestID,
		},
		OptionsSuccessStatus: http.StatusNoContent,
	})
	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Ping(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "health check failed", xlog.Err(err))
		writeJSON(w, xquota.StatusOf(err), xquota.ErrorBody{Code: xquota.CodeOf(err), Message: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": s.gate.Backend()})
}

func (s *Server) handlePrioritize(w http.ResponseWriter, r *http.Request) {
	var in assist.PrioritizeInput
	if err := decodeBody(r, &in); err != nil {
		s.writeAssistError(w, r, err)
		return
	}
	out, err := s.assistant.Prioritize(r.Context(), in)
	if err != nil {
		s.writeAssistError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleCalm(w http.ResponseWriter, r *http.Request) {
	var in assist.CalmInput
	if err := decodeBody(r, &in); err != nil {
		s.writeAssistError(w, r, err)
		return
	}
	out, err := s.assistant.Calm(r.Context(), in)
	if err != nil {
		s.writeAssistError(w, r, err)
		return
	}
	writeData(w, out)
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	var in assist.BriefInput
	if err := decodeBody(r, &in); err != nil {
		s.writeAssistError(w, r, err)
		return
	}
	out, err := s.assistant.Brief(r.Context(), in)
	if err != nil {
		s.writeAssistError(w, r, err)
		return
	}
	writeData(w, out)
}

// requestID 沿用合法的 X-Request-ID，否则生成新的。
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := xctx.EnsureRequestID(r.Context(), r.Header.Get(HeaderRequestID))
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		attrs := append(s.requestAttrs(r, ww.Status(), nil), xlog.Duration(time.Since(start)))
		s.logger.Info(r.Context(), "http request", attrs...)
	})
}

func (s *Server) requestAttrs(r *http.Request, status int, err error) []slog.Attr {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		path = rctx.RoutePattern()
	}
	attrs := []slog.Attr{xlog.Method(r.Method), xlog.Path(path), xlog.StatusCode(status)}
	if err != nil {
		attrs = append(attrs, xlog.Err(err))
	}
	return attrs
}

// preflight 任意路径的 OPTIONS 返回 204，CORS 头由外层 cors 处理器写入。
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
