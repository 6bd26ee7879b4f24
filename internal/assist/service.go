package assist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/omeyang/priorizai/pkg/observability/xlog"
	"github.com/omeyang/priorizai/pkg/observability/xmetrics"
)

// Service 三个文本助手操作。输入先校验，模型输出无法解析时返回默认结果。
type Service struct {
	llm      Completer
	logger   xlog.Logger
	observer xmetrics.Observer
}

type ServiceOption func(*Service)

func WithLogger(l xlog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o xmetrics.Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

func NewService(llm Completer, opts ...ServiceOption) *Service {
	s := &Service{
		llm:      llm,
		logger:   xlog.Discard(),
		observer: xmetrics.NoopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Prioritize(ctx context.Context, in PrioritizeInput) (*PrioritizeResult, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	user, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := &PrioritizeResult{}
	if err := s.run(ctx, "prioritize", prioritizeSystem(in.Method), user, prioritizeTemperature, out); err != nil {
		return nil, err
	}
	if out.OrderedTasks == nil {
		out.OrderedTasks = []OrderedTask{}
	}
	return out, nil
}

func (s *Service) Calm(ctx context.Context, in CalmInput) (*CalmResult, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	user, err := json.Marshal(struct {
		Tone string `json:"tone"`
		Text string `json:"text"`
	}{in.Tone, in.Text})
	if err != nil {
		return nil, err
	}
	out := &CalmResult{}
	if err := s.run(ctx, "calm", calmPrompt, user, calmTemperature, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Brief(ctx context.Context, in BriefInput) (*BriefResult, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	user, err := json.Marshal(struct {
		Style string `json:"style"`
		Text  string `json:"text"`
	}{in.Style, in.Text})
	if err != nil {
		return nil, err
	}
	out := &BriefResult{}
	if err := s.run(ctx, "brief", briefPrompt, user, briefTemperature, out); err != nil {
		return nil, err
	}
	if out.Bullets == nil {
		out.Bullets = []string{}
	}
	return out, nil
}

// run 调用模型并把回复解码到 out，解码失败时 out 重置为零值。
func (s *Service) run(ctx context.Context, op, system string, user []byte, temperature float64, out any) (err error) {
	ctx, span := xmetrics.Start(ctx, s.observer, xmetrics.SpanOptions{
		Component: "assist",
		Operation: op,
		Kind:      xmetrics.KindClient,
	})
	start := time.Now()
	defer func() {
		span.End(xmetrics.Result{Err: err})
		if err != nil {
			s.logger.Error(ctx, "assist call failed",
				xlog.Operation(op), xlog.Duration(time.Since(start)), xlog.Err(err))
			return
		}
		s.logger.Debug(ctx, "assist call done", xlog.Operation(op), xlog.Duration(time.Since(start)))
	}()

	content, err := s.llm.Complete(ctx, ChatRequest{
		Temperature: temperature,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: string(user)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return err
	}
	decodeOrFallback(ctx, s.logger, op, content, out)
	return nil
}

func decodeOrFallback(ctx context.Context, logger xlog.Logger, op, content string, out any) {
	if content == "" {
		content = "{}"
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		logger.Warn(ctx, "assist reply not json, using fallback", xlog.Operation(op), xlog.Err(err))
		resetTo(out)
	}
}

func resetTo(out any) {
	switch v := out.(type) {
	case *PrioritizeResult:
		*v = PrioritizeResult{}
	case *CalmResult:
		*v = CalmResult{}
	case *BriefResult:
		*v = BriefResult{}
	}
}
