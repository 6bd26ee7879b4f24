package assist

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxTextRunes 单段文本的最大字符数
	MaxTextRunes = 8000
	// MaxTasks 一次排序最多的任务数
	MaxTasks = 10

	urlTextThreshold = 2000
)

var injectionMarkers = []string{
	"<script",
	"javascript:",
	"onerror=",
	"ignore previous",
	"system prompt",
	"developer message",
}

// CleanText 去掉 NUL 字符并裁剪首尾空白
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// LooksLikeInjection 粗粒度识别 XSS 与提示词注入。
//
// 含 URL 的文本只有超过 2000 字符才判定为可疑。
func LooksLikeInjection(s string) bool {
	t := strings.ToLower(CleanText(s))
	for _, m := range injectionMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	if strings.Contains(t, "http://") || strings.Contains(t, "https://") {
		return utf8.RuneCountInString(t) > urlTextThreshold
	}
	return false
}

func checkText(s string) (string, error) {
	t := CleanText(s)
	if t == "" {
		return "", Invalid(MsgNoText)
	}
	if utf8.RuneCountInString(t) > MaxTextRunes {
		return "", Invalid(MsgTextTooLong)
	}
	if LooksLikeInjection(t) {
		return "", Invalid(MsgBadContent)
	}
	return t, nil
}

func normalizeMethod(m string) (string, error) {
	switch strings.ToLower(CleanText(m)) {
	case "", MethodImpactEffort:
		return MethodImpactEffort, nil
	case MethodRICE:
		return MethodRICE, nil
	case MethodMoSCoW:
		return MethodMoSCoW, nil
	case MethodGUT:
		return MethodGUT, nil
	default:
		return "", Invalid(MsgBadMethod)
	}
}

// Normalize 校验并清洗输入，返回新的副本。
func (in PrioritizeInput) Normalize() (PrioritizeInput, error) {
	if len(in.Tasks) == 0 {
		return PrioritizeInput{}, Invalid(MsgNoTasks)
	}
	if len(in.Tasks) > MaxTasks {
		return PrioritizeInput{}, Invalid(MsgTooManyTasks)
	}
	method, err := normalizeMethod(in.Method)
	if err != nil {
		return PrioritizeInput{}, err
	}
	out := PrioritizeInput{Method: method, Tasks: make([]Task, 0, len(in.Tasks))}
	for _, t := range in.Tasks {
		if LooksLikeInjection(t.Title) || LooksLikeInjection(t.Context) ||
			LooksLikeInjection(t.Impact) || LooksLikeInjection(t.Effort) {
			return PrioritizeInput{}, Invalid(MsgBadContent)
		}
		c := Task{
			Title:   CleanText(t.Title),
			Context: CleanText(t.Context),
			Impact:  CleanText(t.Impact),
			Effort:  CleanText(t.Effort),
		}
		if c.Title == "" {
			return PrioritizeInput{}, Invalid(MsgTaskTitle)
		}
		if utf8.RuneCountInString(c.Title+c.Context+c.Impact+c.Effort) > MaxTextRunes {
			return PrioritizeInput{}, Invalid(MsgTextTooLong)
		}
		out.Tasks = append(out.Tasks, c)
	}
	return out, nil
}

func (in CalmInput) Normalize() (CalmInput, error) {
	text, err := checkText(in.Text)
	if err != nil {
		return CalmInput{}, err
	}
	tone := CleanText(in.Tone)
	if tone == "" {
		tone = DefaultTone
	}
	return CalmInput{Text: text, Tone: tone}, nil
}

func (in BriefInput) Normalize() (BriefInput, error) {
	text, err := checkText(in.Text)
	if err != nil {
		return BriefInput{}, err
	}
	style := CleanText(in.Style)
	if style == "" {
		style = DefaultStyle
	}
	return BriefInput{Text: text, Style: style}, nil
}
