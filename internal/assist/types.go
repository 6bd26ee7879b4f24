package assist

// 优先级排序方法
const (
	MethodImpactEffort = "impact_effort"
	MethodRICE         = "rice"
	MethodMoSCoW       = "moscow"
	MethodGUT          = "gut"
)

// 默认语气与风格
const (
	DefaultTone  = "neutro"
	DefaultStyle = "executivo"
)

// Task 待排序的任务
type Task struct {
	Title   string `json:"title"`
	Context string `json:"context"`
	Impact  string `json:"impact"`
	Effort  string `json:"effort"`
}

type PrioritizeInput struct {
	Method string `json:"method"`
	Tasks  []Task `json:"tasks"`
}

type CalmInput struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

type BriefInput struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

// OrderedTask 排序结果中的一项，Position 从 1 开始。
type OrderedTask struct {
	Position  int    `json:"position"`
	TaskTitle string `json:"task_title"`
}

type PrioritizeResult struct {
	OrderedTasks []OrderedTask `json:"ordered_tasks"`
}

type CalmResult struct {
	RewrittenText string `json:"rewritten_text"`
}

type BriefResult struct {
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
}
