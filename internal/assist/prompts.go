package assist

import "fmt"

const prioritizePrompt = `Você é um assistente de priorização. Retorne JSON estrito, sem markdown.
Objetivo: ordenar tarefas por prioridade.
Método: %s.
Formato de saída:
{
  "ordered_tasks": [
    {"position": 1, "task_title": "..." }
  ]
}`

const calmPrompt = `Você reescreve mensagens para reduzir conflito. Retorne JSON estrito, sem markdown.
Formato:
{"rewritten_text":"..."}`

const briefPrompt = `Você resume textos de forma objetiva. Retorne JSON estrito, sem markdown.
Formato:
{"summary":"...","bullets":["...","..."]}`

// 各操作的采样温度
const (
	prioritizeTemperature = 0.2
	calmTemperature       = 0.4
	briefTemperature      = 0.3
)

func prioritizeSystem(method string) string {
	return fmt.Sprintf(prioritizePrompt, method)
}
