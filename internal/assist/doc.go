// Package assist 基于大模型的文本助手：任务优先级排序、语气缓和改写、要点摘要。
//
// Service 负责输入清洗与结果解码，Client 负责 OpenAI chat completions 调用。
// 模型回复不是合法 JSON 时返回空结果而不是错误。
package assist
