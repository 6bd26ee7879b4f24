// Package server 提供 HTTP 入口：chi 路由、CORS、请求 ID、请求体上限，
// 以及挡在 /prioritize、/calmai、/briefai 之前的每日配额中间件。
//
// 成功响应为 {"ok":true,"data":...}，失败为 {"ok":false,"error":...}；
// 配额相关的失败沿用 xquota 的 {"ok":false,"code":...,"message":...}。
package server
