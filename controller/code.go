package controller

import "net/http"

type ResCode int64

const (
	CodeSuccess ResCode = 1000 + iota
	CodeInvalidParams
	CodeServerBusy
	CodeNotFound
	CodeForbidden
	CodeModelFailure
	CodeStoreFailure
	CodeQueueFull
	CodeNotReady
	CodeTooManyRequests
)

var codeMsgMap = map[ResCode]string{
	CodeSuccess:         "success",
	CodeInvalidParams:   "请求参数错误",
	CodeServerBusy:      "服务繁忙",
	CodeNotFound:        "没有可标注的图片",
	CodeForbidden:       "无权操作该生成记录",
	CodeModelFailure:    "图片生成失败",
	CodeStoreFailure:    "保存失败",
	CodeQueueFull:       "生成队列已满，请稍后重试",
	CodeNotReady:        "服务未就绪",
	CodeTooManyRequests: "请求过于频繁",
}

var codeStatusMap = map[ResCode]int{
	CodeSuccess:         http.StatusOK,
	CodeInvalidParams:   http.StatusBadRequest,
	CodeServerBusy:      http.StatusInternalServerError,
	CodeNotFound:        http.StatusNotFound,
	CodeForbidden:       http.StatusForbidden,
	CodeModelFailure:    http.StatusBadGateway,
	CodeStoreFailure:    http.StatusInternalServerError,
	CodeQueueFull:       http.StatusServiceUnavailable,
	CodeNotReady:        http.StatusServiceUnavailable,
	CodeTooManyRequests: http.StatusTooManyRequests,
}

func (c ResCode) Msg() string {
	msg, ok := codeMsgMap[c]
	if !ok {
		msg = codeMsgMap[CodeServerBusy]
	}
	return msg
}

// HTTPStatus 错误码对应的 HTTP 状态
func (c ResCode) HTTPStatus() int {
	status, ok := codeStatusMap[c]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status
}
