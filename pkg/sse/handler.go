package sse

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errHubBusy = errors.New("sse hub is busy or stopped")

// KeepAliveInterval 保活注释的发送间隔，部分代理会断开长时间无数据的连接
var KeepAliveInterval = 25 * time.Second

// ServeSSE 处理 SSE（Server-Sent Events）连接
// @Summary 订阅生成事件流（SSE）
// @Description 通过查询参数 user_id 指定订阅的用户，例如 /events?user_id=u1。每次生成结束后推送一条事件。
// @Tags SSE
// @Produce text/event-stream
// @Param user_id query string true "User ID"
// @Success 200 {string} string "event stream"
// @Failure 400 {string} string "missing user_id"
// @Router /events [get]
func ServeSSE(c *gin.Context) {
	topic := c.Query("user_id")
	if topic == "" {
		topic = c.Query("userid")
	}
	if topic == "" {
		c.String(http.StatusBadRequest, "missing user_id")
		return
	}

	h := GetHub()
	if h == nil {
		c.String(http.StatusInternalServerError, "sse hub not initialized")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}

	msgCh := make(chan []byte, 16)
	if !h.Subscribe(msgCh, topic) {
		c.String(http.StatusServiceUnavailable, "sse hub stopped")
		return
	}
	defer h.Unsubscribe(msgCh, topic)

	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	fmt.Fprintf(c.Writer, ": connected\n\n")
	flusher.Flush()

	notify := c.Request.Context().Done()
	for {
		select {
		case <-notify:
			return
		case <-h.done:
			// 服务关闭
			return
		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": ping\n\n")
			flusher.Flush()
		case msg := <-msgCh:
			fmt.Fprintf(c.Writer, "event: generation\ndata: %s\n\n", msg)
			flusher.Flush()
			zap.L().Debug("sse event sent", zap.String("user_id", topic), zap.Int("bytes", len(msg)))
		}
	}
}
