package controller

import (
	"github.com/gin-gonic/gin"
)

/*
{
	"code": 1001, // 程序中的错误码
	"msg": xx,     // 提示信息
	"data": {},    // 数据
}
*/

type ResponseData struct {
	Code ResCode     `json:"code"`
	Msg  interface{} `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func ResponseError(c *gin.Context, code ResCode) {
	c.JSON(code.HTTPStatus(), &ResponseData{
		Code: code,
		Msg:  code.Msg(),
	})
}

func ResponseErrorWithMsg(c *gin.Context, code ResCode, msg interface{}) {
	c.JSON(code.HTTPStatus(), &ResponseData{
		Code: code,
		Msg:  msg,
	})
}

func ResponseSuccess(c *gin.Context, data interface{}) {
	c.JSON(CodeSuccess.HTTPStatus(), &ResponseData{
		Code: CodeSuccess,
		Msg:  CodeSuccess.Msg(),
		Data: data,
	})
}

// ResponsePlainError 生成与历史接口沿用的 {"error": "..."} 格式
func ResponsePlainError(c *gin.Context, code ResCode, msg ...string) {
	text := code.Msg()
	if len(msg) > 0 && msg[0] != "" {
		text = msg[0]
	}
	c.AbortWithStatusJSON(code.HTTPStatus(), gin.H{"error": text})
}
