package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promogen/logic"
	"promogen/models"
)

// MarkHandler 对用户的一次生成标注好/坏
// @Summary 标注图片
// @Description generation_id 为空时标注该用户最近一次生成的图片
// @Tags Feedback
// @Accept json
// @Produce json
// @Param request body models.MarkRequest true "user_id, generation_id, result"
// @Success 200 {object} models.FeedbackRecord
// @Failure 400 {object} map[string]string "请求参数错误"
// @Failure 403 {object} map[string]string "generation_id 属于其他用户"
// @Failure 404 {object} map[string]string "没有可标注的图片"
// @Router /mark [post]
func (h *Handler) MarkHandler(c *gin.Context) {
	var req models.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Error("Mark with invalid param", zap.Error(err))
		ResponsePlainError(c, CodeInvalidParams, bindErrorText(err))
		return
	}

	rec, err := h.session.Mark(c.Request.Context(), req.UserID, req.GenerationID, *req.Result)
	switch {
	case err == nil:
		c.JSON(CodeSuccess.HTTPStatus(), rec)
	case errors.Is(err, logic.ErrNoRememberedImage):
		ResponsePlainError(c, CodeNotFound)
	case errors.Is(err, logic.ErrForeignGeneration):
		ResponsePlainError(c, CodeForbidden)
	case errors.Is(err, logic.ErrSessionUnavailable):
		zap.L().Error("session.Mark failed", zap.String("user_id", req.UserID), zap.Error(err))
		ResponsePlainError(c, CodeNotReady)
	default:
		zap.L().Error("session.Mark failed", zap.String("user_id", req.UserID), zap.Error(err))
		ResponsePlainError(c, CodeStoreFailure)
	}
}
