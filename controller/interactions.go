package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promogen/models"
)

// InteractionsHandler 按写入顺序返回用户的全部生成记录
// @Summary 生成历史
// @Tags History
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {array} models.InteractionResponse
// @Failure 500 {object} map[string]string "查询失败"
// @Router /interactions/{user_id} [get]
func (h *Handler) InteractionsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	recs, err := h.history.ListGenerations(c.Request.Context(), userID)
	if err != nil {
		zap.L().Error("history.ListGenerations failed", zap.String("user_id", userID), zap.Error(err))
		ResponsePlainError(c, CodeServerBusy)
		return
	}
	out := make([]models.InteractionResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.InteractionResponse{
			ID:       r.ID,
			UserID:   r.UserID,
			ImageURL: r.ImageURL,
			Metadata: r.Metadata,
		})
	}
	c.JSON(CodeSuccess.HTTPStatus(), out)
}

// MarkedImagesHandler 查询标注记录，不带 user_id 时返回全部
// @Summary 标注历史
// @Tags Feedback
// @Produce json
// @Param user_id query string false "用户ID"
// @Success 200 {object} ResponseData
// @Router /marked_images [get]
func (h *Handler) MarkedImagesHandler(c *gin.Context) {
	userID := c.Query("user_id")
	recs, err := h.history.ListFeedback(c.Request.Context(), userID)
	if err != nil {
		zap.L().Error("history.ListFeedback failed", zap.String("user_id", userID), zap.Error(err))
		ResponseError(c, CodeServerBusy)
		return
	}
	ResponseSuccess(c, recs)
}
