package controller

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promogen/logic"
	"promogen/models"
)

// GenerateImageHandler 生成一张宣传图
// @Summary 生成图片
// @Description 根据用户属性与产品类别合成提示词并调用图像模型，返回图片路径与 base64 编码的图片
// @Tags Generation
// @Accept json
// @Produce json
// @Param request body models.GenerateImageRequest true "user_id 与 metadata"
// @Success 200 {object} models.GenerateImageResponse "生成成功"
// @Failure 400 {object} map[string]string "请求参数错误"
// @Failure 500 {object} map[string]string "保存失败"
// @Failure 502 {object} map[string]string "模型调用失败，记录已保存"
// @Failure 503 {object} map[string]string "生成队列已满"
// @Router /generate_image [post]
// @Router /api/generate [post]
func (h *Handler) GenerateImageHandler(c *gin.Context) {
	// 1.获取请求参数
	var req models.GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zap.L().Error("GenerateImage with invalid param", zap.Error(err))
		ResponsePlainError(c, CodeInvalidParams, bindErrorText(err))
		return
	}
	// 2.解析 metadata
	genReq, err := logic.ParseMetadata(req.UserID, req.Metadata)
	if err != nil {
		zap.L().Error("GenerateImage with invalid metadata", zap.String("user_id", req.UserID), zap.Error(err))
		ResponsePlainError(c, CodeInvalidParams, err.Error())
		return
	}
	// 3.生成
	res := h.gen.Generate(c.Request.Context(), genReq)
	switch res.Outcome {
	case logic.OutcomeOK:
		c.JSON(CodeSuccess.HTTPStatus(), models.GenerateImageResponse{
			GenerationID: res.Record.GenerationID,
			ImagePath:    res.Record.ImageURL,
			Image:        base64.StdEncoding.EncodeToString(res.Image),
		})
	case logic.OutcomeRejected:
		ResponsePlainError(c, CodeQueueFull)
	case logic.OutcomeModelFailure:
		ResponsePlainError(c, CodeModelFailure)
	default:
		ResponsePlainError(c, CodeStoreFailure)
	}
}
