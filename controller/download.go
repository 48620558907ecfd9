package controller

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promogen/util"
)

// DownloadImagesHandler 打包下载用户生成成功的全部图片
// @Summary 批量下载
// @Tags History
// @Produce application/zip
// @Param user_id path string true "用户ID"
// @Success 200 {file} file "{user_id}_images.zip"
// @Failure 500 {object} map[string]string "打包失败"
// @Router /download/images/{user_id} [get]
func (h *Handler) DownloadImagesHandler(c *gin.Context) {
	userID := c.Param("user_id")
	refs, err := h.history.ListImageReferences(c.Request.Context(), userID)
	if err != nil {
		zap.L().Error("history.ListImageReferences failed", zap.String("user_id", userID), zap.Error(err))
		ResponsePlainError(c, CodeServerBusy)
		return
	}

	var buf bytes.Buffer
	n, err := util.WriteImagesZip(&buf, refs)
	if err != nil {
		zap.L().Error("build image archive failed", zap.String("user_id", userID), zap.Error(err))
		ResponsePlainError(c, CodeServerBusy)
		return
	}
	zap.L().Info("image archive built", zap.String("user_id", userID), zap.Int("images", n))

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": userID + "_images.zip",
	}))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
