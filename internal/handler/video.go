package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autoclipper/internal/dto"
	"autoclipper/internal/response"
	"autoclipper/log"
	apperrors "autoclipper/pkg/errors"
)

// SubmitVideo registers a source video and queues its production run.
func (h *Handler) SubmitVideo(c *gin.Context) {
	var req dto.SubmitVideoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("SubmitVideo ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid parameters", err))
		return
	}
	log.GetLogger().Info("SubmitVideo received request", zap.String("url", req.Url))

	data, err := h.Service.SubmitVideo(req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	if err := h.Dispatch(data.VideoId); err != nil {
		log.GetLogger().Error("failed to dispatch pipeline run",
			zap.String("videoId", data.VideoId), zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUnknown, "Failed to queue pipeline run", err))
		return
	}
	response.Success(c, data)
}

func (h *Handler) GetVideo(c *gin.Context) {
	videoId := c.Param("videoId")
	data, err := h.Service.GetVideo(videoId)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

func (h *Handler) ListVideos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	data, err := h.Service.ListVideos(limit)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

// ListClips returns the latest generation's candidates for a video,
// including rejected ones so the caller can see why clips were dropped.
func (h *Handler) ListClips(c *gin.Context) {
	videoId := c.Param("videoId")
	data, err := h.Service.ListClips(videoId)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

// RetryVideo resets a failed video and queues a fresh run.
func (h *Handler) RetryVideo(c *gin.Context) {
	videoId := c.Param("videoId")
	if err := h.Service.RetryVideo(videoId); err != nil {
		response.ErrorResponse(c, err)
		return
	}
	if err := h.Dispatch(videoId); err != nil {
		log.GetLogger().Error("failed to dispatch retry run",
			zap.String("videoId", videoId), zap.Error(err))
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUnknown, "Failed to queue pipeline run", err))
		return
	}
	response.Success(c, gin.H{"video_id": videoId})
}
