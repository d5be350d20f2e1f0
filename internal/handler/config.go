package handler

import (
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autoclipper/config"
	"autoclipper/internal/response"
	"autoclipper/log"
	apperrors "autoclipper/pkg/errors"
)

const maskedSecret = "********"

// GetConfig returns the current configuration with API keys masked.
func (h *Handler) GetConfig(c *gin.Context) {
	cfg := config.Conf
	cfg.App.ParsedProxy = nil
	if cfg.Llm.ApiKey != "" {
		cfg.Llm.ApiKey = maskedSecret
	}
	if cfg.Transcribe.ApiKey != "" {
		cfg.Transcribe.ApiKey = maskedSecret
	}
	response.Success(c, cfg)
}

// UpdateConfig replaces the configuration and persists it. Masked secrets
// in the payload keep their current values. New pipeline runs pick up the
// updated values; in-flight runs keep their snapshot.
func (h *Handler) UpdateConfig(c *gin.Context) {
	incoming := config.Conf
	if err := c.ShouldBindJSON(&incoming); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid parameters", err))
		return
	}

	if incoming.Llm.ApiKey == maskedSecret {
		incoming.Llm.ApiKey = config.Conf.Llm.ApiKey
	}
	if incoming.Transcribe.ApiKey == maskedSecret {
		incoming.Transcribe.ApiKey = config.Conf.Transcribe.ApiKey
	}

	if incoming.App.Proxy != "" {
		parsed, err := url.Parse(incoming.App.Proxy)
		if err != nil {
			response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid proxy address", err))
			return
		}
		incoming.App.ParsedProxy = parsed
	} else {
		incoming.App.ParsedProxy = nil
	}

	previous := config.Conf
	config.Conf = incoming
	if err := config.CheckConfig(); err != nil {
		config.Conf = previous
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, "Invalid configuration", err))
		return
	}
	if err := config.SaveConfig(); err != nil {
		config.Conf = previous
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeUnknown, "Failed to save configuration", err))
		return
	}

	log.GetLogger().Info("configuration updated", zap.String("clientIp", c.ClientIP()))
	response.Success(c, gin.H{"updated": true})
}
