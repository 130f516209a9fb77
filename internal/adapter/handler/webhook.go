package handler

import (
	"io"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/callsight-team/callsight/errors"
	"github.com/callsight-team/callsight/internal/usecase/analysis"
)

// Webhook handles incoming webhooks from the transcription provider
type Webhook struct {
	svc    analysis.Service
	logger *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(svc analysis.Service, logger *zap.Logger) *Webhook {
	return &Webhook{svc: svc, logger: logger}
}

// HandleAssemblyAI receives transcription completion webhooks from AssemblyAI
func (h *Webhook) HandleAssemblyAI(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	// AssemblyAI signs requests in a header; try common header names
	signature := c.Request().Header.Get("x-assemblyai-signature")
	if signature == "" {
		signature = c.Request().Header.Get("Authorization")
	}

	if err := h.svc.HandleTranscriptionWebhook(c.Request().Context(), body, signature); err != nil {
		if h.logger != nil {
			h.logger.Error("transcription webhook handler error", zap.Error(err))
		}
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]interface{}{"status": "ok"})
}
