package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/callsight-team/callsight/errors"
	calldto "github.com/callsight-team/callsight/internal/adapter/dto/call"
	"github.com/callsight-team/callsight/internal/adapter/dto/common"
	"github.com/callsight-team/callsight/internal/usecase/analysis"
)

// Call handles the call analysis HTTP surface
type Call struct {
	svc    analysis.Service
	logger *zap.Logger
}

// NewCallHandler creates a new call handler
func NewCallHandler(svc analysis.Service, logger *zap.Logger) *Call {
	return &Call{svc: svc, logger: logger}
}

// Submit accepts a call recording for asynchronous analysis
func (h *Call) Submit(c echo.Context) error {
	var req calldto.SubmitCallRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	job, err := h.svc.SubmitCall(c.Request().Context(), analysis.SubmitCallInput{
		CallID:       req.CallID,
		RecordingURL: req.RecordingURL,
		Language:     req.Language,
		RoleHints:    req.RoleHints,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleAccepted(h.logger, c, calldto.SubmitCallResponse{
		CallID: job.CallID,
		JobID:  job.ID.String(),
		Status: string(job.Status),
	})
}

// Get returns the analyzed call record for a call ID
func (h *Call) Get(c echo.Context) error {
	callID := c.Param("id")
	if callID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidCallID(callID))
	}

	record, err := h.svc.GetCallRecord(c.Request().Context(), callID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, calldto.FromCallRecord(record))
}

// GetTranscript returns the annotated utterance timeline for a call ID
func (h *Call) GetTranscript(c echo.Context) error {
	callID := c.Param("id")
	if callID == "" {
		return HandleError(h.logger, c, errors.ErrInvalidCallID(callID))
	}

	record, err := h.svc.GetCallRecord(c.Request().Context(), callID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, calldto.FromCallUtterances(record.CallID, record.Utterances))
}

// List returns analyzed call records newest first
func (h *Call) List(c echo.Context) error {
	var req calldto.ListCallsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	records, err := h.svc.ListCallRecords(c.Request().Context(), req.Page, req.PageSize)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	items := make([]calldto.CallRecordResponse, len(records))
	for i := range records {
		items[i] = calldto.FromCallRecord(&records[i])
	}

	return HandleSuccess(h.logger, c, common.ListResponse{
		Data: items,
		Pagination: &common.PaginationResponse{
			Page:     req.Page,
			PageSize: req.PageSize,
		},
	})
}
