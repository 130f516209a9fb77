package repositories

import (
	"context"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// CallRepository defines persistence operations for analyzed call records
type CallRepository interface {
	SaveCallRecord(ctx context.Context, record *entities.CallRecord) error
	GetCallRecordByCallID(ctx context.Context, callID string) (*entities.CallRecord, error)
	GetCallUtterances(ctx context.Context, callRecordID string) ([]entities.CallUtterance, error)
	ListCallRecords(ctx context.Context, limit, offset int) ([]entities.CallRecord, error)
}
