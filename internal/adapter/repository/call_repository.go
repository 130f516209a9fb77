package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callsight-team/callsight/internal/domain/entities"
	"github.com/callsight-team/callsight/internal/domain/repositories"
)

// CallRepository persists analyzed call records and their utterances
type CallRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a new call record repository
func NewCallRepository(db *gorm.DB) repositories.CallRepository {
	return &CallRepository{db: db}
}

// SaveCallRecord stores the record and its utterances in one transaction.
// A record for the same call ID replaces the previous one.
func (r *CallRepository) SaveCallRecord(ctx context.Context, record *entities.CallRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.CallRecord
		err := tx.Where("call_id = ?", record.CallID).First(&existing).Error
		if err == nil {
			if err := tx.Where("call_record_id = ?", existing.ID).Delete(&entities.CallUtterance{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		for i := range record.Utterances {
			record.Utterances[i].CallRecordID = record.ID
			record.Utterances[i].Position = i
		}
		return tx.Create(record).Error
	})
}

// GetCallRecordByCallID retrieves a call record with its utterances in
// timeline order
func (r *CallRepository) GetCallRecordByCallID(ctx context.Context, callID string) (*entities.CallRecord, error) {
	var record entities.CallRecord
	err := r.db.WithContext(ctx).
		Preload("Utterances", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("call_id = ?", callID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetCallUtterances retrieves the utterances of a call record in timeline order
func (r *CallRepository) GetCallUtterances(ctx context.Context, callRecordID string) ([]entities.CallUtterance, error) {
	id, err := uuid.Parse(callRecordID)
	if err != nil {
		return nil, errors.New("invalid call record ID")
	}
	var utterances []entities.CallUtterance
	if err := r.db.WithContext(ctx).
		Where("call_record_id = ?", id).
		Order("position ASC").
		Find(&utterances).Error; err != nil {
		return nil, err
	}
	return utterances, nil
}

// ListCallRecords retrieves call records newest first
func (r *CallRepository) ListCallRecords(ctx context.Context, limit, offset int) ([]entities.CallRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []entities.CallRecord
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
