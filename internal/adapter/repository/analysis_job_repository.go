package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callsight-team/callsight/internal/domain/entities"
)

// AnalysisJobRepository handles analysis job data operations
type AnalysisJobRepository struct {
	db *gorm.DB
}

// NewAnalysisJobRepository creates a new analysis job repository
func NewAnalysisJobRepository(db *gorm.DB) *AnalysisJobRepository {
	return &AnalysisJobRepository{db: db}
}

// GetDB exposes the underlying handle for atomic claim updates
func (r *AnalysisJobRepository) GetDB() *gorm.DB {
	return r.db
}

// CreateJob creates a new analysis job
func (r *AnalysisJobRepository) CreateJob(ctx context.Context, job *entities.AnalysisJob) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetJobByID retrieves an analysis job by ID
func (r *AnalysisJobRepository) GetJobByID(ctx context.Context, jobID uuid.UUID) (*entities.AnalysisJob, error) {
	var job entities.AnalysisJob
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetJobByExternalID retrieves an analysis job by the transcription
// provider's transcript ID
func (r *AnalysisJobRepository) GetJobByExternalID(ctx context.Context, externalID string) (*entities.AnalysisJob, error) {
	var job entities.AnalysisJob
	if err := r.db.WithContext(ctx).Where("external_job_id = ?", externalID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetJobByCallID retrieves the latest analysis job for a call
func (r *AnalysisJobRepository) GetJobByCallID(ctx context.Context, callID string) (*entities.AnalysisJob, error) {
	var job entities.AnalysisJob
	if err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("created_at DESC").
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetJobsByStatus retrieves analysis jobs with a specific status
func (r *AnalysisJobRepository) GetJobsByStatus(ctx context.Context, status entities.AnalysisJobStatus, limit int) ([]entities.AnalysisJob, error) {
	var jobs []entities.AnalysisJob
	if limit == 0 {
		limit = 100
	}
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJobsForSubmission retrieves pending/retrying jobs ready for the
// transcription provider
func (r *AnalysisJobRepository) GetJobsForSubmission(ctx context.Context, limit int) ([]entities.AnalysisJob, error) {
	var jobs []entities.AnalysisJob
	if limit == 0 {
		limit = 10
	}
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []entities.AnalysisJobStatus{entities.AnalysisJobStatusPending, entities.AnalysisJobStatusRetrying}).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetStuckJobs retrieves jobs sitting in the given status longer than cutoff
func (r *AnalysisJobRepository) GetStuckJobs(ctx context.Context, status entities.AnalysisJobStatus, cutoff time.Time) ([]entities.AnalysisJob, error) {
	var jobs []entities.AnalysisJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimJob atomically moves a job from one status to another. Returns false
// when another worker already claimed it.
func (r *AnalysisJobRepository) ClaimJob(ctx context.Context, jobID uuid.UUID, from, to entities.AnalysisJobStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ? AND status = ?", jobID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateJobStatus updates the status of an analysis job
func (r *AnalysisJobRepository) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status entities.AnalysisJobStatus) error {
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// TouchJob refreshes updated_at to reset stuck-job timeouts
func (r *AnalysisJobRepository) TouchJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Update("updated_at", time.Now()).Error
}

// MarkJobAsSubmitted marks a job as submitted with the provider's transcript ID
func (r *AnalysisJobRepository) MarkJobAsSubmitted(ctx context.Context, jobID uuid.UUID, externalID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":          entities.AnalysisJobStatusSubmitted,
			"external_job_id": externalID,
			"started_at":      now,
			"updated_at":      now,
		}).Error
}

// SaveTranscriptWords stores the word-level transcript and moves the job to
// transcript_ready for the analysis workers
func (r *AnalysisJobRepository) SaveTranscriptWords(ctx context.Context, jobID uuid.UUID, words []byte, metadata entities.AnalysisJobMetadata) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     entities.AnalysisJobStatusTranscriptReady,
			"words":      words,
			"metadata":   metadata,
			"updated_at": now,
		}).Error
}

// MarkJobAsCompleted marks a job as completed with the emitted call record
func (r *AnalysisJobRepository) MarkJobAsCompleted(ctx context.Context, jobID uuid.UUID, callRecordID *uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":         entities.AnalysisJobStatusCompleted,
			"call_record_id": callRecordID,
			"completed_at":   now,
			"updated_at":     now,
		}).Error
}

// MarkJobAsFailed marks a job as failed with error message
func (r *AnalysisJobRepository) MarkJobAsFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     entities.AnalysisJobStatusFailed,
			"last_error": errMsg,
			"updated_at": now,
		}).Error
}

// IncrementRetryCount increments the retry count and queues the job again
func (r *AnalysisJobRepository) IncrementRetryCount(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.AnalysisJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + 1"),
			"status":      entities.AnalysisJobStatusRetrying,
			"last_error":  errMsg,
			"updated_at":  now,
		}).Error
}

// GetRetryableFailedJobs retrieves failed jobs below their retry ceiling
func (r *AnalysisJobRepository) GetRetryableFailedJobs(ctx context.Context, limit int) ([]entities.AnalysisJob, error) {
	var jobs []entities.AnalysisJob
	if limit == 0 {
		limit = 10
	}
	if err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", entities.AnalysisJobStatusFailed).
		Order("updated_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetDeadJobs retrieves permanently failed jobs (exceeded max retries)
func (r *AnalysisJobRepository) GetDeadJobs(ctx context.Context) ([]entities.AnalysisJob, error) {
	var jobs []entities.AnalysisJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count >= max_retries", entities.AnalysisJobStatusFailed).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
