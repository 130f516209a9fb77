package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/callsight-team/callsight/errors"
	"github.com/callsight-team/callsight/internal/adapter/repository"
	"github.com/callsight-team/callsight/internal/domain/entities"
	"github.com/callsight-team/callsight/internal/domain/repositories"
	"github.com/callsight-team/callsight/internal/usecase/pipeline"
	pkgai "github.com/callsight-team/callsight/pkg/ai"
	"github.com/callsight-team/callsight/pkg/config"
)

// Service defines the call analysis orchestration surface
type Service interface {
	SubmitCall(ctx context.Context, in SubmitCallInput) (*entities.AnalysisJob, error)
	GetCallRecord(ctx context.Context, callID string) (*entities.CallRecord, error)
	ListCallRecords(ctx context.Context, page, pageSize int) ([]entities.CallRecord, error)
	HandleTranscriptionWebhook(ctx context.Context, payload []byte, signature string) error
	SubmitToTranscription(ctx context.Context, jobID uuid.UUID, recordingURL string) error
	StartWorkerPool(ctx context.Context, workerCount int) error
	StopWorkerPool() error
}

// SubmitCallInput carries one call submission
type SubmitCallInput struct {
	CallID       string
	RecordingURL string
	Language     string
	RoleHints    map[string]string
}

// RecordCache is the read-through cache for analyzed call records
type RecordCache interface {
	GetCallRecord(ctx context.Context, callID string) (*entities.CallRecord, error)
	SetCallRecord(ctx context.Context, record *entities.CallRecord) error
	DeleteCallRecord(ctx context.Context, callID string) error
}

// RecordingStore resolves stored recording objects to fetchable URLs
type RecordingStore interface {
	PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

type analysisService struct {
	jobRepo      *repository.AnalysisJobRepository
	callRepo     repositories.CallRepository
	cache        RecordCache
	store        RecordingStore
	asmSDKClient *aai.Client
	diarizer     *pkgai.DiarizerClient
	runner       *pipeline.Runner
	cfg          *config.Config
	logger       *zap.Logger

	uploadSemaphore     chan struct{} // Worker pool: limit concurrent uploads
	workerStopChan      chan struct{} // Signal workers to stop
	workerWg            sync.WaitGroup
	isWorkerPoolRunning bool
	workerMutex         sync.Mutex
}

// NewAnalysisService constructs the call analysis service
func NewAnalysisService(
	jobRepo *repository.AnalysisJobRepository,
	callRepo repositories.CallRepository,
	cache RecordCache,
	store RecordingStore,
	diarizer *pkgai.DiarizerClient,
	runner *pipeline.Runner,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	asmSDKClient := aai.NewClient(cfg.Assembly.APIKey)

	uploads := cfg.Analysis.ConcurrentUploads
	if uploads <= 0 {
		uploads = 2
	}

	return &analysisService{
		jobRepo:             jobRepo,
		callRepo:            callRepo,
		cache:               cache,
		store:               store,
		asmSDKClient:        asmSDKClient,
		diarizer:            diarizer,
		runner:              runner,
		cfg:                 cfg,
		logger:              logger,
		uploadSemaphore:     make(chan struct{}, uploads),
		workerStopChan:      make(chan struct{}),
		isWorkerPoolRunning: false,
	}
}

// SubmitCall registers a call recording for asynchronous analysis. The
// pending job worker picks it up and submits it for transcription.
func (s *analysisService) SubmitCall(ctx context.Context, in SubmitCallInput) (*entities.AnalysisJob, error) {
	if in.CallID == "" {
		return nil, apperrors.ErrInvalidCallID(in.CallID)
	}
	if in.RecordingURL == "" {
		return nil, apperrors.ErrMissingRecordingURL()
	}

	roleHints, err := parseRoleHints(in.RoleHints)
	if err != nil {
		return nil, err
	}

	existing, err := s.jobRepo.GetJobByCallID(ctx, in.CallID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("get job by call id", err)
	}
	if existing != nil && !isTerminal(existing.Status) {
		return nil, apperrors.ErrCallAlreadyExists(in.CallID)
	}

	job := entities.NewAnalysisJob(in.CallID, strings.TrimSpace(in.RecordingURL))
	job.MaxRetries = s.cfg.Analysis.MaxRetries
	job.Metadata.Language = in.Language
	job.Metadata.RoleHints = roleHints

	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, apperrors.ErrDBQueryFailed("create analysis job", err)
	}

	if s.logger != nil {
		s.logger.Info("call submitted for analysis",
			zap.String("call_id", job.CallID),
			zap.String("job_id", job.ID.String()),
		)
	}

	return job, nil
}

// GetCallRecord returns the analyzed record for a call, going through the
// cache first. A call still in flight yields RECORD_NOT_READY with the
// current job status.
func (s *analysisService) GetCallRecord(ctx context.Context, callID string) (*entities.CallRecord, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCallRecord(ctx, callID); err == nil && cached != nil {
			return cached, nil
		}
	}

	record, err := s.callRepo.GetCallRecordByCallID(ctx, callID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("get call record", err)
	}
	if record != nil {
		if s.cache != nil {
			if err := s.cache.SetCallRecord(ctx, record); err != nil && s.logger != nil {
				s.logger.Warn("failed to cache call record",
					zap.String("call_id", callID),
					zap.Error(err),
				)
			}
		}
		return record, nil
	}

	job, err := s.jobRepo.GetJobByCallID(ctx, callID)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("get job by call id", err)
	}
	if job != nil {
		return nil, apperrors.ErrRecordNotReady(callID, string(job.Status))
	}
	return nil, apperrors.ErrCallNotFound(callID)
}

// ListCallRecords returns analyzed records newest first
func (s *analysisService) ListCallRecords(ctx context.Context, page, pageSize int) ([]entities.CallRecord, error) {
	if page <= 0 {
		page = 1
	}
	records, err := s.callRepo.ListCallRecords(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperrors.ErrDBQueryFailed("list call records", err)
	}
	return records, nil
}

// SubmitToTranscription submits a recording to AssemblyAI for transcription.
// Uses the official SDK with a semaphore to limit concurrent uploads.
// Expects the job to already exist in the database.
func (s *analysisService) SubmitToTranscription(ctx context.Context, jobID uuid.UUID, recordingURL string) error {
	if recordingURL == "" {
		return apperrors.ErrMissingRecordingURL()
	}

	job, err := s.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get analysis job: %w", err)
	}
	if job == nil {
		return apperrors.ErrJobNotFound(jobID.String())
	}

	if s.logger != nil {
		s.logger.Info("processing analysis job",
			zap.String("job_id", job.ID.String()),
			zap.String("call_id", job.CallID),
			zap.Int("retry_count", job.RetryCount),
		)
	}

	// Acquire an upload slot; blocks while the pool is saturated
	s.uploadSemaphore <- struct{}{}
	defer func() { <-s.uploadSemaphore }()

	var transcriptID string
	submitFn := func() error {
		fetchURL, err := s.resolveRecordingURL(ctx, strings.TrimSpace(recordingURL))
		if err != nil {
			return err
		}

		resp, err := http.Get(fetchURL)
		if err != nil {
			return fmt.Errorf("failed to download recording: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return fmt.Errorf("recording storage returned status %d", resp.StatusCode)
		}

		uploadURL, err := s.asmSDKClient.Upload(ctx, resp.Body)
		if err != nil {
			return fmt.Errorf("failed to upload to AssemblyAI: %w", err)
		}

		webhookURL := s.cfg.Assembly.WebhookBaseURL
		params := &aai.TranscriptOptionalParams{}
		if lang := s.transcriptionLanguage(job); lang != "" {
			params.LanguageCode = aai.TranscriptLanguageCode(lang)
		}
		if webhookURL != "" {
			params.WebhookURL = &webhookURL
		}

		transcript, err := s.asmSDKClient.Transcripts.TranscribeFromURL(ctx, uploadURL, params)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("AssemblyAI transcription request failed",
					zap.String("call_id", job.CallID),
					zap.Error(err),
				)
			}
			return err
		}

		if transcript.ID != nil {
			transcriptID = *transcript.ID
		}

		// Record external_job_id before returning: the webhook can arrive
		// within seconds and must find the job by transcript ID.
		if err := s.jobRepo.MarkJobAsSubmitted(ctx, job.ID, transcriptID); err != nil {
			return fmt.Errorf("failed to record transcript id: %w", err)
		}

		if s.logger != nil {
			s.logger.Info("transcription job submitted",
				zap.String("call_id", job.CallID),
				zap.String("transcript_id", transcriptID),
				zap.String("status", string(transcript.Status)),
			)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxElapsedTime = 30 * time.Second
	bo.MaxInterval = 10 * time.Second

	if err := backoff.Retry(submitFn, backoff.WithContext(bo, ctx)); err != nil {
		s.failOrRetry(ctx, job, fmt.Sprintf("failed to submit for transcription: %v", err))
		return err
	}

	return nil
}

// resolveRecordingURL turns a bare storage object key into a presigned URL.
// Absolute URLs pass through unchanged.
func (s *analysisService) resolveRecordingURL(ctx context.Context, recordingURL string) (string, error) {
	if strings.HasPrefix(recordingURL, "http://") || strings.HasPrefix(recordingURL, "https://") {
		return recordingURL, nil
	}
	if s.store == nil {
		return "", fmt.Errorf("recording %q is an object key but no storage is configured", recordingURL)
	}
	url, err := s.store.PresignedGetURL(ctx, recordingURL, time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to presign recording URL: %w", err)
	}
	return url, nil
}

func (s *analysisService) transcriptionLanguage(job *entities.AnalysisJob) string {
	if job.Metadata.Language != "" {
		return job.Metadata.Language
	}
	return s.cfg.Assembly.LanguageCode
}

// HandleTranscriptionWebhook processes AssemblyAI webhook payloads
func (s *analysisService) HandleTranscriptionWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.cfg.Assembly.WebhookSecret != "" {
		if !pkgai.VerifyHMAC(s.cfg.Assembly.WebhookSecret, payload, signature) {
			if s.logger != nil {
				s.logger.Warn("invalid transcription webhook signature")
			}
			return apperrors.ErrPermissionDenied("invalid webhook signature")
		}
	}

	var body map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		return apperrors.ErrInvalidPayload()
	}

	transcriptID, ok := body["transcript_id"].(string)
	if !ok || transcriptID == "" {
		transcriptID, ok = body["id"].(string)
		if !ok || transcriptID == "" {
			return apperrors.ErrInvalidPayload().WithDetail("reason", "transcript ID missing")
		}
	}

	status, _ := body["status"].(string)

	if s.logger != nil {
		s.logger.Info("received transcription webhook",
			zap.String("transcript_id", transcriptID),
			zap.String("status", status),
		)
	}

	job, err := s.jobRepo.GetJobByExternalID(ctx, transcriptID)
	if err != nil {
		return apperrors.ErrDBQueryFailed("get job by external id", err)
	}
	if job == nil {
		return apperrors.ErrJobNotFound(transcriptID)
	}

	switch status {
	case "processing", "queued":
		// Still in flight, refresh the timestamp so the timeout worker
		// leaves it alone
		if err := s.jobRepo.TouchJob(ctx, job.ID); err != nil && s.logger != nil {
			s.logger.Error("failed to touch job", zap.Error(err))
		}

	case "completed":
		if err := s.handleCompletedTranscript(ctx, job, transcriptID); err != nil {
			if s.logger != nil {
				s.logger.Error("failed to handle completed transcript",
					zap.String("call_id", job.CallID),
					zap.Error(err),
				)
			}
			return err
		}

	case "error":
		errorMsg := fmt.Sprintf("transcription error: %v", body["error"])
		s.failOrRetry(ctx, job, errorMsg)
		if s.logger != nil {
			s.logger.Error("transcription provider reported error",
				zap.String("call_id", job.CallID),
				zap.String("error", errorMsg),
			)
		}
	}

	return nil
}

// handleCompletedTranscript fetches the full transcript and stores the
// word-level timeline; the analysis workers take it from there.
func (s *analysisService) handleCompletedTranscript(ctx context.Context, job *entities.AnalysisJob, transcriptID string) error {
	transcript, err := s.asmSDKClient.Transcripts.Get(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("failed to fetch transcript: %w", err)
	}

	words := make([]entities.Word, 0, len(transcript.Words))
	for _, w := range transcript.Words {
		word := entities.Word{}
		if w.Text != nil {
			word.Text = *w.Text
		}
		if w.Start != nil {
			word.Start = float64(*w.Start) / 1000.0 // ms to seconds
		}
		if w.End != nil {
			word.End = float64(*w.End) / 1000.0
		}
		if w.Confidence != nil {
			word.Confidence = *w.Confidence
		}
		words = append(words, word)
	}

	wordsJSON, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("failed to encode transcript words: %w", err)
	}

	metadata := job.Metadata
	metadata.WordCount = len(words)
	if transcript.LanguageCode != "" && metadata.Language == "" {
		metadata.Language = string(transcript.LanguageCode)
	}
	if transcript.AudioDuration != nil {
		metadata.DurationSeconds = float64(*transcript.AudioDuration)
	}

	if err := s.jobRepo.SaveTranscriptWords(ctx, job.ID, wordsJSON, metadata); err != nil {
		return fmt.Errorf("failed to store transcript words: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("transcript stored, job ready for analysis",
			zap.String("call_id", job.CallID),
			zap.String("job_id", job.ID.String()),
			zap.Int("word_count", len(words)),
		)
	}

	return nil
}

// analyzeCall runs the full alignment/sentiment/summary pipeline for a job
// whose transcript is ready, and persists the resulting call record.
func (s *analysisService) analyzeCall(ctx context.Context, job *entities.AnalysisJob) error {
	started := time.Now()

	var words []entities.Word
	if len(job.Words) > 0 {
		if err := json.Unmarshal(job.Words, &words); err != nil {
			return fmt.Errorf("failed to decode transcript words: %w", err)
		}
	}

	// Diarization failure degrades the record instead of failing the job:
	// the pipeline attributes everything to an unassigned speaker.
	var turns []entities.DiarizationTurn
	if s.diarizer != nil {
		fetchURL, err := s.resolveRecordingURL(ctx, job.RecordingURL)
		if err == nil {
			diarized, derr := s.diarizer.Diarize(ctx, fetchURL)
			if derr != nil {
				if s.logger != nil {
					s.logger.Warn("diarization failed, proceeding without turns",
						zap.String("call_id", job.CallID),
						zap.Error(derr),
					)
				}
			} else {
				turns = make([]entities.DiarizationTurn, len(diarized))
				for i, t := range diarized {
					turns[i] = entities.DiarizationTurn{
						SpeakerID: t.Speaker,
						Start:     t.Start,
						End:       t.End,
					}
				}
			}
		} else if s.logger != nil {
			s.logger.Warn("could not resolve recording URL for diarization",
				zap.String("call_id", job.CallID),
				zap.Error(err),
			)
		}
	}

	report, err := s.runner.Run(ctx, pipeline.Input{
		CallID:    job.CallID,
		Language:  job.Metadata.Language,
		Words:     words,
		Turns:     turns,
		RoleHints: job.Metadata.RoleHints,
	})
	if err != nil {
		return err
	}

	record, err := buildCallRecord(report)
	if err != nil {
		return err
	}

	if err := s.callRepo.SaveCallRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save call record: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteCallRecord(ctx, job.CallID); err != nil && s.logger != nil {
			s.logger.Warn("failed to invalidate call record cache",
				zap.String("call_id", job.CallID),
				zap.Error(err),
			)
		}
	}

	if err := s.jobRepo.MarkJobAsCompleted(ctx, job.ID, &record.ID); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("call analysis completed",
			zap.String("call_id", job.CallID),
			zap.String("job_id", job.ID.String()),
			zap.Bool("degraded", report.Degraded),
			zap.Int("utterance_count", len(report.Utterances)),
			zap.Duration("elapsed", time.Since(started)),
		)
	}

	return nil
}

// buildCallRecord converts a pipeline report into its persisted form
func buildCallRecord(report *entities.CallReport) (*entities.CallRecord, error) {
	speakersJSON, err := json.Marshal(report.Speakers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode speaker profiles: %w", err)
	}

	record := &entities.CallRecord{
		ID:               uuid.New(),
		CallID:           report.CallID,
		Duration:         report.Duration,
		Language:         report.Language,
		OverallSentiment: string(report.OverallSentiment),
		SpeakerProfiles:  datatypes.JSON(speakersJSON),
		Degraded:         report.Degraded,
	}

	if report.Summary != nil {
		summaryJSON, err := json.Marshal(report.Summary)
		if err != nil {
			return nil, fmt.Errorf("failed to encode summary: %w", err)
		}
		record.Summary = datatypes.JSON(summaryJSON)
	}

	if len(report.DegradedReasons) > 0 {
		reasonsJSON, err := json.Marshal(report.DegradedReasons)
		if err != nil {
			return nil, fmt.Errorf("failed to encode degraded reasons: %w", err)
		}
		record.DegradedReasons = datatypes.JSON(reasonsJSON)
	}

	record.Utterances = make([]entities.CallUtterance, len(report.Utterances))
	for i, au := range report.Utterances {
		record.Utterances[i] = entities.CallUtterance{
			CallRecordID:        record.ID,
			Position:            i,
			SpeakerID:           au.Utterance.SpeakerID,
			Text:                au.Utterance.Text,
			StartTime:           au.Utterance.Start,
			EndTime:             au.Utterance.End,
			Confidence:          au.Utterance.MeanConfidence,
			SentimentLabel:      string(au.Sentiment.Label),
			SentimentConfidence: au.Sentiment.Confidence,
			Language:            string(au.Sentiment.Language),
		}
	}

	return record, nil
}

// failOrRetry queues the job for another attempt while it has retry budget
// left, and parks it as failed otherwise.
func (s *analysisService) failOrRetry(ctx context.Context, job *entities.AnalysisJob, errMsg string) {
	if job.RetryCount < job.MaxRetries {
		if err := s.jobRepo.IncrementRetryCount(ctx, job.ID, errMsg); err != nil && s.logger != nil {
			s.logger.Error("failed to queue job retry", zap.Error(err))
		}
		return
	}
	if err := s.jobRepo.MarkJobAsFailed(ctx, job.ID, errMsg); err != nil && s.logger != nil {
		s.logger.Error("failed to mark job failed", zap.Error(err))
	}
}

func parseRoleHints(hints map[string]string) (map[string]entities.SpeakerRole, error) {
	if len(hints) == 0 {
		return nil, nil
	}
	out := make(map[string]entities.SpeakerRole, len(hints))
	for speaker, role := range hints {
		switch entities.SpeakerRole(role) {
		case entities.RoleAgent, entities.RoleCustomer:
			out[speaker] = entities.SpeakerRole(role)
		default:
			return nil, apperrors.ErrInvalidArgument(fmt.Sprintf("invalid role hint %q for speaker %q", role, speaker))
		}
	}
	return out, nil
}

func isTerminal(status entities.AnalysisJobStatus) bool {
	switch status {
	case entities.AnalysisJobStatusCompleted, entities.AnalysisJobStatusFailed, entities.AnalysisJobStatusCancelled:
		return true
	}
	return false
}
