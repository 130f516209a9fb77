package analysis

import (
	"context"
	"fmt"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/callsight-team/callsight/internal/domain/entities"
	"github.com/callsight-team/callsight/pkg/jobcontext"
)

// StartWorkerPool starts the background workers that drive jobs through
// submission, transcription and analysis.
func (s *analysisService) StartWorkerPool(ctx context.Context, workerCount int) error {
	s.workerMutex.Lock()
	defer s.workerMutex.Unlock()

	if s.isWorkerPoolRunning {
		return fmt.Errorf("worker pool already running")
	}

	s.isWorkerPoolRunning = true
	s.workerStopChan = make(chan struct{})

	if s.logger != nil {
		s.logger.Info("starting analysis worker pool",
			zap.Int("worker_count", workerCount),
		)
	}

	for i := 0; i < workerCount; i++ {
		s.workerWg.Add(1)
		go s.analysisWorker(ctx, i)
	}

	// Submits pending/retrying jobs for transcription
	s.workerWg.Add(1)
	go s.pendingJobWorker(ctx)

	// Resets jobs stuck mid-analysis after a crash
	s.workerWg.Add(1)
	go s.cleanupZombieJobs(ctx)

	// Polls the transcription provider for missed webhooks
	s.workerWg.Add(1)
	go s.webhookTimeoutWorker(ctx)

	// Requeues retryable failures, logs dead jobs
	s.workerWg.Add(1)
	go s.failedJobWorker(ctx)

	return nil
}

// StopWorkerPool gracefully stops all worker goroutines
func (s *analysisService) StopWorkerPool() error {
	s.workerMutex.Lock()
	defer s.workerMutex.Unlock()

	if !s.isWorkerPoolRunning {
		return fmt.Errorf("worker pool not running")
	}

	if s.logger != nil {
		s.logger.Info("stopping analysis worker pool")
	}

	close(s.workerStopChan)
	s.workerWg.Wait()
	s.isWorkerPoolRunning = false

	if s.logger != nil {
		s.logger.Info("analysis worker pool stopped")
	}

	return nil
}

// analysisWorker polls for jobs with a ready transcript and runs the
// analysis pipeline over them.
func (s *analysisService) analysisWorker(parentCtx context.Context, workerID int) {
	defer s.workerWg.Done()

	ticker := time.NewTicker(s.cfg.Analysis.PollInterval)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Info("analysis worker started", zap.Int("worker_id", workerID))
	}

	for {
		select {
		case <-s.workerStopChan:
			if s.logger != nil {
				s.logger.Info("analysis worker stopping", zap.Int("worker_id", workerID))
			}
			return

		case <-ticker.C:
			jobs, err := s.jobRepo.GetJobsByStatus(parentCtx, entities.AnalysisJobStatusTranscriptReady, 1)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("failed to poll analysis jobs",
						zap.Int("worker_id", workerID),
						zap.Error(err),
					)
				}
				continue
			}
			if len(jobs) == 0 {
				continue
			}

			job := jobs[0]

			// Atomic claim: only one worker moves the job to analyzing
			claimed, err := s.jobRepo.ClaimJob(parentCtx, job.ID, entities.AnalysisJobStatusTranscriptReady, entities.AnalysisJobStatusAnalyzing)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("failed to claim job",
						zap.String("job_id", job.ID.String()),
						zap.Error(err),
					)
				}
				continue
			}
			if !claimed {
				continue
			}

			if s.logger != nil {
				s.logger.Info("worker claimed job",
					zap.Int("worker_id", workerID),
					zap.String("job_id", job.ID.String()),
					zap.String("call_id", job.CallID),
				)
			}

			jobCtx, cancel := jobcontext.JobBegin(parentCtx, job.ID, job.CallID, workerID)
			err = jobcontext.JobEnd(jobCtx, func(ctx context.Context) error {
				return s.analyzeCall(ctx, &job)
			})
			cancel()

			if err != nil {
				if s.logger != nil {
					s.logger.Error("analysis job failed after retries",
						zap.String("job_id", job.ID.String()),
						zap.String("call_id", job.CallID),
						zap.Error(err),
					)
				}
				if markErr := s.jobRepo.MarkJobAsFailed(parentCtx, job.ID, err.Error()); markErr != nil && s.logger != nil {
					s.logger.Error("failed to mark job failed", zap.Error(markErr))
				}
			}
		}
	}
}

// pendingJobWorker polls for pending/retrying jobs and submits them for
// transcription.
func (s *analysisService) pendingJobWorker(parentCtx context.Context) {
	defer s.workerWg.Done()

	ticker := time.NewTicker(s.cfg.Analysis.PollInterval)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Info("pending job worker started")
	}

	for {
		select {
		case <-s.workerStopChan:
			if s.logger != nil {
				s.logger.Info("pending job worker stopping")
			}
			return

		case <-ticker.C:
			jobs, err := s.jobRepo.GetJobsForSubmission(parentCtx, 5)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("failed to poll pending jobs", zap.Error(err))
				}
				continue
			}
			if len(jobs) == 0 {
				continue
			}

			for _, job := range jobs {
				// A retried job that already has its transcript skips
				// straight back to analysis
				if len(job.Words) > 0 {
					if _, err := s.jobRepo.ClaimJob(parentCtx, job.ID, job.Status, entities.AnalysisJobStatusTranscriptReady); err != nil && s.logger != nil {
						s.logger.Error("failed to requeue job for analysis",
							zap.String("job_id", job.ID.String()),
							zap.Error(err),
						)
					}
					continue
				}

				claimed, err := s.jobRepo.ClaimJob(parentCtx, job.ID, job.Status, entities.AnalysisJobStatusSubmitted)
				if err != nil {
					if s.logger != nil {
						s.logger.Error("failed to claim job",
							zap.String("job_id", job.ID.String()),
							zap.Error(err),
						)
					}
					continue
				}
				if !claimed {
					continue
				}

				if s.logger != nil {
					s.logger.Info("submitting claimed job for transcription",
						zap.String("job_id", job.ID.String()),
						zap.String("call_id", job.CallID),
						zap.Int("retry_count", job.RetryCount),
					)
				}

				if err := s.SubmitToTranscription(parentCtx, job.ID, job.RecordingURL); err != nil {
					if s.logger != nil {
						s.logger.Error("failed to submit job",
							zap.String("job_id", job.ID.String()),
							zap.Error(err),
						)
					}
					// SubmitToTranscription already queued the retry or
					// marked the job failed
				}
			}
		}
	}
}

// cleanupZombieJobs resets jobs stuck in analyzing longer than the zombie
// timeout, typically after a crash mid-run.
func (s *analysisService) cleanupZombieJobs(parentCtx context.Context) {
	defer s.workerWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.workerStopChan:
			return

		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.Analysis.ZombieTimeout)
			jobs, err := s.jobRepo.GetStuckJobs(parentCtx, entities.AnalysisJobStatusAnalyzing, cutoff)
			if err != nil {
				continue
			}

			for _, job := range jobs {
				if s.logger != nil {
					s.logger.Warn("resetting zombie analysis job",
						zap.String("job_id", job.ID.String()),
						zap.String("call_id", job.CallID),
						zap.Time("updated_at", job.UpdatedAt),
					)
				}
				if err := s.jobRepo.UpdateJobStatus(parentCtx, job.ID, entities.AnalysisJobStatusTranscriptReady); err != nil && s.logger != nil {
					s.logger.Error("failed to reset zombie job", zap.Error(err))
				}
			}
		}
	}
}

// webhookTimeoutWorker polls the transcription provider for jobs stuck in
// submitted status, recovering transcripts whose webhook never arrived.
func (s *analysisService) webhookTimeoutWorker(parentCtx context.Context) {
	defer s.workerWg.Done()

	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Info("webhook timeout worker started")
	}

	for {
		select {
		case <-s.workerStopChan:
			if s.logger != nil {
				s.logger.Info("webhook timeout worker stopping")
			}
			return

		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.Analysis.WebhookTimeout)
			stuckJobs, err := s.jobRepo.GetStuckJobs(parentCtx, entities.AnalysisJobStatusSubmitted, cutoff)
			if err != nil {
				if s.logger != nil {
					s.logger.Error("failed to query stuck jobs", zap.Error(err))
				}
				continue
			}
			if len(stuckJobs) == 0 {
				continue
			}

			if s.logger != nil {
				s.logger.Warn("found jobs past the webhook timeout",
					zap.Int("count", len(stuckJobs)),
				)
			}

			for _, job := range stuckJobs {
				if job.ExternalJobID == nil || *job.ExternalJobID == "" {
					s.failOrRetry(parentCtx, &job, "no external transcript ID")
					continue
				}

				transcriptID := *job.ExternalJobID

				transcript, err := s.asmSDKClient.Transcripts.Get(parentCtx, transcriptID)
				if err != nil {
					if s.logger != nil {
						s.logger.Error("failed to poll transcription provider",
							zap.String("transcript_id", transcriptID),
							zap.Error(err),
						)
					}
					// Might be a transient API error, leave the job alone
					continue
				}

				switch transcript.Status {
				case aai.TranscriptStatusCompleted:
					if s.logger != nil {
						s.logger.Info("transcript completed, webhook was missed",
							zap.String("job_id", job.ID.String()),
							zap.String("transcript_id", transcriptID),
						)
					}
					if err := s.handleCompletedTranscript(parentCtx, &job, transcriptID); err != nil {
						s.failOrRetry(parentCtx, &job, fmt.Sprintf("failed to process transcript: %v", err))
					}

				case aai.TranscriptStatusError:
					errorMsg := "transcription failed"
					if transcript.Error != nil {
						errorMsg = fmt.Sprintf("transcription error: %s", *transcript.Error)
					}
					s.failOrRetry(parentCtx, &job, errorMsg)

				case aai.TranscriptStatusQueued, aai.TranscriptStatusProcessing:
					// Still processing, reset the timeout window
					if err := s.jobRepo.TouchJob(parentCtx, job.ID); err != nil && s.logger != nil {
						s.logger.Error("failed to touch job", zap.Error(err))
					}

				default:
					if s.logger != nil {
						s.logger.Warn("unknown transcript status",
							zap.String("job_id", job.ID.String()),
							zap.String("status", string(transcript.Status)),
						)
					}
				}
			}
		}
	}
}

// failedJobWorker requeues failed jobs that still have retry budget and
// logs the permanently dead ones.
func (s *analysisService) failedJobWorker(parentCtx context.Context) {
	defer s.workerWg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Info("failed job worker started")
	}

	for {
		select {
		case <-s.workerStopChan:
			if s.logger != nil {
				s.logger.Info("failed job worker stopping")
			}
			return

		case <-ticker.C:
			retryable, err := s.jobRepo.GetRetryableFailedJobs(parentCtx, 5)
			if err == nil {
				for _, job := range retryable {
					errMsg := ""
					if job.LastError != nil {
						errMsg = *job.LastError
					}
					if s.logger != nil {
						s.logger.Info("requeueing failed job",
							zap.String("job_id", job.ID.String()),
							zap.String("call_id", job.CallID),
							zap.Int("retry_count", job.RetryCount),
						)
					}
					if err := s.jobRepo.IncrementRetryCount(parentCtx, job.ID, errMsg); err != nil && s.logger != nil {
						s.logger.Error("failed to requeue job", zap.Error(err))
					}
				}
			}

			dead, err := s.jobRepo.GetDeadJobs(parentCtx)
			if err != nil || len(dead) == 0 {
				continue
			}
			if s.logger != nil {
				s.logger.Warn("permanently failed jobs found",
					zap.Int("count", len(dead)),
				)
				for _, job := range dead {
					errMsg := ""
					if job.LastError != nil {
						errMsg = *job.LastError
					}
					s.logger.Warn("dead job",
						zap.String("job_id", job.ID.String()),
						zap.String("call_id", job.CallID),
						zap.Int("retry_count", job.RetryCount),
						zap.String("last_error", errMsg),
					)
				}
			}
		}
	}
}
