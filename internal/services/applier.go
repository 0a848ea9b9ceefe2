package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/maxaizer/seek-applier/internal/clients/seek"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/maxaizer/seek-applier/internal/events"
	"github.com/maxaizer/seek-applier/internal/logger"
	"github.com/maxaizer/seek-applier/internal/metrics"
	log "github.com/sirupsen/logrus"
	"time"
)

type writer interface {
	DraftCoverLetter(ctx context.Context, job entities.Job, resume string, australianEnglish bool) (string, error)
	DraftEmailBody(ctx context.Context) (string, error)
}

type scorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

type renderer interface {
	Render(text string, path string) error
}

type applicationGateway interface {
	SubmitApplication(ctx context.Context, req seek.SubmitRequest) (string, error)
}

type mailSender interface {
	SendApplication(ctx context.Context, to string, job entities.Job, body string, attachments []string) error
}

type applicationLedger interface {
	Load(ctx context.Context) error
	IsJobApplied(jobID string) bool
	ShouldSkipEmail(email string, now time.Time) bool
	RecordApplication(jobID string, application entities.Application)
	RecordEmailContact(email, jobID string, now time.Time)
	Flush(ctx context.Context) error
}

type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRecorded Outcome = "recorded"
	OutcomeFailed   Outcome = "failed"
)

const (
	ReasonAlreadyApplied   = "already_applied"
	ReasonEmptyDescription = "empty_description"
	ReasonLowSimilarity    = "low_similarity"
	ReasonScoringFailed    = "scoring_failed"
	ReasonGenerationFailed = "generation_failed"
	ReasonPanic            = "panic"
)

type JobResult struct {
	JobID           string
	Outcome         Outcome
	Reason          string
	Similarity      float64
	AppliedViaSeek  bool
	AppliedViaEmail bool
	EmailsContacted []string
	Err             error

	generated bool
}

type RunSummary struct {
	Results  []JobResult
	Skipped  int
	Recorded int
	Failed   int
}

func (s *RunSummary) add(result JobResult) {
	s.Results = append(s.Results, result)
	switch result.Outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeRecorded:
		s.Recorded++
	case OutcomeFailed:
		s.Failed++
	}
}

type ApplierOptions struct {
	ResumeText        string
	ResumePDFPath     string
	CoverLetterPath   string
	MinSimilarity     float64
	PauseBetweenJobs  time.Duration
	AustralianEnglish bool
	IncludeRecentRole bool
}

// Applier walks the candidate jobs one at a time and applies through Seek and by email.
type Applier struct {
	writer   writer
	scorer   scorer
	renderer renderer
	gateway  applicationGateway
	mail     mailSender
	ledger   applicationLedger
	bus      EventBus.Bus
	opts     ApplierOptions
	log      log.FieldLogger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewApplier(writer writer, scorer scorer, renderer renderer, gateway applicationGateway, mail mailSender,
	ledger applicationLedger, bus EventBus.Bus, opts ApplierOptions, logger log.FieldLogger) *Applier {

	return &Applier{
		writer:   writer,
		scorer:   scorer,
		renderer: renderer,
		gateway:  gateway,
		mail:     mail,
		ledger:   ledger,
		bus:      bus,
		opts:     opts,
		log:      logger.WithField("component", "applier"),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run processes the jobs in order. Only a ledger that can't be loaded or a cancelled context stop
// the run early; per-job failures are reported in the summary.
func (a *Applier) Run(ctx context.Context, jobs []entities.Job) (RunSummary, error) {

	runLog := a.log.WithField("run_id", uuid.NewString())
	start := time.Now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	var summary RunSummary

	if err := a.ledger.Load(ctx); err != nil {
		runLog.WithField(logger.ErrorTypeField, logger.ErrorTypeLedger).Errorf("can't load ledger: %v", err)
		return summary, err
	}

	runLog.Infof("processing %d jobs", len(jobs))

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			runLog.Info("run cancelled")
			return summary, err
		}

		result := a.processJob(ctx, job, runLog.WithField("job_id", job.ID))
		summary.add(result)
		metrics.JobsCounter.WithLabelValues(string(result.Outcome)).Inc()

		if result.generated && a.opts.PauseBetweenJobs > 0 && i < len(jobs)-1 {
			runLog.Debugf("pausing for %v", a.opts.PauseBetweenJobs)
			if err := a.sleep(ctx, a.opts.PauseBetweenJobs); err != nil {
				runLog.Info("run cancelled")
				return summary, err
			}
		}
	}

	runLog.Infof("run finished: %d recorded, %d skipped, %d failed", summary.Recorded, summary.Skipped, summary.Failed)
	return summary, nil
}

func (a *Applier) processJob(ctx context.Context, job entities.Job, jobLog log.FieldLogger) (result JobResult) {

	result = JobResult{JobID: job.ID}

	defer func() {
		if r := recover(); r != nil {
			jobLog.Errorf("panic while processing job: %v", r)
			result.Outcome = OutcomeFailed
			result.Reason = ReasonPanic
			result.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	if a.ledger.IsJobApplied(job.ID) {
		jobLog.Debug("already applied, skipping")
		return skipped(result, ReasonAlreadyApplied)
	}

	description := job.Description()
	if description == "" {
		jobLog.Warn("job has no description, skipping")
		return skipped(result, ReasonEmptyDescription)
	}

	start := time.Now()
	score, err := a.scorer.Similarity(ctx, a.opts.ResumeText, description)
	metrics.JobStepDuration.WithLabelValues("scoring").Observe(time.Since(start).Seconds())
	if err != nil {
		jobLog.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).Errorf("error scoring job: %v", err)
		return failed(result, ReasonScoringFailed, err)
	}

	result.Similarity = score
	if score < a.opts.MinSimilarity {
		jobLog.Infof("similarity %.3f is below %.2f, skipping", score, a.opts.MinSimilarity)
		return skipped(result, ReasonLowSimilarity)
	}

	result.generated = true
	if err := a.prepareCoverLetter(ctx, job); err != nil {
		jobLog.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).Errorf("error preparing cover letter: %v", err)
		return failed(result, ReasonGenerationFailed, err)
	}

	if job.RequiresExtraQuestions {
		jobLog.Info("job asks extra questions, not applying through seek")
	} else {
		result.AppliedViaSeek = a.applyViaSeek(ctx, job, jobLog)
	}

	result.EmailsContacted = a.applyViaEmail(ctx, job, jobLog)
	result.AppliedViaEmail = len(result.EmailsContacted) > 0

	appliedOn := a.now()
	a.ledger.RecordApplication(job.ID, entities.Application{
		AppliedOn:       entities.NewTimestamp(appliedOn),
		SimilarityScore: score,
		AppliedViaSeek:  result.AppliedViaSeek,
		AppliedViaEmail: result.AppliedViaEmail,
		EmailsContacted: result.EmailsContacted,
		Position:        job.Title,
		Link:            job.Link,
	})
	result.Outcome = OutcomeRecorded

	if err := a.ledger.Flush(ctx); err != nil {
		jobLog.WithField(logger.ErrorTypeField, logger.ErrorTypeLedger).Errorf("error flushing ledger: %v", err)
		result.Err = err
	}

	jobLog.Infof("recorded %q (seek: %t, email: %t)", job.Title, result.AppliedViaSeek, result.AppliedViaEmail)
	a.publish(job, result, appliedOn)
	return result
}

func (a *Applier) prepareCoverLetter(ctx context.Context, job entities.Job) error {

	start := time.Now()
	defer func() {
		metrics.JobStepDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
	}()

	letter, err := a.writer.DraftCoverLetter(ctx, job, a.opts.ResumeText, a.opts.AustralianEnglish)
	if err != nil {
		return err
	}

	return a.renderer.Render(letter, a.opts.CoverLetterPath)
}

func (a *Applier) applyViaSeek(ctx context.Context, job entities.Job, jobLog log.FieldLogger) bool {

	start := time.Now()
	applicationID, err := a.gateway.SubmitApplication(ctx, seek.SubmitRequest{
		JobID:             job.ID,
		ResumePath:        a.opts.ResumePDFPath,
		CoverLetterPath:   a.opts.CoverLetterPath,
		IncludeRecentRole: a.opts.IncludeRecentRole,
	})
	metrics.JobStepDuration.WithLabelValues("seek").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ApplicationsCounter.WithLabelValues("seek", "failure").Inc()
		jobLog.WithField(logger.ErrorTypeField, seekErrorType(err)).Errorf("seek application failed: %v", err)
		return false
	}

	metrics.ApplicationsCounter.WithLabelValues("seek", "success").Inc()
	jobLog.Infof("applied via seek, application %s", applicationID)
	return true
}

func (a *Applier) applyViaEmail(ctx context.Context, job entities.Job, jobLog log.FieldLogger) []string {

	contacted := []string{}
	attachments := []string{a.opts.ResumePDFPath, a.opts.CoverLetterPath}

	for _, email := range job.ContactEmails {
		emailLog := jobLog.WithField("email", email)

		if a.ledger.ShouldSkipEmail(email, a.now()) {
			emailLog.Info("contacted recently, skipping")
			continue
		}

		body, err := a.writer.DraftEmailBody(ctx)
		if err != nil {
			emailLog.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).Errorf("error drafting email: %v", err)
			continue
		}

		start := time.Now()
		err = a.mail.SendApplication(ctx, email, job, body, attachments)
		metrics.JobStepDuration.WithLabelValues("email").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ApplicationsCounter.WithLabelValues("email", "failure").Inc()
			emailLog.WithField(logger.ErrorTypeField, logger.ErrorTypeMail).Errorf("error sending application: %v", err)
			continue
		}

		metrics.ApplicationsCounter.WithLabelValues("email", "success").Inc()
		a.ledger.RecordEmailContact(email, job.ID, a.now())
		contacted = append(contacted, email)
		emailLog.Info("application emailed")
	}

	return contacted
}

func (a *Applier) publish(job entities.Job, result JobResult, appliedOn time.Time) {
	if a.bus == nil {
		return
	}

	a.bus.Publish(events.ApplicationRecordedTopic, events.ApplicationRecorded{
		JobID:           job.ID,
		Position:        job.Title,
		Company:         job.CompanyOrDefault(),
		Link:            job.Link,
		Similarity:      result.Similarity,
		ViaSeek:         result.AppliedViaSeek,
		ViaEmail:        result.AppliedViaEmail,
		EmailsContacted: result.EmailsContacted,
		AppliedOn:       appliedOn,
	})
}

func seekErrorType(err error) string {
	var authErr *seek.AuthError
	var uploadErr *seek.UploadError
	var transportErr *seek.TransportError

	switch {
	case errors.As(err, &authErr):
		return logger.ErrorTypeSeekAuth
	case errors.As(err, &uploadErr):
		return logger.ErrorTypeSeekUpload
	case errors.As(err, &transportErr):
		return logger.ErrorTypeTransport
	default:
		return logger.ErrorTypeSeekSubmit
	}
}

func skipped(result JobResult, reason string) JobResult {
	result.Outcome = OutcomeSkipped
	result.Reason = reason
	return result
}

func failed(result JobResult, reason string, err error) JobResult {
	result.Outcome = OutcomeFailed
	result.Reason = reason
	result.Err = err
	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
