package main

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/seek-applier/internal/bot"
	"github.com/maxaizer/seek-applier/internal/clients/gemini"
	"github.com/maxaizer/seek-applier/internal/clients/gmail"
	"github.com/maxaizer/seek-applier/internal/clients/openai"
	"github.com/maxaizer/seek-applier/internal/clients/seek"
	"github.com/maxaizer/seek-applier/internal/config"
	"github.com/maxaizer/seek-applier/internal/logger"
	"github.com/maxaizer/seek-applier/internal/metrics"
	"github.com/maxaizer/seek-applier/internal/repositories"
	"github.com/maxaizer/seek-applier/internal/services"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
)

type aiClient interface {
	GenerateResponse(ctx context.Context, text string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

func newAIClient(ctx context.Context, cfg config.AIConfig, logger log.FieldLogger) (aiClient, func(), error) {

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := openai.NewClient(openai.Config{
			Key:            cfg.Key,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		client.SetMinuteRateLimit(cfg.MaxRequestsPerMinute)
		return client, func() {}, nil
	default:
		client, err := gemini.NewClient(ctx, cfg.Key, gemini.Model(cfg.Model), cfg.EmbeddingModel, logger)
		if err != nil {
			return nil, nil, err
		}
		client.SetMinuteRateLimit(cfg.MaxRequestsPerMinute)
		client.SetDayRateLimit(cfg.MaxRequestsPerDay)
		return client, func() { _ = client.Close() }, nil
	}
}

type stores struct {
	ledger        repositories.Blob
	refreshTokens repositories.Blob
	close         func()
}

func newStores(cfg *config.Config) (*stores, error) {

	if cfg.Applier.LedgerBackend != config.LedgerBackendDB {
		return &stores{
			ledger:        repositories.NewFileBlob(cfg.Applier.AppliedPath),
			refreshTokens: repositories.NewFileBlob(cfg.Seek.RefreshTokenPath),
			close:         func() {},
		}, nil
	}

	dbContext, err := repositories.NewDbContext(string(cfg.DB.Driver), cfg.DB.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("can't create db context: %w", err)
	}

	if err = dbContext.Migrate(); err != nil {
		_ = dbContext.Close()
		return nil, fmt.Errorf("can't migrate db context: %w", err)
	}

	documents := repositories.NewDocumentsRepository(dbContext.DB)
	return &stores{
		ledger:        repositories.NewDocumentBlob(documents, repositories.LedgerDocumentID),
		refreshTokens: repositories.NewDocumentBlob(documents, repositories.RefreshTokenDocumentID),
		close:         func() { _ = dbContext.Close() },
	}, nil
}

func runPass(ctx context.Context, applier *services.Applier, jobs *services.JobSource, runLog log.FieldLogger) {

	candidates, err := jobs.Load()
	if err != nil {
		runLog.Errorf("can't load jobs: %v", err)
		return
	}

	summary, err := applier.Run(ctx, candidates)
	if err != nil && ctx.Err() == nil {
		runLog.Errorf("run aborted after %d jobs: %v", len(summary.Results), err)
	}
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	appLogger, cleanup, err := logger.New(ctx, cfg.Logger)
	if err != nil {
		log.Fatalf("can't set up logger: %v", err)
	}
	defer cleanup()

	if cfg.Metrics.Address != "" {
		metrics.StartMetricsServer(cfg.Metrics.Address, appLogger)
	}

	storage, err := newStores(cfg)
	if err != nil {
		appLogger.Fatal(err)
	}
	defer storage.close()

	ai, closeAI, err := newAIClient(ctx, cfg.AI, appLogger)
	if err != nil {
		appLogger.Fatalf("can't create AI client: %v", err)
	}
	defer closeAI()

	mail, err := gmail.NewClient(ctx, cfg.Mail.CredentialsFile, cfg.Mail.TokenFile, cfg.Mail.From, appLogger)
	if err != nil {
		appLogger.Fatalf("can't create mail client: %v", err)
	}

	seekClient, err := seek.NewClient()
	if err != nil {
		appLogger.Fatalf("can't create seek client: %v", err)
	}
	seekClient.SetRateLimit(cfg.Seek.MaxRequestsPerSecond)

	session, err := seek.NewSession(ctx, seekClient, seek.SessionConfig{
		Email:            cfg.Seek.Email,
		ClientID:         cfg.Seek.ClientID,
		LoginURL:         cfg.Seek.LoginURL,
		RedirectURI:      cfg.Seek.RedirectURI,
		CodeSender:       cfg.Seek.CodeSender,
		RefreshMargin:    cfg.Seek.RefreshMargin,
		CodeInitialWait:  cfg.Seek.CodeInitialWait,
		CodePollAttempts: cfg.Seek.CodePollAttempts,
		CodePollInterval: cfg.Seek.CodePollInterval,
	}, mail, repositories.NewRefreshTokens(storage.refreshTokens), appLogger)
	if err != nil {
		appLogger.Fatalf("can't create seek session: %v", err)
	}
	defer func() {
		if err := session.Close(context.Background()); err != nil {
			appLogger.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekAuth).Error(err)
		}
	}()

	gateway := seek.NewGateway(session, seekClient, seek.GatewayConfig{
		GraphQLURL:  cfg.Seek.GraphQLURL,
		Zone:        cfg.Seek.Zone,
		Locale:      cfg.Seek.Locale,
		SettleDelay: cfg.Seek.SettleDelay,
	}, appLogger)

	bus := EventBus.New()

	if cfg.Notifier.Token != "" {
		tgbot, err := bot.NewBot(cfg.Notifier.Token, cfg.Notifier.ChatID, bus, appLogger)
		if err != nil {
			appLogger.Fatalf("can't create bot: %v", err)
		}
		go tgbot.Run()
		defer tgbot.Stop()
	}

	resume, err := os.ReadFile(cfg.Applier.ResumeTextFile)
	if err != nil {
		appLogger.Fatalf("can't read resume text: %v", err)
	}

	ledger := repositories.NewLedger(storage.ledger, cfg.Applier.EmailCooldown)

	applier := services.NewApplier(
		services.NewAIService(ai, cfg.Mail.ApplicantName),
		services.NewRelevanceScorer(ai),
		services.NewPDFRenderer(),
		gateway,
		mail,
		ledger,
		bus,
		services.ApplierOptions{
			ResumeText:        string(resume),
			ResumePDFPath:     cfg.Applier.ResumePDFPath,
			CoverLetterPath:   cfg.Applier.CoverLetterPath,
			MinSimilarity:     cfg.Applier.MinSimilarity,
			PauseBetweenJobs:  cfg.Applier.PauseBetweenJobs,
			AustralianEnglish: cfg.Applier.AustralianEnglish,
			IncludeRecentRole: cfg.Applier.IncludeRecentRole,
		},
		appLogger,
	)

	jobs := services.NewJobSource(cfg.Applier.JobsFile, appLogger)

	if cfg.Applier.Schedule == "" {
		runPass(ctx, applier, jobs, appLogger)
		bus.WaitAsync()
		return
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(appLogger))))
	_, err = scheduler.AddFunc(cfg.Applier.Schedule, func() { runPass(ctx, applier, jobs, appLogger) })
	if err != nil {
		appLogger.Fatalf("invalid schedule %q: %v", cfg.Applier.Schedule, err)
	}
	scheduler.Start()
	appLogger.Infof("applier scheduled with %q", cfg.Applier.Schedule)

	<-ctx.Done()

	appLogger.Info("Shutting down services...")
	<-scheduler.Stop().Done()
	bus.WaitAsync()
	appLogger.Info("Services stopped.")
}
