package config

import (
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type ledgerBackend string

const (
	LedgerBackendFile ledgerBackend = "file"
	LedgerBackendDB   ledgerBackend = "db"
)

type ApplierConfig struct {
	JobsFile          string        `mapstructure:"jobs_file"`
	ResumeTextFile    string        `mapstructure:"resume_text_file"`
	ResumePDFPath     string        `mapstructure:"resume_pdf_path"`
	CoverLetterPath   string        `mapstructure:"cover_letter_path"`
	AppliedPath       string        `mapstructure:"applied_path"`
	LedgerBackend     ledgerBackend `mapstructure:"ledger_backend"`
	MinSimilarity     float64       `mapstructure:"min_similarity"`
	EmailCooldown     time.Duration `mapstructure:"email_cooldown"`
	PauseBetweenJobs  time.Duration `mapstructure:"pause_between_jobs"`
	AustralianEnglish bool          `mapstructure:"australian_english"`
	IncludeRecentRole bool          `mapstructure:"include_recent_role"`
	Schedule          string        `mapstructure:"schedule"`
}

func (config ApplierConfig) validate() error {

	var missingFields []string

	if config.JobsFile == "" {
		missingFields = append(missingFields, "jobs_file")
	}
	if config.ResumeTextFile == "" {
		missingFields = append(missingFields, "resume_text_file")
	}
	if config.ResumePDFPath == "" {
		missingFields = append(missingFields, "resume_pdf_path")
	}
	if config.CoverLetterPath == "" {
		missingFields = append(missingFields, "cover_letter_path")
	}

	if err := missingFieldsError(missingFields); err != nil {
		return err
	}

	switch config.LedgerBackend {
	case LedgerBackendFile:
		if config.AppliedPath == "" {
			return fmt.Errorf("applied_path is required for the file ledger backend")
		}
	case LedgerBackendDB:
	default:
		return fmt.Errorf("unknown ledger backend: %s", config.LedgerBackend)
	}

	if config.MinSimilarity < -1 || config.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be between -1 and 1")
	}

	if config.EmailCooldown < 0 || config.PauseBetweenJobs < 0 {
		return fmt.Errorf("durations must be non-negative")
	}

	return nil
}

func (config ApplierConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"applier.jobs_file":          "JOBS_FILE",
		"applier.applied_path":       "APPLIED_PATH",
		"applier.ledger_backend":     "LEDGER_BACKEND",
		"applier.pause_between_jobs": "PAUSE_BETWEEN_JOBS",
		"applier.schedule":           "SCHEDULE",
	})
}
