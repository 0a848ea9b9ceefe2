package services

import (
	"encoding/json"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"os"
	"strings"
)

// scrapedJob is one record of the job scraper's output file.
type scrapedJob struct {
	ID      jobID  `json:"id"`
	Title   string `json:"title"`
	Content struct {
		Sections []string `json:"sections"`
	} `json:"content"`
	CompanyProfile struct {
		Name string `json:"name"`
	} `json:"companyProfile"`
	Advertiser struct {
		Name string `json:"name"`
	} `json:"advertiser"`
	HasRoleRequirements bool     `json:"hasRoleRequirements"`
	Emails              []string `json:"emails"`
	Link                string   `json:"link"`
}

// jobID accepts both string and numeric ids.
type jobID string

func (id *jobID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = jobID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = jobID(n.String())
	return nil
}

type JobSource struct {
	path     string
	validate *validator.Validate
	log      log.FieldLogger
}

func NewJobSource(path string, logger log.FieldLogger) *JobSource {
	return &JobSource{path: path, validate: validator.New(), log: logger.WithField("component", "job_source")}
}

// Load reads the jobs file. Invalid records are dropped with a warning, as are duplicate ids.
func (s *JobSource) Load() ([]entities.Job, error) {

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("error reading jobs file: %w", err)
	}

	var records []scrapedJob
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("error decoding jobs file: %w", err)
	}

	jobs := make([]entities.Job, 0, len(records))
	seen := map[string]bool{}

	for i, record := range records {
		job := s.toJob(record)

		if err := s.validate.Struct(job); err != nil {
			s.log.Warnf("skipping job record #%d: %v", i, err)
			continue
		}
		if seen[job.ID] {
			s.log.Warnf("skipping duplicate job %s", job.ID)
			continue
		}

		seen[job.ID] = true
		jobs = append(jobs, job)
	}

	s.log.Infof("loaded %d jobs from %s", len(jobs), s.path)
	return jobs, nil
}

func (s *JobSource) toJob(record scrapedJob) entities.Job {

	company := record.CompanyProfile.Name
	if company == "" {
		company = record.Advertiser.Name
	}

	emails := lo.Uniq(lo.FilterMap(record.Emails, func(email string, _ int) (string, bool) {
		email = strings.TrimSpace(email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			s.log.Debugf("dropping invalid contact email %q for job %s", email, record.ID)
			return "", false
		}
		return email, true
	}))

	return entities.Job{
		ID:                     strings.TrimSpace(string(record.ID)),
		Title:                  strings.TrimSpace(record.Title),
		Company:                strings.TrimSpace(company),
		DescriptionSections:    record.Content.Sections,
		RequiresExtraQuestions: record.HasRoleRequirements,
		ContactEmails:          emails,
		Link:                   record.Link,
	}
}
