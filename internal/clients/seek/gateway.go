package seek

import (
	"context"
	"github.com/google/uuid"
	"github.com/maxaizer/seek-applier/internal/logger"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"time"
)

const (
	recentRoleCacheKey    = "most_recent_role"
	submitSuccessTypename = "SubmitApplicationSuccess"
)

type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Role is the applicant's latest position as recorded on their Seek profile.
type Role struct {
	Company  string     `json:"company"`
	Title    string     `json:"title"`
	Started  *YearMonth `json:"started,omitempty"`
	Finished *YearMonth `json:"finished,omitempty"`
}

type SubmitRequest struct {
	JobID             string
	ResumePath        string
	CoverLetterPath   string
	IncludeRecentRole bool
}

type GatewayConfig struct {
	GraphQLURL  string
	Zone        string
	Locale      string
	SettleDelay time.Duration
}

type authenticator interface {
	EnsureValid(ctx context.Context) error
}

type attachmentUploader interface {
	Upload(ctx context.Context, kind AttachmentType, path string) (AttachmentReference, error)
}

type Gateway struct {
	session  authenticator
	gql      executor
	uploader attachmentUploader
	roles    *gocache.Cache
	zone     string
	locale   string
	newID    func() string
	log      log.FieldLogger
}

func NewGateway(session *Session, client *Client, cfg GatewayConfig, logger log.FieldLogger) *Gateway {

	gql := &graphQL{client: client, url: cfg.GraphQLURL, tokens: session}

	return &Gateway{
		session:  session,
		gql:      gql,
		uploader: NewUploader(gql, client, cfg.Zone, cfg.SettleDelay, logger),
		roles:    gocache.New(time.Hour, 2*time.Hour),
		zone:     cfg.Zone,
		locale:   cfg.Locale,
		newID:    uuid.NewString,
		log:      logger.WithField("component", "seek_gateway"),
	}
}

type documentURI struct {
	URI string `json:"uri"`
}

type submitInput struct {
	JobID               string      `json:"jobId"`
	CorrelationID       string      `json:"correlationId"`
	Zone                string      `json:"zone"`
	ProfilePrivacyLevel string      `json:"profilePrivacyLevel"`
	Resume              documentURI `json:"resume"`
	CoverLetter         documentURI `json:"coverLetter"`
	MostRecentRole      *Role       `json:"mostRecentRole,omitempty"`
}

// SubmitApplication uploads both documents and submits the application, returning Seek's application id.
func (g *Gateway) SubmitApplication(ctx context.Context, req SubmitRequest) (string, error) {

	if err := g.session.EnsureValid(ctx); err != nil {
		return "", err
	}

	resume, err := g.uploader.Upload(ctx, AttachmentResume, req.ResumePath)
	if err != nil {
		g.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekUpload).
			WithField("job_id", req.JobID).Errorf("resume upload failed: %v", err)
		return "", err
	}

	coverLetter, err := g.uploader.Upload(ctx, AttachmentCoverLetter, req.CoverLetterPath)
	if err != nil {
		g.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekUpload).
			WithField("job_id", req.JobID).Errorf("cover letter upload failed: %v", err)
		return "", err
	}

	input := submitInput{
		JobID:               req.JobID,
		CorrelationID:       g.newID(),
		Zone:                g.zone,
		ProfilePrivacyLevel: "Standard",
		Resume:              documentURI{URI: resume.URI},
		CoverLetter:         documentURI{URI: coverLetter.URI},
	}
	if req.IncludeRecentRole {
		input.MostRecentRole = g.MostRecentRole(ctx)
	}

	var out struct {
		SubmitApplication struct {
			Typename      string           `json:"__typename"`
			ApplicationID string           `json:"applicationId"`
			Errors        []graphQLMessage `json:"errors"`
		} `json:"submitApplication"`
	}

	err = g.gql.Execute(ctx, Operation{
		Name:      "ApplySubmitApplication",
		Variables: map[string]any{"input": input, "locale": g.locale},
		Query:     submitApplicationQuery,
	}, &out)
	if err != nil {
		g.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekSubmit).
			WithField("job_id", req.JobID).Errorf("submit request failed: %v", err)
		return "", err
	}

	result := out.SubmitApplication
	if result.Typename != submitSuccessTypename {
		reasons := messages(result.Errors)
		if len(reasons) == 0 {
			reasons = []string{"unexpected result " + lo.Ternary(result.Typename == "", "<empty>", result.Typename)}
		}
		rejected := &SubmissionRejected{JobID: req.JobID, Reasons: reasons}
		g.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekSubmit).
			WithField("job_id", req.JobID).Error(rejected.Error())
		return "", rejected
	}

	g.log.WithField("job_id", req.JobID).Infof("application submitted, id %s", result.ApplicationID)
	return result.ApplicationID, nil
}

// MostRecentRole returns the first role on the profile, or nil when it is unavailable.
func (g *Gateway) MostRecentRole(ctx context.Context) *Role {

	if cached, found := g.roles.Get(recentRoleCacheKey); found {
		return cached.(*Role)
	}

	if err := g.session.EnsureValid(ctx); err != nil {
		g.log.Warnf("can't fetch most recent role: %v", err)
		return nil
	}

	role, err := g.fetchMostRecentRole(ctx)
	if err != nil {
		g.log.Warnf("can't fetch most recent role: %v", err)
		return nil
	}

	g.roles.Set(recentRoleCacheKey, role, gocache.DefaultExpiration)
	return role
}

type textValue struct {
	Text string `json:"text"`
}

func (g *Gateway) fetchMostRecentRole(ctx context.Context) (*Role, error) {

	var out struct {
		Viewer struct {
			Roles []struct {
				Title   textValue  `json:"title"`
				Company textValue  `json:"company"`
				From    *YearMonth `json:"from"`
				To      *YearMonth `json:"to"`
			} `json:"roles"`
		} `json:"viewer"`
	}

	err := g.gql.Execute(ctx, Operation{Name: "GetRoles", Query: rolesQuery}, &out)
	if err != nil {
		return nil, err
	}

	if len(out.Viewer.Roles) == 0 {
		return nil, nil
	}

	latest := out.Viewer.Roles[0]
	return &Role{
		Company:  latest.Company.Text,
		Title:    latest.Title.Text,
		Started:  latest.From,
		Finished: latest.To,
	}, nil
}
