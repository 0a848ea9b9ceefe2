package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/seek-applier/internal/entities"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"os"
	"regexp"
	"strings"
	"time"
)

const me = "me"

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// Client reads login codes from and sends applications through the applicant's Gmail account.
type Client struct {
	service *gmail.Service
	from    string
	log     log.FieldLogger
}

// NewClient authorizes with the OAuth client in credentialsFile and the user token in tokenFile.
func NewClient(ctx context.Context, credentialsFile, tokenFile, from string, logger log.FieldLogger) (*Client, error) {

	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(credentials, gmail.GmailReadonlyScope, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read gmail token %s, authorize the account at %s: %w",
			tokenFile, config.AuthCodeURL("state-token", oauth2.AccessTypeOffline), err)
	}

	service, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, err
	}

	return NewClientWithService(service, from, logger), nil
}

func NewClientWithService(service *gmail.Service, from string, logger log.FieldLogger) *Client {
	return &Client{service: service, from: from, log: logger.WithField("component", "gmail")}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// FetchVerificationCode returns the six digit code from the newest message by sender received after
// since, or an empty string when there is none yet.
func (c *Client) FetchVerificationCode(ctx context.Context, sender string, since time.Time) (string, error) {

	// gmail's after: has second precision and the clocks may drift a little
	query := fmt.Sprintf("from:%s after:%d", sender, since.Add(-time.Minute).Unix())

	list, err := c.service.Users.Messages.List(me).Q(query).MaxResults(5).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("error listing messages: %w", err)
	}

	for _, header := range list.Messages {
		msg, err := c.service.Users.Messages.Get(me, header.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("error reading message %s: %w", header.Id, err)
		}

		if msg.InternalDate > 0 && time.UnixMilli(msg.InternalDate).Before(since.Add(-time.Minute)) {
			continue
		}

		for _, text := range []string{subjectOf(msg), msg.Snippet, bodyOf(msg.Payload)} {
			if match := codePattern.FindStringSubmatch(text); match != nil {
				c.log.Debugf("found verification code in message %s", msg.Id)
				return match[1], nil
			}
		}
	}

	return "", nil
}

// SendApplication emails the recruiter with the given files attached.
func (c *Client) SendApplication(ctx context.Context, to string, job entities.Job, body string, attachments []string) error {

	raw, err := buildMessage(c.from, to, applicationSubject(job), body, attachments)
	if err != nil {
		return err
	}

	_, err = c.service.Users.Messages.Send(me, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("error sending message to %s: %w", to, err)
	}

	c.log.WithField("job_id", job.ID).Infof("application sent to %s", to)
	return nil
}

func applicationSubject(job entities.Job) string {
	if job.Title == "" {
		return "Job application"
	}
	return "Application for " + job.Title
}

func subjectOf(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	for _, header := range msg.Payload.Headers {
		if strings.EqualFold(header.Name, "Subject") {
			return header.Value
		}
	}
	return ""
}

func bodyOf(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}

	if part.Body != nil && part.Body.Data != "" && strings.HasPrefix(part.MimeType, "text/") {
		return decodeData(part.Body.Data)
	}

	var sb strings.Builder
	for _, child := range part.Parts {
		sb.WriteString(bodyOf(child))
	}
	return sb.String()
}

func decodeData(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	decoded, _ := base64.RawURLEncoding.DecodeString(data)
	return string(decoded)
}
