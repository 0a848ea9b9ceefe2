package seek

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrNotAuthenticated    = errors.New("session is not authenticated")
	ErrCodeNotReceived     = errors.New("verification code was not received")
	ErrNoAuthorizationCode = errors.New("authorization code not found in redirect")
)

// AuthError means the session could not be established or renewed; the session is logged out.
type AuthError struct {
	Step string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("seek auth failed at %s: %v", e.Step, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type UploadPhase string

const (
	PhaseRequestSlot   UploadPhase = "request_slot"
	PhaseStorageUpload UploadPhase = "storage_upload"
	PhaseRegister      UploadPhase = "register"
)

type UploadError struct {
	Phase      UploadPhase
	Attachment AttachmentType
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s upload failed at %s: %v", e.Attachment, e.Phase, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// SubmissionRejected carries the reasons Seek returned for a failed application mutation.
type SubmissionRejected struct {
	JobID   string
	Reasons []string
}

func (e *SubmissionRejected) Error() string {
	return fmt.Sprintf("application for job %s rejected: %s", e.JobID, strings.Join(e.Reasons, "; "))
}

type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql operation %s returned errors: %s", e.Operation, strings.Join(e.Messages, "; "))
}

type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func newTransportError(r request, status int, body string, err error) *TransportError {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}

	return &TransportError{
		Method:     r.method,
		URL:        redactQuery(r.url),
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s failed with status %d, body: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// redactQuery drops the query string, which carries verification codes during login.
func redactQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	return u.String()
}
