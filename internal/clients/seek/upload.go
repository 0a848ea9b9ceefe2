package seek

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/maxaizer/seek-applier/internal/metrics"
	log "github.com/sirupsen/logrus"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type AttachmentType string

const (
	AttachmentResume      AttachmentType = "Resume"
	AttachmentCoverLetter AttachmentType = "CoverLetter"
)

const filenamePlaceholder = "${filename}"

type FormField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UploadTicket is a pre-authorized slot in Seek's document storage.
type UploadTicket struct {
	Link       string      `json:"link"`
	Key        string      `json:"key"`
	FormFields []FormField `json:"formFields"`
}

type AttachmentReference struct {
	URI string
}

type Uploader struct {
	gql         executor
	client      *Client
	zone        string
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	newID       func() string
	log         log.FieldLogger
}

func NewUploader(gql executor, client *Client, zone string, settleDelay time.Duration, logger log.FieldLogger) *Uploader {
	return &Uploader{
		gql:         gql,
		client:      client,
		zone:        zone,
		settleDelay: settleDelay,
		sleep:       sleepContext,
		newID:       uuid.NewString,
		log:         logger.WithField("component", "seek_uploader"),
	}
}

// Upload stores the PDF at path and registers it as a resume or cover letter.
func (u *Uploader) Upload(ctx context.Context, kind AttachmentType, path string) (AttachmentReference, error) {

	if kind != AttachmentResume && kind != AttachmentCoverLetter {
		return AttachmentReference{}, &UploadError{
			Phase: PhaseRequestSlot, Attachment: kind, Err: fmt.Errorf("unsupported attachment type"),
		}
	}

	start := time.Now()
	ticket, err := u.requestSlot(ctx)
	metrics.UploadPhaseDuration.WithLabelValues(string(PhaseRequestSlot)).Observe(time.Since(start).Seconds())
	if err != nil {
		return AttachmentReference{}, &UploadError{Phase: PhaseRequestSlot, Attachment: kind, Err: err}
	}

	start = time.Now()
	err = u.uploadFile(ctx, ticket, path)
	metrics.UploadPhaseDuration.WithLabelValues(string(PhaseStorageUpload)).Observe(time.Since(start).Seconds())
	if err != nil {
		return AttachmentReference{}, &UploadError{Phase: PhaseStorageUpload, Attachment: kind, Err: err}
	}

	// storage is eventually consistent, registering right away fails to find the object
	if err := u.sleep(ctx, u.settleDelay); err != nil {
		return AttachmentReference{}, &UploadError{Phase: PhaseRegister, Attachment: kind, Err: err}
	}

	start = time.Now()
	uri, err := u.register(ctx, kind, ticket.Key)
	metrics.UploadPhaseDuration.WithLabelValues(string(PhaseRegister)).Observe(time.Since(start).Seconds())
	if err != nil {
		return AttachmentReference{}, &UploadError{Phase: PhaseRegister, Attachment: kind, Err: err}
	}

	u.log.Debugf("%s %s registered as %s", kind, filepath.Base(path), uri)
	return AttachmentReference{URI: uri}, nil
}

func (u *Uploader) requestSlot(ctx context.Context) (UploadTicket, error) {

	var out struct {
		Viewer struct {
			DocumentUploadFormData *UploadTicket `json:"documentUploadFormData"`
		} `json:"viewer"`
	}

	err := u.gql.Execute(ctx, Operation{
		Name:      "GetDocumentUploadData",
		Variables: map[string]any{"id": u.newID()},
		Query:     documentUploadDataQuery,
	}, &out)
	if err != nil {
		return UploadTicket{}, err
	}

	ticket := out.Viewer.DocumentUploadFormData
	if ticket == nil || ticket.Link == "" || ticket.Key == "" {
		return UploadTicket{}, errors.New("upload form data is incomplete")
	}
	return *ticket, nil
}

func (u *Uploader) uploadFile(ctx context.Context, ticket UploadTicket, path string) error {

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening attachment: %w", err)
	}
	defer file.Close()

	filename := filepath.Base(path)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range ticket.FormFields {
		value := strings.ReplaceAll(field.Value, filenamePlaceholder, filename)
		if err := writer.WriteField(field.Key, value); err != nil {
			return err
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("error reading attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	_, err = u.client.sendRequest(ctx, request{
		method:  http.MethodPost,
		url:     ticket.Link,
		body:    body,
		headers: map[string]string{"Content-Type": writer.FormDataContentType()},
	})
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (u *Uploader) register(ctx context.Context, kind AttachmentType, key string) (string, error) {

	if kind == AttachmentResume {
		var out struct {
			ProcessUploadedResume struct {
				Resume struct {
					FileMetadata struct {
						URI string `json:"uri"`
					} `json:"fileMetadata"`
				} `json:"resume"`
			} `json:"processUploadedResume"`
		}

		err := u.gql.Execute(ctx, Operation{
			Name: "ApplyProcessUploadedResume",
			Variables: map[string]any{"input": map[string]any{
				"id":             key,
				"isDefault":      false,
				"parsingContext": map[string]string{"id": u.newID()},
				"zone":           u.zone,
			}},
			Query: processUploadedResumeQuery,
		}, &out)
		if err != nil {
			return "", err
		}
		return requireURI(out.ProcessUploadedResume.Resume.FileMetadata.URI)
	}

	var out struct {
		ProcessUploadedAttachment struct {
			URI string `json:"uri"`
		} `json:"processUploadedAttachment"`
	}

	err := u.gql.Execute(ctx, Operation{
		Name: "ApplyProcessUploadedAttachment",
		Variables: map[string]any{"input": map[string]any{
			"id":             key,
			"attachmentType": string(AttachmentCoverLetter),
		}},
		Query: processUploadedAttachmentQuery,
	}, &out)
	if err != nil {
		return "", err
	}
	return requireURI(out.ProcessUploadedAttachment.URI)
}

func requireURI(uri string) (string, error) {
	if uri == "" {
		return "", errors.New("no document uri in response")
	}
	return uri, nil
}
