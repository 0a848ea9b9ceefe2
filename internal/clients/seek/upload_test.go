package seek

import (
	"bytes"
	"context"
	"github.com/maxaizer/seek-applier/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type uploadedPart struct {
	name        string
	filename    string
	contentType string
	value       string
}

func isStorageUpload(req *http.Request) bool {
	return req.URL.Host == "storage.example.com"
}

func readParts(t *testing.T, req *http.Request) []uploadedPart {
	_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	require.NoError(t, err)

	reader := multipart.NewReader(bytes.NewReader(requestBody(req)), params["boundary"])
	var parts []uploadedPart
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		value, _ := io.ReadAll(part)
		parts = append(parts, uploadedPart{
			name:        part.FormName(),
			filename:    part.FileName(),
			contentType: part.Header.Get("Content-Type"),
			value:       string(value),
		})
	}
	return parts
}

func writePDF(t *testing.T, name string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test document"), 0644))
	return path
}

func newTestUploader(t *testing.T, httpClient HTTPClient) *Uploader {
	client := newTestClient(t)
	client.SetHTTPClient(httpClient)
	gql := &graphQL{client: client, url: testGraphQLURL, tokens: staticToken("access-1")}
	return NewUploader(gql, client, "anz-1", 5*time.Second, logger.Discard())
}

func Test_Uploader_Upload_Resume_ShouldRunPhasesInOrder(t *testing.T) {

	var steps []string
	var storageRequest *http.Request
	var registerInput map[string]any

	step := func(name string, respond func(*http.Request) (*http.Response, error)) func(*http.Request) (*http.Response, error) {
		return func(req *http.Request) (*http.Response, error) {
			steps = append(steps, name)
			return respond(req)
		}
	}

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(isOperation("GetDocumentUploadData"))).
		Return(step("request_slot", respondWith(t, http.StatusOK, "upload_form_data.json")))
	mockClient.On("Do", mock.MatchedBy(isStorageUpload)).
		Return(step("storage_upload", func(req *http.Request) (*http.Response, error) {
			storageRequest = req
			return respondWith(t, http.StatusNoContent, "")(req)
		}))
	mockClient.On("Do", mock.MatchedBy(isOperation("ApplyProcessUploadedResume"))).
		Return(step("register", func(req *http.Request) (*http.Response, error) {
			op, _ := operationOf(req)
			registerInput, _ = op.Variables["input"].(map[string]any)
			return respondWith(t, http.StatusOK, "process_resume.json")(req)
		}))

	uploader := newTestUploader(t, mockClient)
	uploader.sleep = func(_ context.Context, d time.Duration) error {
		assert.Equal(t, 5*time.Second, d)
		steps = append(steps, "settle")
		return nil
	}

	ref, err := uploader.Upload(context.Background(), AttachmentResume, writePDF(t, "resume.pdf"))

	require.NoError(t, err)
	assert.Equal(t, "https://documents.seek.com/resumes/4b9c0a57", ref.URI)
	assert.Equal(t, []string{"request_slot", "storage_upload", "settle", "register"}, steps)

	require.NotNil(t, storageRequest)
	assert.Empty(t, storageRequest.Header.Get("Authorization"))
	parts := readParts(t, storageRequest)
	require.Len(t, parts, 4)
	assert.Equal(t, "key", parts[0].name)
	assert.Equal(t, "uploads/7f3c2d1e/resume.pdf", parts[0].value)
	assert.Equal(t, "policy", parts[1].name)
	assert.Equal(t, "x-amz-signature", parts[2].name)
	assert.Equal(t, "file", parts[3].name)
	assert.Equal(t, "resume.pdf", parts[3].filename)
	assert.Equal(t, "application/pdf", parts[3].contentType)
	assert.Equal(t, "%PDF-1.4 test document", parts[3].value)

	assert.Equal(t, "uploads/7f3c2d1e", registerInput["id"])
	assert.Equal(t, false, registerInput["isDefault"])
	assert.Equal(t, "anz-1", registerInput["zone"])
}

func Test_Uploader_Upload_ShouldSendBearerTokenToGraphQL(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return isOperation("GetDocumentUploadData")(req) && req.Header.Get("Authorization") == "Bearer access-1"
	})).Return(respondWith(t, http.StatusOK, "upload_form_data.json"))
	mockClient.On("Do", mock.MatchedBy(isStorageUpload)).Return(respondWith(t, http.StatusNoContent, ""))
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return isOperation("ApplyProcessUploadedAttachment")(req) && req.Header.Get("Authorization") == "Bearer access-1"
	})).Return(respondWith(t, http.StatusOK, "process_attachment.json"))

	uploader := newTestUploader(t, mockClient)
	uploader.sleep = noSleep

	ref, err := uploader.Upload(context.Background(), AttachmentCoverLetter, writePDF(t, "cover_letter.pdf"))

	require.NoError(t, err)
	assert.Equal(t, "https://documents.seek.com/attachments/91aa07", ref.URI)
	mockClient.AssertNumberOfCalls(t, "Do", 3)
}

func Test_Uploader_Upload_WhenStorageRejects_ShouldReportStoragePhase(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(isOperation("GetDocumentUploadData"))).
		Return(respondWith(t, http.StatusOK, "upload_form_data.json"))
	mockClient.On("Do", mock.MatchedBy(isStorageUpload)).
		Return(respondWith(t, http.StatusForbidden, ""))

	uploader := newTestUploader(t, mockClient)
	slept := false
	uploader.sleep = func(context.Context, time.Duration) error {
		slept = true
		return nil
	}

	_, err := uploader.Upload(context.Background(), AttachmentResume, writePDF(t, "resume.pdf"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, PhaseStorageUpload, uploadErr.Phase)
	assert.Equal(t, AttachmentResume, uploadErr.Attachment)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusForbidden, transportErr.StatusCode)
	assert.False(t, slept)
	mockClient.AssertNumberOfCalls(t, "Do", 2)
}

func Test_Uploader_Upload_WhenRegistrationFails_ShouldReportRegisterPhase(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(isOperation("GetDocumentUploadData"))).
		Return(respondWith(t, http.StatusOK, "upload_form_data.json"))
	mockClient.On("Do", mock.MatchedBy(isStorageUpload)).
		Return(respondWith(t, http.StatusNoContent, ""))
	mockClient.On("Do", mock.MatchedBy(isOperation("ApplyProcessUploadedAttachment"))).
		Return(respondWith(t, http.StatusOK, "process_attachment_error.json"))

	uploader := newTestUploader(t, mockClient)
	uploader.sleep = noSleep

	_, err := uploader.Upload(context.Background(), AttachmentCoverLetter, writePDF(t, "cover_letter.pdf"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, PhaseRegister, uploadErr.Phase)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"Document not found"}, gqlErr.Messages)
}

func Test_Uploader_Upload_WhenFileMissing_ShouldFailBeforeStorage(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(isOperation("GetDocumentUploadData"))).
		Return(respondWith(t, http.StatusOK, "upload_form_data.json"))

	uploader := newTestUploader(t, mockClient)
	uploader.sleep = noSleep

	_, err := uploader.Upload(context.Background(), AttachmentResume, filepath.Join(t.TempDir(), "missing.pdf"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, PhaseStorageUpload, uploadErr.Phase)
	assert.ErrorIs(t, err, os.ErrNotExist)
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}

func Test_Uploader_Upload_WithoutAccessToken_ShouldFailRequestSlot(t *testing.T) {

	mockClient := &mockHTTPClient{}
	client := newTestClient(t)
	client.SetHTTPClient(mockClient)
	uploader := NewUploader(&graphQL{client: client, url: testGraphQLURL, tokens: staticToken("")},
		client, "anz-1", time.Second, logger.Discard())

	_, err := uploader.Upload(context.Background(), AttachmentResume, writePDF(t, "resume.pdf"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, PhaseRequestSlot, uploadErr.Phase)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	mockClient.AssertNotCalled(t, "Do", mock.Anything)
}
