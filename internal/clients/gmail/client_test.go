package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/maxaizer/seek-applier/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeGmail struct {
	messages map[string]*gmail.Message
	query    string
	sent     []byte
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/users/me/messages"):
		f.query = r.URL.Query().Get("q")
		list := &gmail.ListMessagesResponse{}
		for id := range f.messages {
			list.Messages = append(list.Messages, &gmail.Message{Id: id})
		}
		_ = json.NewEncoder(w).Encode(list)
	case r.Method == http.MethodGet && strings.Contains(path, "/users/me/messages/"):
		id := path[strings.LastIndex(path, "/")+1:]
		msg, ok := f.messages[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(msg)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/messages/send"):
		var msg gmail.Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		f.sent, _ = base64.URLEncoding.DecodeString(msg.Raw)
		_ = json.NewEncoder(w).Encode(&gmail.Message{Id: "sent-1"})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeGmail) *Client {
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	service, err := gmail.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return NewClientWithService(service, "applicant@example.com", logger.Discard())
}

func Test_FetchVerificationCode_ShouldReadCodeFromBody(t *testing.T) {
	since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	body := base64.URLEncoding.EncodeToString([]byte("Your code is 482913. It expires soon."))

	fake := &fakeGmail{messages: map[string]*gmail.Message{
		"m1": {
			Id:           "m1",
			InternalDate: since.Add(10 * time.Second).UnixMilli(),
			Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Headers:  []*gmail.MessagePartHeader{{Name: "Subject", Value: "Sign in to SEEK"}},
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: body}},
				},
			},
		},
	}}
	client := newTestClient(t, fake)

	code, err := client.FetchVerificationCode(context.Background(), "noreply@seek.com.au", since)

	require.NoError(t, err)
	assert.Equal(t, "482913", code)
	assert.Contains(t, fake.query, "from:noreply@seek.com.au")
	assert.Contains(t, fake.query, "after:1714557540")
}

func Test_FetchVerificationCode_ShouldSkipOlderMessages(t *testing.T) {
	since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	fake := &fakeGmail{messages: map[string]*gmail.Message{
		"old": {
			Id:           "old",
			Snippet:      "Your code is 111111",
			InternalDate: since.Add(-time.Hour).UnixMilli(),
		},
	}}
	client := newTestClient(t, fake)

	code, err := client.FetchVerificationCode(context.Background(), "noreply@seek.com.au", since)

	require.NoError(t, err)
	assert.Empty(t, code)
}

func Test_FetchVerificationCode_WhenNoMessages_ShouldReturnEmpty(t *testing.T) {
	client := newTestClient(t, &fakeGmail{messages: map[string]*gmail.Message{}})

	code, err := client.FetchVerificationCode(context.Background(), "noreply@seek.com.au", time.Now())

	require.NoError(t, err)
	assert.Empty(t, code)
}

func Test_SendApplication_ShouldAttachFiles(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.4 resume"), 0o644))

	fake := &fakeGmail{}
	client := newTestClient(t, fake)
	job := entities.Job{ID: "81234567", Title: "Go Developer", Company: "Acme"}

	err := client.SendApplication(context.Background(), "jobs@acme.com", job, "Dear Acme,\nhello", []string{resume})
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(fake.sent)))
	require.NoError(t, err)
	assert.Equal(t, "jobs@acme.com", msg.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Application for Go Developer", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])

	text, err := reader.NextPart()
	require.NoError(t, err)
	assert.Contains(t, text.Header.Get("Content-Type"), "text/plain")
	textBody := readBase64Part(t, text)
	assert.Equal(t, "Dear Acme,\nhello", textBody)

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "resume.pdf", attachment.FileName())
	assert.Equal(t, "%PDF-1.4 resume", readBase64Part(t, attachment))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func Test_SendApplication_WhenAttachmentMissing_ShouldFailWithoutSending(t *testing.T) {
	fake := &fakeGmail{}
	client := newTestClient(t, fake)

	err := client.SendApplication(context.Background(), "jobs@acme.com", entities.Job{ID: "1"}, "body",
		[]string{filepath.Join(t.TempDir(), "missing.pdf")})

	assert.Error(t, err)
	assert.Nil(t, fake.sent)
}

func readBase64Part(t *testing.T, part *multipart.Part) string {
	raw, err := io.ReadAll(part)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(raw), "\r\n", ""))
	require.NoError(t, err)
	return string(decoded)
}
