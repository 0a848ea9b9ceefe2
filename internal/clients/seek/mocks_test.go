package seek

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const testGraphQLURL = "https://www.seek.com.au/graphql"

func newTestClient(t *testing.T) *Client {
	client, err := NewClient()
	require.NoError(t, err)
	return client
}

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if f, ok := args.Get(0).(func(*http.Request) (*http.Response, error)); ok {
		return f(req)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

type mockCodeFetcher struct {
	mock.Mock
}

func (m *mockCodeFetcher) FetchVerificationCode(ctx context.Context, sender string, since time.Time) (string, error) {
	args := m.Called(ctx, sender, since)
	return args.String(0), args.Error(1)
}

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) LoadRefreshToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockTokenStore) SaveRefreshToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type staticToken string

func (s staticToken) AccessToken() string {
	return string(s)
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("can't read testdata %s: %v", name, err)
	}
	return data
}

// respondWith builds a fresh response per call so repeated matches don't share a drained body.
func respondWith(t *testing.T, status int, file string) func(*http.Request) (*http.Response, error) {
	var body []byte
	if file != "" {
		body = readTestdata(t, file)
	}
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader(body)),
			Request:    req,
		}, nil
	}
}

func requestBody(req *http.Request) []byte {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	return data
}

func operationOf(req *http.Request) (Operation, bool) {
	if req.URL.String() != testGraphQLURL {
		return Operation{}, false
	}
	var ops []Operation
	if err := json.Unmarshal(requestBody(req), &ops); err != nil || len(ops) != 1 {
		return Operation{}, false
	}
	return ops[0], true
}

func isOperation(name string) func(*http.Request) bool {
	return func(req *http.Request) bool {
		op, ok := operationOf(req)
		return ok && op.Name == name
	}
}

func noSleep(context.Context, time.Duration) error {
	return nil
}
