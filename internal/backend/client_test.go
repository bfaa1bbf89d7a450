package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTPClient(Config{BaseURL: srv.URL + "/", Timeout: time.Second}, logger)
}

func TestHTTPClient_GetTestDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tests/4/", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":4,"title":"Reading","mode":"exam","time_limit":60,
			"passages":[{"id":1,"title":"P1","content":"a\n\nb","order":1,
			"questions":[{"id":10,"question_text":"Q?","choices":["A","B"],"order":1}]}]}`))
	})

	detail, err := client.GetTestDetail(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.ModeExam, detail.Mode)
	require.Len(t, detail.OrderedQuestions(), 1)
	assert.Equal(t, []string{"a", "b"}, detail.Passages[0].Paragraphs())
}

func TestHTTPClient_SubmitExamPayload(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/attempts/submit/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "sessionid=abc", r.Header.Get("Cookie"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"attempt_id":9,"score":21.5,"correct":3,"total":4,"status":"completed"}`))
	})

	five := 5
	ctx := WithCredentials(context.Background(), Credentials{Cookie: "sessionid=abc"})
	res, err := client.SubmitExam(ctx, SubmitExamRequest{
		AttemptID: 9,
		Answers: []models.SubmittedAnswer{
			{QuestionID: 1, SelectedAnswer: "A", TimeSpent: &five},
			{QuestionID: 2, SelectedAnswer: ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, res.AttemptID)

	answers := got["answers"].([]interface{})
	require.Len(t, answers, 2)
	second := answers[1].(map[string]interface{})
	assert.Equal(t, "", second["selected_answer"])
	assert.Contains(t, second, "time_spent")
	assert.Nil(t, second["time_spent"])
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		call        func(c *HTTPClient) error
		closed      bool
		unauth      bool
		wantMessage string
	}{
		{
			name:   "submit 404 is attempt closed",
			status: http.StatusNotFound,
			body:   `{"detail":"Attempt not found or already completed."}`,
			call: func(c *HTTPClient) error {
				_, err := c.SubmitExam(context.Background(), SubmitExamRequest{AttemptID: 1})
				return err
			},
			closed:      true,
			wantMessage: "Attempt not found or already completed.",
		},
		{
			name:   "test detail 404 is not attempt closed",
			status: http.StatusNotFound,
			body:   `{"detail":"Test not found."}`,
			call: func(c *HTTPClient) error {
				_, err := c.GetTestDetail(context.Background(), 1)
				return err
			},
			wantMessage: "Test not found.",
		},
		{
			name:   "code wins over status",
			status: http.StatusBadRequest,
			body:   `{"error":"done","code":"attempt_completed"}`,
			call: func(c *HTTPClient) error {
				_, err := c.FinishPractice(context.Background(), FinishPracticeRequest{AttemptID: 1})
				return err
			},
			closed:      true,
			wantMessage: "done",
		},
		{
			name:   "401 is unauthenticated",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Authentication required"}`,
			call: func(c *HTTPClient) error {
				_, err := c.StartAttempt(context.Background(), StartAttemptRequest{TestID: 1})
				return err
			},
			unauth:      true,
			wantMessage: "Authentication required",
		},
		{
			name:   "non-json body",
			status: http.StatusInternalServerError,
			body:   `oops`,
			call: func(c *HTTPClient) error {
				_, err := c.SubmitExam(context.Background(), SubmitExamRequest{AttemptID: 1})
				return err
			},
			wantMessage: "submit exam: Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := tt.call(client)
			require.Error(t, err)
			assert.Equal(t, tt.closed, IsAttemptClosed(err))
			assert.Equal(t, tt.unauth, IsUnauthenticated(err))
			assert.Equal(t, tt.wantMessage, Message(err))
		})
	}
}

func TestHTTPClient_Unavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewHTTPClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, logger)

	_, err := client.GetTestDetail(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsAttemptClosed(err))
}

func TestAPIError_WrappedStillClassifies(t *testing.T) {
	err := errors.Join(errors.New("context"), &APIError{Op: opSubmitExam, Status: http.StatusConflict})
	assert.True(t, IsAttemptClosed(err))
}
