package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	apperrors "github.com/SAP-F-2025/session-runtime/internal/errors"
	"github.com/SAP-F-2025/session-runtime/internal/metrics"
	"github.com/SAP-F-2025/session-runtime/internal/models"
	"github.com/SAP-F-2025/session-runtime/internal/services"
	"github.com/SAP-F-2025/session-runtime/internal/session"
	"github.com/SAP-F-2025/session-runtime/internal/utils"
)

// MockSessionService for testing
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) StartAttempt(ctx context.Context, req *services.StartAttemptRequest) (*backend.StartAttemptResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*backend.StartAttemptResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Boot(ctx context.Context, req *services.BootSessionRequest) (*session.View, error) {
	args := m.Called(ctx, req)
	return viewOrNil(args)
}

func (m *MockSessionService) Get(ctx context.Context, attemptID int) (*session.View, error) {
	args := m.Called(ctx, attemptID)
	return viewOrNil(args)
}

func (m *MockSessionService) SelectAnswer(ctx context.Context, attemptID int, req *services.AnswerRequest) (*session.View, error) {
	args := m.Called(ctx, attemptID, req)
	return viewOrNil(args)
}

func (m *MockSessionService) Navigate(ctx context.Context, attemptID int, req *services.NavigateRequest) (*session.View, error) {
	args := m.Called(ctx, attemptID, req)
	return viewOrNil(args)
}

func (m *MockSessionService) Submit(ctx context.Context, attemptID int) (*session.View, error) {
	args := m.Called(ctx, attemptID)
	return viewOrNil(args)
}

func (m *MockSessionService) AnswerSheet(ctx context.Context, attemptID int) (*services.AnswerSheet, error) {
	args := m.Called(ctx, attemptID)
	if r := args.Get(0); r != nil {
		return r.(*services.AnswerSheet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Close(ctx context.Context, attemptID int) error {
	return m.Called(ctx, attemptID).Error(0)
}

func (m *MockSessionService) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func viewOrNil(args mock.Arguments) (*session.View, error) {
	if v := args.Get(0); v != nil {
		return v.(*session.View), args.Error(1)
	}
	return nil, args.Error(1)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupRouter(svc services.SessionService, auth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlerManager(svc, metrics.New(prometheus.NewRegistry()), auth, testLogger()).SetupRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(&MockSessionService{}, nil)

	w := doJSON(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session-runtime")
}

func TestSessionHandler_BootExam(t *testing.T) {
	svc := &MockSessionService{}
	svc.On("Boot", mock.MatchedBy(func(ctx context.Context) bool {
		creds, ok := backend.CredentialsFrom(ctx)
		return ok && creds.Cookie == "sessionid=abc"
	}), mock.MatchedBy(func(req *services.BootSessionRequest) bool {
		return req.AttemptID == 7 && req.Mode == models.ModeExam
	})).Return(&session.View{AttemptID: 7, Mode: models.ModeExam}, nil)
	router := setupRouter(svc, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions/exam",
		map[string]interface{}{"attempt_id": 7, "test_id": 4, "mode": "practice"},
		"Cookie", "sessionid=abc")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data session.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Data.AttemptID)
	svc.AssertExpectations(t)
}

func TestSessionHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "validation",
			err: apperrors.ValidationErrors{
				{Field: "attempt_id", Message: "is required", Rule: "required"},
			},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Validation failed", body["message"])
				assert.Len(t, body["details"], 1)
			},
		},
		{
			name: "authentication required",
			err: &services.AuthRequiredError{
				Redirect: "/auth/?next=%2Fexam-reading%2F",
				Err:      backend.ErrUnauthenticated,
			},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, backend.CodeAuthRequired, body["code"])
				details := body["details"].(map[string]interface{})
				assert.Equal(t, "/auth/?next=%2Fexam-reading%2F", details["auth_redirect"])
			},
		},
		{
			name:       "session missing",
			err:        services.ErrSessionNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "another user's session",
			err:        services.ErrSessionForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "rejected input",
			err:        session.ErrInvalidChoice,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "already submitted",
			err:        session.ErrAlreadySubmitted,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "backend down",
			err:        backend.ErrBackendUnavailable,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockSessionService{}
			svc.On("SelectAnswer", mock.Anything, 7, mock.Anything).Return(nil, tt.err)
			router := setupRouter(svc, nil)

			w := doJSON(router, http.MethodPost, "/api/v1/sessions/7/answer",
				map[string]interface{}{"question_id": 101, "choice": "B"})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.check != nil {
				tt.check(t, decodeError(t, w))
			}
		})
	}
}

func TestSessionHandler_InvalidAttemptID(t *testing.T) {
	svc := &MockSessionService{}
	router := setupRouter(svc, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/sessions/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSessionHandler_Navigate(t *testing.T) {
	svc := &MockSessionService{}
	svc.On("Navigate", mock.Anything, 7, &services.NavigateRequest{Direction: services.DirectionNext}).
		Return(&session.View{AttemptID: 7}, nil)
	router := setupRouter(svc, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions/7/navigate", map[string]string{"direction": "next"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSessionHandler_Submit(t *testing.T) {
	svc := &MockSessionService{}
	svc.On("Submit", mock.Anything, 7).Return(&session.View{AttemptID: 7, Phase: session.PhaseSubmitting}, nil)
	router := setupRouter(svc, nil)

	w := doJSON(router, http.MethodPost, "/api/v1/sessions/7/submit", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"phase":"submitting"`)
}

func TestSessionHandler_AnswerSheet(t *testing.T) {
	svc := &MockSessionService{}
	svc.On("AnswerSheet", mock.Anything, 7).
		Return(&services.AnswerSheet{FileName: "attempt-7-answers.xlsx", Data: []byte("xlsx")}, nil)
	router := setupRouter(svc, nil)

	w := doJSON(router, http.MethodGet, "/api/v1/sessions/7/answer-sheet", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="attempt-7-answers.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestSessionHandler_CloseSession(t *testing.T) {
	svc := &MockSessionService{}
	svc.On("Close", mock.Anything, 7).Return(nil)
	router := setupRouter(svc, nil)

	w := doJSON(router, http.MethodDelete, "/api/v1/sessions/7", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	parse := func(token string) (*casdoorsdk.Claims, error) {
		if token != "good" {
			return nil, errors.New("invalid token")
		}
		return &casdoorsdk.Claims{User: casdoorsdk.User{Id: "u-1", Name: "student"}}, nil
	}

	t.Run("missing token", func(t *testing.T) {
		svc := &MockSessionService{}
		router := setupRouter(svc, AuthMiddleware(parse, "/auth/", testLogger()))

		w := doJSON(router, http.MethodGet, "/api/v1/sessions/7", nil,
			"Referer", "https://site.example/exam-reading/?attempt_id=7")

		require.Equal(t, http.StatusUnauthorized, w.Code)
		details := decodeError(t, w)["details"].(map[string]interface{})
		assert.Equal(t, "/auth/?next=%2Fexam-reading%2F%3Fattempt_id%3D7", details["auth_redirect"])
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("invalid token", func(t *testing.T) {
		router := setupRouter(&MockSessionService{}, AuthMiddleware(parse, "/auth/", testLogger()))

		w := doJSON(router, http.MethodGet, "/api/v1/sessions/7", nil, "Authorization", "Bearer bad")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		svc := &MockSessionService{}
		svc.On("Get", mock.MatchedBy(func(ctx context.Context) bool {
			creds, ok := backend.CredentialsFrom(ctx)
			return ok && creds.Subject == "u-1" && creds.Owner() == "user:u-1"
		}), 7).Return(&session.View{AttemptID: 7}, nil)
		router := setupRouter(svc, AuthMiddleware(parse, "/auth/", testLogger()))

		w := doJSON(router, http.MethodGet, "/api/v1/sessions/7", nil, "Authorization", "Bearer good")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("health stays open", func(t *testing.T) {
		router := setupRouter(&MockSessionService{}, AuthMiddleware(parse, "/auth/", testLogger()))

		w := doJSON(router, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
