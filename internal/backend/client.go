package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/SAP-F-2025/session-runtime/internal/models"
)

const (
	opGetTestDetail  = "get test detail"
	opStartAttempt   = "start attempt"
	opSubmitExam     = "submit exam"
	opAnswerPractice = "answer practice"
	opFinishPractice = "finish practice"
)

// Client is the assessment backend as seen by a session.
type Client interface {
	GetTestDetail(ctx context.Context, testID int) (*models.TestDetail, error)
	StartAttempt(ctx context.Context, req StartAttemptRequest) (*StartAttemptResponse, error)
	SubmitExam(ctx context.Context, req SubmitExamRequest) (*AttemptResult, error)
	AnswerPractice(ctx context.Context, req PracticeAnswerRequest) (*PracticeAnswerResponse, error)
	FinishPractice(ctx context.Context, req FinishPracticeRequest) (*AttemptResult, error)
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	h := &http.Client{}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    h,
		limiter: limiter,
		logger:  logger,
	}
}

func (c *HTTPClient) GetTestDetail(ctx context.Context, testID int) (*models.TestDetail, error) {
	var out models.TestDetail
	if err := c.do(ctx, opGetTestDetail, http.MethodGet, fmt.Sprintf("/tests/%d/", testID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) StartAttempt(ctx context.Context, req StartAttemptRequest) (*StartAttemptResponse, error) {
	var out StartAttemptResponse
	if err := c.do(ctx, opStartAttempt, http.MethodPost, "/attempts/start/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SubmitExam(ctx context.Context, req SubmitExamRequest) (*AttemptResult, error) {
	var out AttemptResult
	if err := c.do(ctx, opSubmitExam, http.MethodPost, "/attempts/submit/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AnswerPractice(ctx context.Context, req PracticeAnswerRequest) (*PracticeAnswerResponse, error) {
	var out PracticeAnswerResponse
	if err := c.do(ctx, opAnswerPractice, http.MethodPost, "/attempts/answer/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FinishPractice(ctx context.Context, req FinishPracticeRequest) (*AttemptResult, error) {
	var out AttemptResult
	if err := c.do(ctx, opFinishPractice, http.MethodPost, "/attempts/finish/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	applyCredentials(ctx, req)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "path", path, "error", err)
		return fmt.Errorf("%s: %w: %v", op, ErrBackendUnavailable, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s: %w: read body: %v", op, ErrBackendUnavailable, err)
	}
	c.logger.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"duration", time.Since(start))

	if res.StatusCode/100 != 2 {
		return decodeAPIError(op, res.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func decodeAPIError(op string, status int, data []byte) *APIError {
	apiErr := &APIError{Op: op, Status: status}
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
		Code   string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Detail = body.Detail
		if apiErr.Detail == "" {
			apiErr.Detail = body.Error
		}
	}
	return apiErr
}
