package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/models"
)

// Client is a testify mock of backend.Client.
type Client struct {
	mock.Mock
}

func (m *Client) GetTestDetail(ctx context.Context, testID int) (*models.TestDetail, error) {
	args := m.Called(ctx, testID)
	if d := args.Get(0); d != nil {
		return d.(*models.TestDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) StartAttempt(ctx context.Context, req backend.StartAttemptRequest) (*backend.StartAttemptResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*backend.StartAttemptResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) SubmitExam(ctx context.Context, req backend.SubmitExamRequest) (*backend.AttemptResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*backend.AttemptResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) AnswerPractice(ctx context.Context, req backend.PracticeAnswerRequest) (*backend.PracticeAnswerResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*backend.PracticeAnswerResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) FinishPractice(ctx context.Context, req backend.FinishPracticeRequest) (*backend.AttemptResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*backend.AttemptResult), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ backend.Client = (*Client)(nil)
