package services

import (
	"context"
	"errors"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

type mockAiClient struct {
	mock.Mock
}

func (m *mockAiClient) GenerateResponse(ctx context.Context, request string) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

func isReviewRequest(request string) bool {
	return strings.HasPrefix(request, "You are an editor")
}

func Test_AIService_DraftCoverLetter_ShouldReviewAndCleanDraft(t *testing.T) {

	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(request string) bool {
		return !isReviewRequest(request) &&
			strings.Contains(request, "Company to address: Hiring Manager") &&
			strings.Contains(request, "Australian English")
	})).Return("```\nDear [Company Name] team,\nFirst draft.\n```", nil).Once()
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(request string) bool {
		return isReviewRequest(request) && strings.Contains(request, "Dear  team,\nFirst draft.")
	})).Return("```text\n[Date]\nDear Hiring Manager,\n\nI build Go services.\n\nSincerely,\n```", nil).Once()

	service := NewAIService(ai, "Alex")
	job := entities.Job{ID: "1", Title: "Go Developer", DescriptionSections: []string{"Go", "Kubernetes"}}

	letter, err := service.DraftCoverLetter(context.Background(), job, "resume", true)

	require.NoError(t, err)
	assert.Equal(t, "Dear Hiring Manager,\n\nI build Go services.\n\nSincerely,", letter)
	ai.AssertExpectations(t)
}

func Test_AIService_DraftCoverLetter_WhenReviewFails_ShouldReturnError(t *testing.T) {

	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(request string) bool {
		return !isReviewRequest(request)
	})).Return("Dear Hiring Manager,", nil)
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(isReviewRequest)).Return("", errors.New("Error 500"))

	_, err := NewAIService(ai, "Alex").DraftCoverLetter(context.Background(), entities.Job{ID: "1"}, "resume", false)

	assert.ErrorContains(t, err, "error reviewing cover letter")
}

func Test_AIService_DraftCoverLetter_WithoutAustralianEnglish_ShouldNotAskForIt(t *testing.T) {

	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(request string) bool {
		return !isReviewRequest(request) && !strings.Contains(request, "Australian English")
	})).Return("Dear Hiring Manager,", nil)
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(isReviewRequest)).Return("Dear Hiring Manager,", nil)

	letter, err := NewAIService(ai, "Alex").DraftCoverLetter(context.Background(), entities.Job{ID: "1"}, "resume", false)

	require.NoError(t, err)
	assert.Equal(t, "Dear Hiring Manager,", letter)
}

func Test_AIService_DraftCoverLetter_WhenOnlyPlaceholdersReturned_ShouldFail(t *testing.T) {

	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return("[Cover letter]", nil)

	_, err := NewAIService(ai, "Alex").DraftCoverLetter(context.Background(), entities.Job{ID: "1"}, "resume", false)

	assert.ErrorContains(t, err, "empty")
}

func Test_AIService_DraftEmailBody_ShouldBeSignedByApplicant(t *testing.T) {

	ai := &mockAiClient{}
	ai.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(request string) bool {
		return strings.HasSuffix(request, "Best regards\nAlex")
	})).Return("Dear Hiring Manager,\nPlease find my resume and cover letter attached.", nil).Once()
	ai.On("GenerateResponse", mock.Anything, mock.Anything).Return("Dear Hiring Manager,\nAttached.\nBest regards\nAlex", nil).Once()

	service := NewAIService(ai, "Alex")

	unsigned, err := service.DraftEmailBody(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dear Hiring Manager,\nPlease find my resume and cover letter attached.\n\nBest regards\nAlex", unsigned)

	signed, err := service.DraftEmailBody(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dear Hiring Manager,\nAttached.\nBest regards\nAlex", signed)
}
