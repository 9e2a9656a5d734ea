package recordinteraction

import (
	"context"
	"encoding/json"
	"testing"

	"mindfork-recommender/internal/common/camunda"
	"mindfork-recommender/internal/common/errors"
	"mindfork-recommender/internal/common/logger"
	"mindfork-recommender/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordFoodSelection(ctx context.Context, userID, foodID, recommendationID string) string {
	return m.Called(ctx, userID, foodID, recommendationID).String(0)
}

func (m *MockRecorder) RecordFeedback(ctx context.Context, userID, foodID string, rating int, comment string) string {
	return m.Called(ctx, userID, foodID, rating, comment).String(0)
}

func (m *MockRecorder) RecordInteraction(ctx context.Context, userID, foodID string, kind models.InteractionType, payload map[string]interface{}) string {
	return m.Called(ctx, userID, foodID, kind, payload).String(0)
}

func newTestHandler(t *testing.T, svc Recorder) *Handler {
	t.Helper()
	h, err := NewHandler(nil, svc, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name   string
		input  *Input
		expect func(m *MockRecorder)
		wantID string
	}{
		{
			name:  "selection",
			input: &Input{UserID: "u1", FoodID: "tofu", InteractionType: models.InteractionSelected, RecommendationID: "rec-1"},
			expect: func(m *MockRecorder) {
				m.On("RecordFoodSelection", mock.Anything, "u1", "tofu", "rec-1").Return("id-1")
			},
			wantID: "id-1",
		},
		{
			name:  "feedback",
			input: &Input{UserID: "u1", FoodID: "tofu", InteractionType: models.InteractionFeedback, Rating: 5, Comment: "great"},
			expect: func(m *MockRecorder) {
				m.On("RecordFeedback", mock.Anything, "u1", "tofu", 5, "great").Return("id-2")
			},
			wantID: "id-2",
		},
		{
			name:  "ignored with recommendation",
			input: &Input{UserID: "u1", FoodID: "kale", InteractionType: models.InteractionIgnored, RecommendationID: "rec-9"},
			expect: func(m *MockRecorder) {
				m.On("RecordInteraction", mock.Anything, "u1", "kale", models.InteractionIgnored,
					map[string]interface{}{"recommendationId": "rec-9"}).Return("id-3")
			},
			wantID: "id-3",
		},
		{
			name:  "viewed",
			input: &Input{UserID: "u1", FoodID: "kale", InteractionType: models.InteractionViewed},
			expect: func(m *MockRecorder) {
				m.On("RecordInteraction", mock.Anything, "u1", "kale", models.InteractionViewed,
					map[string]interface{}(nil)).Return("id-4")
			},
			wantID: "id-4",
		},
		{
			name:  "write failed",
			input: &Input{UserID: "u1", FoodID: "tofu", InteractionType: models.InteractionSelected},
			expect: func(m *MockRecorder) {
				m.On("RecordFoodSelection", mock.Anything, "u1", "tofu", "").Return("")
			},
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockRecorder{}
			tt.expect(svc)
			h := newTestHandler(t, svc)

			output, err := h.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, map[string]interface{}{
				"interactionId":       tt.wantID,
				"interactionRecorded": tt.wantID != "",
			}, output.Variables())
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_FeedbackNeedsRating(t *testing.T) {
	svc := &MockRecorder{}
	h := newTestHandler(t, svc)

	_, err := h.Execute(context.Background(), &Input{UserID: "u1", FoodID: "tofu", InteractionType: models.InteractionFeedback})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	svc.AssertNotCalled(t, "RecordFeedback", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInputSchema(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{name: "valid feedback", variables: map[string]interface{}{"userId": "u1", "foodId": "f1", "interactionType": "feedback", "rating": 3}},
		{name: "unknown type", variables: map[string]interface{}{"userId": "u1", "foodId": "f1", "interactionType": "liked"}, wantErr: true},
		{name: "rating out of range", variables: map[string]interface{}{"userId": "u1", "foodId": "f1", "interactionType": "feedback", "rating": 6}, wantErr: true},
		{name: "missing type", variables: map[string]interface{}{"userId": "u1", "foodId": "f1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(tt.variables)
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Variables: string(raw)}}

			var input Input
			err := camunda.DecodeVariables(job, inputSchema, &input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, input.Rating)
		})
	}
}
