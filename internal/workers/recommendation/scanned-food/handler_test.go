package scannedfood

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

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) GetRecommendationsForScannedFood(ctx context.Context, userID, foodID string) (*models.ScannedFoodResult, error) {
	args := m.Called(ctx, userID, foodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScannedFoodResult), args.Error(1)
}

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       7,
		Type:      TaskType,
		Retries:   3,
		Variables: string(variablesJSON),
	}}
}

func TestInputSchema(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{name: "valid", variables: map[string]interface{}{"userId": "u1", "foodId": "f1"}},
		{name: "missing food", variables: map[string]interface{}{"userId": "u1"}, wantErr: true},
		{name: "empty user", variables: map[string]interface{}{"userId": "", "foodId": "f1"}, wantErr: true},
		{name: "numeric food id", variables: map[string]interface{}{"userId": "u1", "foodId": 12}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input Input
			err := camunda.DecodeVariables(createMockJob(tt.variables), inputSchema, &input)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Input{UserID: "u1", FoodID: "f1"}, input)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	result := &models.ScannedFoodResult{
		Food:           models.FoodItem{ID: "donut", Name: "Glazed Donut"},
		Recommendation: models.FoodRecommendation{FoodID: "donut", CompatibilityScore: 41.5},
		Compatibility:  models.CompatibilityScore{OverallScore: 41.5},
		Preference:     models.PreferenceCheck{FoodID: "donut", IsCompatible: true, Score: 100},
		MindFork:       models.MindForkFoodScore{FoodID: "donut", Tier: models.TierSootBad},
		Alternatives:   []models.FoodRecommendation{{FoodID: "popcorn", CompatibilityScore: 58}},
	}
	svc := &MockScanner{}
	svc.On("GetRecommendationsForScannedFood", mock.Anything, "u1", "donut").Return(result, nil)

	h, err := NewHandler(nil, svc, logger.NewTestLogger(t))
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), &Input{UserID: "u1", FoodID: "donut"})

	require.NoError(t, err)
	vars := output.Variables()
	assert.Equal(t, true, vars["isCompatible"])
	assert.Equal(t, true, vars["hasBetterAlternative"])
	assert.Equal(t, result.Alternatives, vars["betterAlternatives"])
	assert.Equal(t, result.MindFork, vars["mindforkScore"])
	svc.AssertExpectations(t)
}

func TestHandler_Execute_UnknownFood(t *testing.T) {
	svc := &MockScanner{}
	svc.On("GetRecommendationsForScannedFood", mock.Anything, "u1", "missing").
		Return(nil, errors.NewScannedFoodNotFoundError("missing"))

	h, err := NewHandler(nil, svc, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{UserID: "u1", FoodID: "missing"})

	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	bpmn := errors.ConvertToBPMNError(stdErr)
	assert.Equal(t, "FOOD_NOT_FOUND", bpmn.Code)
	assert.Zero(t, bpmn.Retries)
}
