package lookuptransmission

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"transmission-api/internal/catalog"
	"transmission-api/internal/common/config"
	"transmission-api/internal/common/errors"
	"transmission-api/internal/common/logger"
	"transmission-api/internal/filter"
	"transmission-api/internal/lookup"
	"transmission-api/internal/query"
)

type MockLooker struct {
	mock.Mock
}

func (m *MockLooker) Lookup(ctx context.Context, raw string) (*lookup.Result, error) {
	args := m.Called(ctx, raw)
	var res *lookup.Result
	if r := args.Get(0); r != nil {
		res = r.(*lookup.Result)
	}
	return res, args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "transmission-lookup",
		ElementId:          "Activity_LookupTransmission",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, looker Looker) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 2, Timeout: 5 * time.Second},
		Lookup:       looker,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{"valid", HandlerOptions{CustomConfig: DefaultConfig(), Lookup: &MockLooker{}}, ""},
		{"invalid timeout", HandlerOptions{CustomConfig: &Config{MaxJobsActive: 1}, Lookup: &MockLooker{}}, "timeout must be positive"},
		{"invalid max jobs", HandlerOptions{CustomConfig: &Config{Timeout: time.Second}, Lookup: &MockLooker{}}, "max_jobs_active must be positive"},
		{"missing lookup", HandlerOptions{CustomConfig: DefaultConfig()}, "requires a lookup service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
			assert.True(t, h.IsEnabled())
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	cfg := createConfigFromAppConfig(&config.Config{Camunda: config.CamundaConfig{
		Enabled:        true,
		MaxJobsActive:  8,
		Timeout:        15000,
		RequestTimeout: 2000,
	}}, nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 8, cfg.MaxJobsActive)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)

	defaults := createConfigFromAppConfig(&config.Config{}, nil)
	assert.False(t, defaults.Enabled)
	assert.Equal(t, 5, defaults.MaxJobsActive)
	assert.Equal(t, 30*time.Second, defaults.Timeout)

	custom := &Config{Timeout: time.Second, MaxJobsActive: 1}
	assert.Same(t, custom, createConfigFromAppConfig(&config.Config{}, custom))
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, &MockLooker{})

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{"query": "Accord 2000", "other": true}))
	require.NoError(t, err)
	assert.Equal(t, "Accord 2000", input.Query)

	tests := []struct {
		name string
		vars map[string]interface{}
	}{
		{"missing query", map[string]interface{}{"other": "x"}},
		{"wrong type", map[string]interface{}{"query": 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(2, tt.vars))
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidQuery, errors.Normalize(err).Code)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	looker := &MockLooker{}
	looker.On("Lookup", mock.Anything, "Accord 2000").Return(&lookup.Result{
		Reply:          "<b>BAXA</b>",
		Tier:           filter.TierExact,
		CandidateCount: 3,
	}, nil)
	looker.On("Lookup", mock.Anything, "Jeta 2001").Return(&lookup.Result{
		Reply:      "¿Quisiste decir <b>VOLKSWAGEN JETTA 2001</b>?",
		Suggestion: "VOLKSWAGEN JETTA 2001",
		Tier:       filter.TierNone,
	}, nil)
	looker.On("Lookup", mock.Anything, "Accord 1999").Return(&lookup.Result{
		Reply:    lookup.MsgRateLimited,
		Tier:     filter.TierExact,
		Degraded: true,
	}, nil)
	h := newTestHandler(t, looker)
	ctx := context.Background()

	out, err := h.Execute(ctx, &Input{Query: "Accord 2000"})
	require.NoError(t, err)
	assert.Equal(t, &Output{Reply: "<b>BAXA</b>", Tier: "EXACT", CandidateCount: 3}, out)

	out, err = h.Execute(ctx, &Input{Query: "Jeta 2001"})
	require.NoError(t, err)
	assert.Equal(t, "NONE", out.Tier)
	assert.Equal(t, "VOLKSWAGEN JETTA 2001", out.ToVariables()["suggestion"])

	out, err = h.Execute(ctx, &Input{Query: "Accord 1999"})
	require.NoError(t, err)
	assert.True(t, out.Degraded)

	looker.AssertExpectations(t)
}

func TestHandler_ExecuteFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    errors.ErrorCode
		wantRetries int
	}{
		{"invalid query is terminal", query.ErrInvalidQuery, errors.ErrCodeInvalidQuery, 0},
		{"catalog outage is retried", fmt.Errorf("%w: dial tcp", catalog.ErrCatalogUnavailable), errors.ErrCodeCatalogUnavailable, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			looker := &MockLooker{}
			looker.On("Lookup", mock.Anything, "q").Return(&lookup.Result{Reply: "x"}, tt.err)
			h := newTestHandler(t, looker)

			out, err := h.Execute(context.Background(), &Input{Query: "q"})
			assert.Nil(t, out)
			require.Error(t, err)
			stdErr := errors.Normalize(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantRetries, errors.ConvertToBPMNError(stdErr).Retries)
		})
	}
}

func TestOutput_ToVariables(t *testing.T) {
	vars := (&Output{Reply: "r", Tier: "RELAXED", CandidateCount: 1}).ToVariables()
	assert.Equal(t, map[string]interface{}{
		"reply":          "r",
		"tier":           "RELAXED",
		"candidateCount": 1,
		"degraded":       false,
	}, vars)
}

func TestHandler_RegisterDisabled(t *testing.T) {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: false, MaxJobsActive: 1, Timeout: time.Second},
		Lookup:       &MockLooker{},
		Logger:       logger.NewNoOpLogger(),
	})
	require.NoError(t, err)
	assert.NoError(t, h.Register())
	assert.NoError(t, h.HealthCheck(context.Background()))
	h.Close()

	h.config.Enabled = true
	assert.Error(t, h.Register())
}
