package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transmission-api/internal/common/logger"
	"transmission-api/internal/filter"
	"transmission-api/internal/lookup"
)

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)

	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, log, "test op")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("nope")
	}, 2, time.Millisecond, log, "test op")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test op failed after 2 attempts")
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retryWithBackoff(ctx, func() error { return errors.New("down") }, 3, time.Hour, log, "test op")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintResult(t *testing.T) {
	res := &lookup.Result{Reply: "Para Accord:<br>- <b>BAXA</b>", Tier: filter.TierExact, CandidateCount: 1}

	var plain bytes.Buffer
	require.NoError(t, printResult(&plain, res, false))
	assert.Equal(t, "Para Accord:\n- BAXA\n", plain.String())

	var js bytes.Buffer
	require.NoError(t, printResult(&js, res, true))
	assert.Contains(t, js.String(), `"tier": "EXACT"`)
	assert.Contains(t, js.String(), `"candidateCount": 1`)

	assert.NoError(t, printResult(&plain, nil, false))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "lookup", "models", "probe"} {
		assert.True(t, names[want], want)
	}
}
