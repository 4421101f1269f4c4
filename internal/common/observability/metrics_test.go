package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLookup_ExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := NewWithRegisterer("transmission-api-test", reg)
	require.NoError(t, err)
	defer o.Shutdown(context.Background())

	o.RecordLookup(context.Background(), "EXACT", 120*time.Millisecond)
	o.RecordLookup(context.Background(), "NONE", 40*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "lookups_processed")
	assert.Contains(t, joined, "lookups_duration")
}

func TestZeroValueIsSafe(t *testing.T) {
	var o Observability
	assert.NotPanics(t, func() {
		o.RecordLookup(context.Background(), "EXACT", time.Millisecond)
	})
	assert.NoError(t, o.Shutdown(context.Background()))
}
