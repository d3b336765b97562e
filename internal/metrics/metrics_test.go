package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefault_Idempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	OptimizerRuns.WithLabelValues("local-search", "succeeded").Inc()

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
		if f.GetName() == "optimizer_runs_total" {
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, names["optimizer_runs_total"])
	assert.True(t, names["go_goroutines"])
}
