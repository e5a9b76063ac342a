package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/config"
)

func TestInitHonoursDisabledSignals(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.ServiceName = "counsel"

	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, p.tracer)
	assert.Nil(t, p.meter)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitTracingWithoutExporter(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.ServiceName = "counsel"
	cfg.Observability.Tracing.Enabled = true
	cfg.Observability.Tracing.SamplingRate = 5

	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p.tracer)
	assert.NoError(t, p.Shutdown(context.Background()))
}
