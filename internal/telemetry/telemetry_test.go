package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Init(ExporterStdout, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "cart.Fetch")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "cart.Fetch")
}

func TestInit_None(t *testing.T) {
	shutdown, err := Init(ExporterNone, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = Init("jaeger", nil)
	assert.Error(t, err)
}
