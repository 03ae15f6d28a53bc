package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracedApp(t *testing.T) (*fiber.App, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/profile/:username", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/delete/:post_id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusSeeOther) })
	return app, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_NamesSpansByRoute(t *testing.T) {
	app, recorder := setupTracedApp(t)

	tests := []struct {
		path     string
		wantName string
	}{
		{"/", "GET /"},
		{"/profile/alice", "GET /profile/:username"},
		{"/profile/bob", "GET /profile/:username"},
		{"/delete/7", "GET /delete/:post_id"},
		{"/no/such/page", "GET unmatched"},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"), tt.path)
	}

	spans := recorder.Ended()
	require.Len(t, spans, len(tests))
	for i, tt := range tests {
		assert.Equal(t, tt.wantName, spans[i].Name(), tt.path)
		target, ok := spanAttr(spans[i], "http.target")
		require.True(t, ok)
		assert.Equal(t, tt.path, target.AsString())
	}

	status, ok := spanAttr(spans[3], "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(fiber.StatusSeeOther), status.AsInt64())
}

func TestTracingMiddleware_RecordsUserID(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(42))
		return c.Next()
	})
	app.Get("/write", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/write", nil))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /write", spans[0].Name())
	userID, ok := spanAttr(spans[0], "user.id")
	require.True(t, ok)
	assert.Equal(t, "42", userID.AsString())
}
