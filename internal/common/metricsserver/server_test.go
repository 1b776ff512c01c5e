package metricsserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/common/configtypes"
)

type stubMetrics struct {
	calls int
}

func (s *stubMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	s.calls++
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("pagesaver_snapshots_total 1\n")
}

func TestStart_Disabled(t *testing.T) {
	m := &stubMetrics{}
	server := Start(configtypes.MetricsConfig{Enabled: false}, m, zap.NewNop())
	assert.Nil(t, server)
}

func TestNewHandler(t *testing.T) {
	m := &stubMetrics{}
	h := NewHandler("/metrics", m)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics")
	h(&ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "pagesaver_snapshots_total")
	assert.Equal(t, 1, m.calls)

	var other fasthttp.RequestCtx
	other.Request.SetRequestURI("/other")
	h(&other)
	assert.Equal(t, fasthttp.StatusNotFound, other.Response.StatusCode())
	assert.Equal(t, 1, m.calls)
}
