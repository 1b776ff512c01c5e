package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestJSONError(t *testing.T) {
	var ctx fasthttp.RequestCtx
	JSONError(&ctx, "boom", fasthttp.StatusBadGateway)

	assert.Equal(t, fasthttp.StatusBadGateway, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, string(ctx.Response.Body()))
}

func TestRoutingErrors(t *testing.T) {
	var ctx fasthttp.RequestCtx
	NotFound(&ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())

	ctx = fasthttp.RequestCtx{}
	MethodNotAllowed(&ctx, fasthttp.MethodPost)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
	assert.Equal(t, "POST", string(ctx.Response.Header.Peek(fasthttp.HeaderAllow)))
}
