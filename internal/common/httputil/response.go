// Package httputil holds response helpers shared by the fasthttp services.
package httputil

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// ErrorBody is the JSON shape of routing and transport errors.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// JSONError writes {"success":false,"error":message} with statusCode.
func JSONError(ctx *fasthttp.RequestCtx, message string, statusCode int) {
	body, _ := json.Marshal(ErrorBody{Error: message})
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// NotFound answers an unknown route.
func NotFound(ctx *fasthttp.RequestCtx) {
	JSONError(ctx, "Not Found", fasthttp.StatusNotFound)
}

// MethodNotAllowed answers a known route called with the wrong method.
func MethodNotAllowed(ctx *fasthttp.RequestCtx, allow string) {
	ctx.Response.Header.Set(fasthttp.HeaderAllow, allow)
	JSONError(ctx, "Method Not Allowed", fasthttp.StatusMethodNotAllowed)
}
