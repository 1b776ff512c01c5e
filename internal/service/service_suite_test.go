package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/internal/assemble"
	"github.com/edgecomet/pagesaver/internal/capture"
	"github.com/edgecomet/pagesaver/internal/command"
	"github.com/edgecomet/pagesaver/internal/delivery"
	"github.com/edgecomet/pagesaver/internal/fetch"
	"github.com/edgecomet/pagesaver/internal/inline"
	"github.com/edgecomet/pagesaver/internal/metrics"
	"github.com/edgecomet/pagesaver/internal/sanitize"
	"github.com/edgecomet/pagesaver/internal/service"
	"github.com/edgecomet/pagesaver/internal/session"
)

const originPage = `<!DOCTYPE html>
<html><head><title>Field Notes</title>
<style>p { color: red; }</style>
<script src="https://www.googletagmanager.com/gtag/js"></script>
</head><body>
<div id="article"><p>Observations</p><img src="/pic.png" width="100" height="80" alt="pic"></div>
<div id="sidebar">Links</div>
<div id="drift-widget">chat</div>
</body></html>`

// CommandResult is one /command exchange.
type CommandResult struct {
	StatusCode int
	Body       command.Response
}

// TestEnvironment wires the real pipeline against an httptest origin and an
// in-memory fasthttp listener.
type TestEnvironment struct {
	Origin       *httptest.Server
	Listener     *fasthttputil.InmemoryListener
	Server       *fasthttp.Server
	Client       *fasthttp.Client
	Dispatcher   *command.Dispatcher
	DownloadsDir string
	AnchorDir    string
}

var testEnv *TestEnvironment

func TestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Command Service Suite")
}

var _ = BeforeEach(func() {
	testEnv = NewTestEnvironment()
	DeferCleanup(testEnv.Stop)
})

func pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func NewTestEnvironment() *TestEnvironment {
	logger := zap.NewNop()
	pic := pngBytes()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(originPage))
	})
	mux.HandleFunc("/pic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pic)
	})
	origin := httptest.NewServer(mux)

	env := &TestEnvironment{
		Origin:       origin,
		DownloadsDir: GinkgoT().TempDir(),
		AnchorDir:    GinkgoT().TempDir(),
	}

	mc := metrics.NewMetricsCollectorWithRegistry("pagesaver", metrics.SubsystemSnapshot, prometheus.NewRegistry(), logger)
	fetcher := fetch.New(fetch.DefaultConfig(), nil, logger)
	downloader := delivery.NewFileDownloader(env.DownloadsDir, logger)

	inlineCfg := inline.DefaultConfig()
	inlineCfg.BatchPause = 0
	inlineCfg.SmallRetryDelay = 0
	inliner := inline.New(inlineCfg, fetcher, logger, inline.WithSaver(downloader), inline.WithRecorder(mc))

	pipeline := delivery.NewPipeline(delivery.Config{
		DownloadsDir: env.DownloadsDir,
		AnchorDir:    env.AnchorDir,
		ManualDir:    GinkgoT().TempDir(),
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  2 * time.Second,
	}, downloader,
		delivery.NewAnchorWriter(env.AnchorDir, logger),
		delivery.NewTempFileOpener(GinkgoT().TempDir(), false, logger),
		logger, delivery.WithRecorder(mc))

	sess := session.New(
		capture.NewHTTPCapturer(fetcher, false, logger),
		assemble.New(inliner, sanitize.MustNew(logger), logger),
		pipeline, logger, session.WithRecorder(mc))

	env.Dispatcher = command.NewDispatcher(context.Background(), sess, mc, logger)
	env.Listener = fasthttputil.NewInmemoryListener()
	env.Server = &fasthttp.Server{
		Handler: service.CreateHTTPHandler(env.Dispatcher, sess, 30*time.Second, mc, logger),
	}
	go func() { _ = env.Server.Serve(env.Listener) }()

	env.Client = &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return env.Listener.Dial() },
	}
	return env
}

func (e *TestEnvironment) Stop() {
	e.Dispatcher.Wait()
	_ = e.Server.Shutdown()
	e.Origin.Close()
}

func (e *TestEnvironment) do(method, path string, body []byte) (int, []byte) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://pagesaver" + path)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	Expect(e.Client.DoTimeout(req, resp, 30*time.Second)).To(Succeed())
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

// Command posts a command and decodes the response.
func (e *TestEnvironment) Command(req command.Request) CommandResult {
	body, err := json.Marshal(req)
	Expect(err).NotTo(HaveOccurred())
	status, raw := e.do(fasthttp.MethodPost, service.PathCommand, body)

	var out CommandResult
	out.StatusCode = status
	Expect(json.Unmarshal(raw, &out.Body)).To(Succeed(), string(raw))
	return out
}

func (e *TestEnvironment) Health() service.HealthResponse {
	status, raw := e.do(fasthttp.MethodGet, service.PathHealth, nil)
	Expect(status).To(Equal(fasthttp.StatusOK))
	var out service.HealthResponse
	Expect(json.Unmarshal(raw, &out)).To(Succeed())
	return out
}

func boolPtr(b bool) *bool { return &b }
