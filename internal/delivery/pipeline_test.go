package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edgecomet/pagesaver/pkg/types"
)

type stuckDownloader struct {
	state       DownloadState
	downloadErr error
	calls       int
}

func (d *stuckDownloader) Download(context.Context, DownloadRequest) (DownloadID, error) {
	d.calls++
	if d.downloadErr != nil {
		return "", d.downloadErr
	}
	return "dl-1", nil
}

func (d *stuckDownloader) State(context.Context, DownloadID) (DownloadState, string, error) {
	return d.state, "", nil
}

type fakeAnchor struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (a *fakeAnchor) Save(_ context.Context, filename string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, filename)
	return a.err
}

type fakeManual struct {
	calls int
	err   error
}

func (m *fakeManual) Present(context.Context, string, []byte) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "/tmp/pagesaver-1-page.html", nil
}

type conversion struct{ html, pdf string }

type fakeConverter struct {
	calls []conversion
	err   error
}

func (c *fakeConverter) Convert(_ context.Context, htmlPath, outputFilename string) (string, error) {
	c.calls = append(c.calls, conversion{htmlPath, outputFilename})
	if c.err != nil {
		return "", c.err
	}
	return `{"status":"ok"}`, nil
}

func testConfig(t *testing.T) Config {
	return Config{
		DownloadsDir: t.TempDir(),
		AnchorDir:    "/home/tester/Downloads",
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  100 * time.Millisecond,
	}
}

var snapshot = &types.AssembledDocument{
	HTML:              "<!DOCTYPE html>\n<html><body>hi</body></html>",
	SuggestedFilename: "Report_Q1Q2_full.html",
	Mode:              types.ModeFull,
}

func TestDeliver_PrimaryDownload(t *testing.T) {
	cfg := testConfig(t)
	dl := NewFileDownloader(cfg.DownloadsDir, zap.NewNop())
	anchor := &fakeAnchor{}
	conv := &fakeConverter{}
	p := NewPipeline(cfg, dl, anchor, &fakeManual{}, zap.NewNop(), WithConverter(conv))

	out := p.Deliver(context.Background(), snapshot)

	want := filepath.Join(cfg.DownloadsDir, "Report_Q1Q2_full.html")
	assert.True(t, out.Saved)
	assert.Equal(t, types.TierDownload, out.Tier)
	assert.Equal(t, want, out.Path)
	assert.False(t, out.PathGuessed)
	assert.Equal(t, `{"status":"ok"}`, out.PDF)
	assert.Empty(t, anchor.calls)
	assert.Equal(t, []conversion{{want, "Report_Q1Q2_full.pdf"}}, conv.calls)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, snapshot.HTML, string(data))
}

func TestDeliver_PrimaryFailsUsesAnchorOnce(t *testing.T) {
	anchor := &fakeAnchor{}
	conv := &fakeConverter{}
	manual := &fakeManual{}
	primary := &stuckDownloader{downloadErr: errors.New("downloads API unavailable")}
	p := NewPipeline(testConfig(t), primary, anchor, manual, zap.NewNop(), WithConverter(conv))

	out := p.Deliver(context.Background(), snapshot)

	assert.True(t, out.Saved)
	assert.Equal(t, types.TierAnchor, out.Tier)
	assert.True(t, out.PathGuessed)
	assert.Equal(t, "/home/tester/Downloads/Report_Q1Q2_full.html", out.Path)
	assert.Equal(t, "primary download: download failed: downloads API unavailable", out.Reason)
	assert.Equal(t, []string{"Report_Q1Q2_full.html"}, anchor.calls)
	assert.Zero(t, manual.calls)
	assert.Equal(t, []conversion{{"/home/tester/Downloads/Report_Q1Q2_full.html", "Report_Q1Q2_full.pdf"}}, conv.calls)
}

func TestDeliver_DownloadNeverCompletes(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	anchor := &fakeAnchor{}
	primary := &stuckDownloader{state: DownloadInProgress}
	p := NewPipeline(testConfig(t), primary, anchor, &fakeManual{}, zap.New(core))

	start := time.Now()
	out := p.Deliver(context.Background(), snapshot)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, types.TierAnchor, out.Tier)
	assert.Contains(t, out.Reason, ErrDownloadTimeout.Error())
	assert.Len(t, anchor.calls, 1)

	warned := logs.FilterMessage("Primary download failed, trying anchor download").All()
	require.Len(t, warned, 1)
	err, ok := warned[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, err, ErrDownloadTimeout.Error())
}

func TestDeliver_AnchorCarriesSavedResources(t *testing.T) {
	cfg := testConfig(t)
	cfg.AnchorDir = t.TempDir()
	saver := NewFileDownloader(cfg.DownloadsDir, zap.NewNop())
	_, err := saver.SaveResource(context.Background(), "Report_Q1Q2_files/bg_img_0_tile.png", []byte("png"))
	require.NoError(t, err)

	doc := *snapshot
	doc.ResourceFolder = "Report_Q1Q2_files"
	primary := &stuckDownloader{state: DownloadInProgress}
	p := NewPipeline(cfg, primary, NewAnchorWriter(cfg.AnchorDir, zap.NewNop()), &fakeManual{}, zap.NewNop())

	out := p.Deliver(context.Background(), &doc)
	require.True(t, out.Saved)
	assert.Equal(t, types.TierAnchor, out.Tier)
	assert.Equal(t, filepath.Join(cfg.AnchorDir, "Report_Q1Q2_full.html"), out.Path)

	data, err := os.ReadFile(filepath.Join(cfg.AnchorDir, "Report_Q1Q2_files", "bg_img_0_tile.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestDeliver_AnchorDefaultsToDownloadsDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.AnchorDir = ""
	saver := NewFileDownloader(cfg.DownloadsDir, zap.NewNop())
	_, err := saver.SaveResource(context.Background(), "Report_Q1Q2_files/bg_img_0_tile.png", []byte("png"))
	require.NoError(t, err)

	doc := *snapshot
	doc.ResourceFolder = "Report_Q1Q2_files"
	p := NewPipeline(cfg,
		&stuckDownloader{downloadErr: errors.New("no api")},
		NewAnchorWriter(cfg.EffectiveAnchorDir(), zap.NewNop()),
		&fakeManual{}, zap.NewNop())

	out := p.Deliver(context.Background(), &doc)
	require.True(t, out.Saved)
	assert.Equal(t, filepath.Join(cfg.DownloadsDir, "Report_Q1Q2_full.html"), out.Path)
	assert.FileExists(t, out.Path)
	assert.FileExists(t, filepath.Join(filepath.Dir(out.Path), "Report_Q1Q2_files", "bg_img_0_tile.png"))
}

func TestDownload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		primary *stuckDownloader
		want    error
	}{
		{"never completes", &stuckDownloader{state: DownloadInProgress}, ErrDownloadTimeout},
		{"interrupted", &stuckDownloader{state: DownloadInterrupted}, ErrDownloadFailed},
		{"rejected", &stuckDownloader{downloadErr: errors.New("nope")}, ErrDownloadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(testConfig(t), tt.primary, &fakeAnchor{}, &fakeManual{}, zap.NewNop())
			_, err := p.download(context.Background(), "a.html", []byte("x"))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, tt.primary.calls)
		})
	}
}

func TestDeliver_ManualFallback(t *testing.T) {
	conv := &fakeConverter{}
	manual := &fakeManual{}
	p := NewPipeline(testConfig(t),
		&stuckDownloader{downloadErr: errors.New("no api")},
		&fakeAnchor{err: errors.New("blocked")},
		manual, zap.NewNop(), WithConverter(conv))

	out := p.Deliver(context.Background(), snapshot)
	assert.False(t, out.Saved)
	assert.Equal(t, types.TierManual, out.Tier)
	assert.Equal(t, "/tmp/pagesaver-1-page.html", out.Path)
	assert.Contains(t, out.Reason, "Please save manually")
	assert.Equal(t, 1, manual.calls)
	assert.Empty(t, conv.calls)

	manual.err = errors.New("disk full")
	out = p.Deliver(context.Background(), snapshot)
	assert.False(t, out.Saved)
	assert.Contains(t, out.Reason, ErrDownloadFailed.Error())
}

func TestDeliver_ConversionFailureIsSoft(t *testing.T) {
	cfg := testConfig(t)
	conv := &fakeConverter{err: errors.New("connection refused")}
	p := NewPipeline(cfg, NewFileDownloader(cfg.DownloadsDir, zap.NewNop()), &fakeAnchor{}, &fakeManual{}, zap.NewNop(), WithConverter(conv))

	out := p.Deliver(context.Background(), snapshot)
	assert.True(t, out.Saved)
	assert.Empty(t, out.PDF)
	assert.Len(t, conv.calls, 1)
}

func TestPDFFilename(t *testing.T) {
	assert.Equal(t, "a_full.pdf", PDFFilename("a_full.html"))
	assert.Equal(t, "a.pdf", PDFFilename("a.HTM"))
	assert.Equal(t, "notes.txt.pdf", PDFFilename("notes.txt"))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{PollInterval: time.Second, PollTimeout: time.Second}.Validate())
	assert.Error(t, Config{DownloadsDir: "/tmp/x", PollInterval: time.Second, PollTimeout: time.Millisecond}.Validate())

	assert.Equal(t, "/tmp/x", Config{DownloadsDir: "/tmp/x"}.EffectiveAnchorDir())
	assert.Equal(t, "/tmp/y", Config{DownloadsDir: "/tmp/x", AnchorDir: "/tmp/y"}.EffectiveAnchorDir())
}
