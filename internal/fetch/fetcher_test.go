package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapCache) Set(_ context.Context, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
}

func newOrigin(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGet_SameOriginReadable(t *testing.T) {
	srv := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})
	f := New(DefaultConfig(), nil, zap.NewNop())

	resp, err := f.Get(context.Background(), Request{URL: srv.URL + "/a.png", PageURL: srv.URL + "/page"})
	require.NoError(t, err)
	assert.True(t, resp.Readable)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, []byte("png-bytes"), resp.Body)
}

func TestGet_CrossOriginRules(t *testing.T) {
	page := "https://page.example"
	tests := []struct {
		name       string
		allow      string
		creds      bool
		mode       Mode
		wantRead   bool
		wantOrigin bool
	}{
		{name: "anonymous wildcard", allow: "*", mode: ModeAnonymous, wantRead: true, wantOrigin: true},
		{name: "anonymous exact", allow: page, mode: ModeAnonymous, wantRead: true, wantOrigin: true},
		{name: "anonymous missing header", mode: ModeAnonymous, wantRead: false, wantOrigin: true},
		{name: "credentials needs exact origin", allow: "*", creds: true, mode: ModeUseCredentials, wantRead: false, wantOrigin: true},
		{name: "credentials ok", allow: page, creds: true, mode: ModeUseCredentials, wantRead: true, wantOrigin: true},
		{name: "no-cors is opaque", allow: "*", mode: ModeNone, wantRead: false, wantOrigin: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origins := make(chan string, 2)
			srv := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
				origins <- r.Header.Get("Origin")
				if tt.allow != "" {
					w.Header().Set("Access-Control-Allow-Origin", tt.allow)
				}
				if tt.creds {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				_, _ = w.Write([]byte("body"))
			})
			f := New(DefaultConfig(), nil, zap.NewNop())

			resp, err := f.Get(context.Background(), Request{URL: srv.URL + "/x", PageURL: page + "/index.html", Mode: tt.mode})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRead, resp.Readable)
			assert.Equal(t, tt.wantOrigin, <-origins != "")

			_, err = f.GetReadable(context.Background(), Request{URL: srv.URL + "/x", PageURL: page + "/index.html", Mode: tt.mode})
			if tt.wantRead {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrCrossOriginDenied)
			}
		})
	}
}

func TestGet_Failures(t *testing.T) {
	srv := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			_, _ = w.Write(make([]byte, 64))
		}
	})
	f := New(Config{MaxBytes: 32}, nil, zap.NewNop())
	ctx := context.Background()

	_, err := f.Get(ctx, Request{URL: srv.URL + "/missing"})
	assert.ErrorIs(t, err, ErrResourceFetch)

	_, err = f.Get(ctx, Request{URL: srv.URL + "/empty"})
	assert.ErrorIs(t, err, ErrResourceFetch)

	_, err = f.Get(ctx, Request{URL: srv.URL + "/big"})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Get(ctx, Request{URL: "http://127.0.0.1:1/unreachable"})
	assert.ErrorIs(t, err, ErrResourceFetch)
}

func TestGet_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/css")
		_, _ = w.Write([]byte("p{color:red}"))
	})
	cache := &mapCache{data: map[string][]byte{}}
	f := New(DefaultConfig(), cache, zap.NewNop())

	for i := 0; i < 3; i++ {
		resp, err := f.Get(context.Background(), Request{URL: srv.URL + "/s.css", PageURL: srv.URL})
		require.NoError(t, err)
		assert.Equal(t, "p{color:red}", string(resp.Body))
		assert.Equal(t, i > 0, resp.FromCache)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_CacheSeparatesModes(t *testing.T) {
	var hits atomic.Int32
	srv := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		_, _ = w.Write([]byte("img"))
	})
	cache := &mapCache{data: map[string][]byte{}}
	f := New(DefaultConfig(), cache, zap.NewNop())
	ctx := context.Background()
	page := "https://page.example/article"

	resp, err := f.Get(ctx, Request{URL: srv.URL + "/a.png", PageURL: page, Mode: ModeNone})
	require.NoError(t, err)
	assert.False(t, resp.Readable)

	resp, err = f.Get(ctx, Request{URL: srv.URL + "/a.png", PageURL: page, Mode: ModeAnonymous})
	require.NoError(t, err)
	assert.False(t, resp.FromCache)
	assert.True(t, resp.Readable)

	resp, err = f.Get(ctx, Request{URL: srv.URL + "/a.png", PageURL: page, Mode: ModeAnonymous, NoReferrer: true})
	require.NoError(t, err)
	assert.False(t, resp.FromCache)

	resp, err = f.Get(ctx, Request{URL: srv.URL + "/a.png", PageURL: page, Mode: ModeAnonymous})
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.True(t, resp.Readable)

	assert.Equal(t, int32(3), hits.Load())
	assert.Len(t, cache.data, 3)
}

func TestGet_NoReferrer(t *testing.T) {
	referers := make(chan string, 2)
	srv := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		referers <- r.Header.Get("Referer")
		_, _ = w.Write([]byte("img"))
	})
	f := New(DefaultConfig(), nil, zap.NewNop())
	page := "https://page.example/article"

	_, err := f.Get(context.Background(), Request{URL: srv.URL + "/a", PageURL: page, Mode: ModeAnonymous})
	require.NoError(t, err)
	assert.Equal(t, page, <-referers)

	_, err = f.Get(context.Background(), Request{URL: srv.URL + "/b", PageURL: page, Mode: ModeAnonymous, NoReferrer: true})
	require.NoError(t, err)
	assert.Empty(t, <-referers)
}
