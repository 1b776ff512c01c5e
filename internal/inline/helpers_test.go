package inline

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: uint8(x * 10), B: uint8(y * 10), A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidDataURI(t *testing.T) {
	long := strings.Repeat("A", 60)
	tests := []struct {
		name string
		uri  string
		want bool
	}{
		{"valid", "data:image/png;base64," + long, true},
		{"not image", "data:text/plain;base64," + long, false},
		{"too short", "data:image/png;base64,AAAAAAAAAAAA", false},
		{"short payload", "data:image/svg+xml;charset=utf-8;name=abcdefghijklmnopqrstu,AAAA", false},
		{"no comma", "data:image/png;base64" + long, false},
		{"http", "https://example.com/" + long, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidDataURI(tt.uri))
		})
	}
}

func TestEncodeDataURI(t *testing.T) {
	body := pngBytes(t, 4, 4)

	uri, err := EncodeDataURI("image/png", body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	// sniffed when the server lies
	uri, err = EncodeDataURI("application/octet-stream", body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	svg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
	uri, err = EncodeDataURI("text/plain", svg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/svg+xml;base64,"))

	_, err = EncodeDataURI("text/html", []byte("<html><body>not found</body></html>"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = EncodeDataURI("image/gif", []byte("GIF8"))
	assert.ErrorIs(t, err, ErrInvalidDataURI)
}

func TestImageFilename(t *testing.T) {
	tests := []struct {
		index int
		url   string
		want  string
	}{
		{7, "https://cdn.example.com/a/photo.final.JPG?x=1", "img_007_photofinal.JPG"},
		{0, "https://cdn.example.com/pics/cat.webp", "img_000_cat.webp"},
		{12, "https://cdn.example.com/render?format=png", "img_012_render.png"},
		{3, "https://cdn.example.com/", "img_003_image_3.jpg"},
		{1, "https://cdn.example.com/my%20photo.gif", "img_001_my_photo.gif"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageFilename(tt.index, tt.url))
		})
	}
}

func TestBackgroundFilename(t *testing.T) {
	assert.Equal(t, "bg_img_0_hero.png", BackgroundFilename(0, "https://example.com/img/hero.png"))
	assert.Equal(t, "bg_img_2_image.jpg", BackgroundFilename(2, "https://example.com/"))
	assert.Equal(t, "bg_img_1_tile.svg", BackgroundFilename(1, "https://example.com/tile?svg"))
}

func decodeSVG(t *testing.T, uri string) string {
	t.Helper()
	payload, ok := strings.CutPrefix(uri, "data:image/svg+xml;base64,")
	require.True(t, ok, uri)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return string(raw)
}

func TestPlaceholderSVG(t *testing.T) {
	url := "https://images.example.com/very/long/path/to/some/picture.png"
	uri, err := PlaceholderSVG(0, 0, "img_001_picture.png", url)
	require.NoError(t, err)
	assert.True(t, ValidDataURI(uri))

	svg := decodeSVG(t, uri)
	assert.Contains(t, svg, `width="200" height="150"`)
	assert.Contains(t, svg, "img_001_picture.png")
	assert.Contains(t, svg, "200×150")
	assert.Contains(t, svg, "Source: "+url[:40]+"...")

	uri, err = PlaceholderSVG(320, 40, "a<b>.png", "")
	require.NoError(t, err)
	svg = decodeSVG(t, uri)
	assert.Contains(t, svg, "320×40")
	assert.Contains(t, svg, "a&lt;b&gt;.png")
	assert.Contains(t, svg, "Source: N/A")

	_, err = PlaceholderSVG(20000, 10, "x.png", url)
	assert.ErrorIs(t, err, ErrPlaceholder)
}

func TestPlaceholderBox(t *testing.T) {
	box := PlaceholderBox(120, 60, `Logo "main"`)
	assert.Contains(t, box, "width: 120px; height: 60px;")
	assert.Contains(t, box, "line-height: 60px;")
	assert.Contains(t, box, "Logo &#34;main&#34;")
	assert.Contains(t, box, `data-wcs-placeholder="true"`)

	assert.Contains(t, PlaceholderBox(0, 0, ""), ">Image</div>")
}
