package storage

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestProcessAvatarScalesDown(t *testing.T) {
	out, err := ProcessAvatar(encodePNG(t, 1024, 600))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 512, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestProcessAvatarKeepsSmallImages(t *testing.T) {
	out, err := ProcessAvatar(encodePNG(t, 100, 80))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestProcessAvatarRejectsGarbage(t *testing.T) {
	_, err := ProcessAvatar([]byte("not an image"))
	assert.Error(t, err)
}

func TestIsAllowedExtension(t *testing.T) {
	allowed := []string{"jpg", " PNG"}
	assert.True(t, IsAllowedExtension("me.JPG", allowed))
	assert.True(t, IsAllowedExtension("me.png", allowed))
	assert.False(t, IsAllowedExtension("me.gif", allowed))
	assert.False(t, IsAllowedExtension("noext", allowed))
}

func TestAvatarKeyAndURLRoundTrip(t *testing.T) {
	key := AvatarKey(42, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(key, "avatars/42/2025/03/07/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	s := &StorageService{bucket: "b", region: "ap-southeast-1"}
	assert.Equal(t, key, KeyFromURL(s.URL(key)))
	assert.Equal(t, "", KeyFromURL("https://example.com/x"))
}
