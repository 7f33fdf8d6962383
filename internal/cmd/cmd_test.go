package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func qrServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(`{"message":"QR Code Generator API","version":"1.0"}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write(pngMagic)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateCommand(t *testing.T) {
	srv := qrServer(t, http.StatusOK)
	dir := t.TempDir()
	t.Setenv("QRGEN_BASE_ADDRESS", srv.URL)
	t.Setenv("QRGEN_DOWNLOAD_DIR", dir)

	out, err := run(t, "generate", "hello", "world")
	require.NoError(t, err)
	assert.Contains(t, out, "generated 8 bytes (image/png)")
	assert.Contains(t, out, "saved "+filepath.Join(dir, "qrcode.png"))

	data, err := os.ReadFile(filepath.Join(dir, "qrcode.png"))
	require.NoError(t, err)
	assert.Equal(t, pngMagic, data)
}

func TestGenerateCommandFlagsOverrideEnv(t *testing.T) {
	srv := qrServer(t, http.StatusOK)
	dir := t.TempDir()
	t.Setenv("QRGEN_BASE_ADDRESS", "http://127.0.0.1:1")
	t.Setenv("QRGEN_DOWNLOAD_DIR", dir)

	_, err := run(t, "generate", "--base-address", srv.URL, "--size", "5", "--no-download", "x")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateCommandFailures(t *testing.T) {
	srv := qrServer(t, http.StatusInternalServerError)
	t.Setenv("QRGEN_BASE_ADDRESS", srv.URL)
	t.Setenv("QRGEN_DOWNLOAD_DIR", t.TempDir())

	_, err := run(t, "generate", "hello world")
	require.Error(t, err)
	assert.Equal(t, "Failed to generate QR code", err.Error())

	_, err = run(t, "generate", "   ")
	require.Error(t, err)
	assert.Equal(t, "Please enter text or URL", err.Error())

	_, err = run(t, "generate", "--size", "99", "x")
	assert.Error(t, err)
}

func TestPingCommand(t *testing.T) {
	srv := qrServer(t, http.StatusOK)
	t.Setenv("QRGEN_BASE_ADDRESS", srv.URL)

	out, err := run(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "QR Code Generator API 1.0")
}

func TestWithMetrics(t *testing.T) {
	called := false
	err := withMetrics(context.Background(), "127.0.0.1:0", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = withMetrics(context.Background(), "", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
