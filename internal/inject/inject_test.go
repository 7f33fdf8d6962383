package inject

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmorgan81/qrgen/internal/config"
	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/dmorgan81/qrgen/internal/store"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(base, dir string) *config.Config {
	return &config.Config{
		BaseAddress:    base,
		Size:           10,
		RequestTimeout: 5 * time.Second,
		StorageBackend: config.BackendFile,
		DownloadDir:    dir,
	}
}

func TestSetupWiresFileSession(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	dir := t.TempDir()
	injector := Setup(context.Background(), testConfig(srv.URL, dir))

	saver := do.MustInvoke[store.Saver](injector)
	assert.IsType(t, &store.FileSaver{}, saver)

	client := do.MustInvoke[*qr.Client](injector)
	assert.Equal(t, srv.URL, client.Base.String())
	assert.Equal(t, 5*time.Second, client.HTTP.Timeout)

	machine := do.MustInvoke[*lifecycle.Machine](injector)
	s, err := machine.Start(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, lifecycle.Succeeded, s.Phase)

	path, err := machine.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, store.DefaultName), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	require.NoError(t, injector.Shutdown())
	assert.True(t, s.Handle.Revoked(), "shutdown ends the session")
}

func TestSetupRejectsBadBaseAddress(t *testing.T) {
	injector := Setup(context.Background(), testConfig("not a url", t.TempDir()))
	_, err := do.Invoke[qr.Generator](injector)
	assert.Error(t, err)
}
