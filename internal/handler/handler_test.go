package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/dmorgan81/qrgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSaver struct {
	saved map[string][]byte
}

func (s *memSaver) Save(_ context.Context, params store.SaveParams) (string, error) {
	s.saved[params.Name] = params.Data
	return "mem://" + params.Name, nil
}

func newHandler(t *testing.T, status int, body []byte) (*Handler, *memSaver) {
	h, saver, _ := newRecordingHandler(t, status, body)
	return h, saver
}

func newRecordingHandler(t *testing.T, status int, body []byte) (*Handler, *memSaver, *atomic.Value) {
	t.Helper()
	var lastSize atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastSize.Store(r.URL.Query().Get("size"))
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	client, err := qr.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	saver := &memSaver{saved: map[string][]byte{}}
	return &Handler{machine: lifecycle.New(client, saver)}, saver, &lastSize
}

func TestHandle(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	h, saver := newHandler(t, http.StatusOK, png)

	out, err := h.Handle(context.Background(), Input{Text: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "mem://qrcode.png", out.Location)
	assert.Equal(t, len(png), out.Bytes)
	assert.Equal(t, "image/png", out.MIMEType)
	assert.EqualValues(t, 1, out.Cycle)
	assert.Equal(t, png, saver.saved["qrcode.png"])
}

func TestHandleFailures(t *testing.T) {
	h, saver := newHandler(t, http.StatusInternalServerError, nil)

	_, err := h.Handle(context.Background(), Input{Text: "hello world"})
	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, lifecycle.CauseRemoteRejected, failure.Cause)
	assert.ErrorIs(t, err, qr.ErrRemoteRejected)

	_, err = h.Handle(context.Background(), Input{Text: "   "})
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, lifecycle.CauseEmptyInput, failure.Cause)
	assert.Contains(t, err.Error(), "Please enter text or URL")

	assert.Empty(t, saver.saved)
}

func TestHandleSizeAndName(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	h, saver, lastSize := newRecordingHandler(t, http.StatusOK, png)

	var input Input
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hi","size":25,"name":"hi.png"}`), &input))

	out, err := h.Handle(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "25", lastSize.Load())
	assert.Equal(t, "mem://hi.png", out.Location)
	assert.Equal(t, png, saver.saved["hi.png"])

	_, err = h.Handle(context.Background(), Input{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "10", lastSize.Load(), "omitted size uses the session size")
	assert.Contains(t, saver.saved, "qrcode.png")
}

func TestHandleRejectsInvalidInput(t *testing.T) {
	h, saver, lastSize := newRecordingHandler(t, http.StatusOK, nil)

	for _, in := range []Input{
		{Text: "hi", Size: 41},
		{Text: "hi", Size: -1},
		{Text: "hi", Name: "../escape.png"},
		{Text: "hi", Name: "dir/qr.png"},
		{Text: "hi", Name: ".."},
	} {
		_, err := h.Handle(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
	assert.Nil(t, lastSize.Load(), "no request for invalid input")
	assert.Empty(t, saver.saved)
}
