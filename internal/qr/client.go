package qr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmorgan81/qrgen/internal/blob"
	"github.com/dmorgan81/qrgen/internal/log"
	"github.com/dmorgan81/qrgen/internal/metrics"
	"github.com/gabriel-vasile/mimetype"
)

// rejectedBodyLimit bounds how much of an error body is kept for logs.
const rejectedBodyLimit = 512

// Client performs exactly one GET per Generate call against the configured
// service. It does not track handle lifetime after returning.
type Client struct {
	HTTP *http.Client
	Base *url.URL
}

func NewClient(baseAddress string, httpClient *http.Client) (*Client, error) {
	base, err := ParseBaseAddress(baseAddress)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, Base: base}, nil
}

func (c *Client) Generate(ctx context.Context, text string, size int) (*blob.Handle, error) {
	req, err := NewRequest(text, size)
	if err != nil {
		return nil, err
	}
	target := req.EncodedURL(c.Base)

	log := log.FromContextOrDiscard(ctx).WithGroup("qr").With("base", c.Base.String(), "size", size)
	log.Info("generating qr code")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "image/png")

	start := time.Now()
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		metrics.RequestDuration.WithLabelValues(TransportUnreachable.String()).Observe(time.Since(start).Seconds())
		log.Error("qr service unreachable", "error", err)
		return nil, unreachable(HostPort(c.Base), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
		body, _ := io.ReadAll(io.LimitReader(resp.Body, rejectedBodyLimit))
		log.Warn("qr service rejected request", "status", resp.StatusCode, "body", string(body))
		return nil, rejected(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	metrics.RequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("reading qr image failed", "error", err)
		return nil, unreachable(HostPort(c.Base), err)
	}

	mimeType := mimetype.Detect(data).String()
	metrics.ImageBytes.Observe(float64(len(data)))
	log.Info("received qr code", "bytes", len(data), "mime", mimeType)
	return blob.New(data, mimeType), nil
}

// Banner is the service's root endpoint payload.
type Banner struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Ping checks that the service answers on its root path.
func (c *Client) Ping(ctx context.Context) (Banner, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base.JoinPath("/").String(), nil)
	if err != nil {
		return Banner{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Banner{}, unreachable(HostPort(c.Base), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Banner{}, rejected(resp.StatusCode)
	}

	var banner Banner
	if err := json.NewDecoder(resp.Body).Decode(&banner); err != nil {
		return Banner{}, fmt.Errorf("decode banner: %w", err)
	}
	return banner, nil
}
