package qr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmorgan81/qrgen/internal/blob"
)

const (
	GeneratePath = "generate_qr"
	DefaultSize  = 10
	MinSize      = 1
	MaxSize      = 40
	FormatPNG    = "png"
)

var (
	ErrEmptyText   = errors.New("qr: text is empty")
	ErrInvalidSize = errors.New("qr: size must be positive")
)

// Request is built once per invocation and discarded when the call resolves.
type Request struct {
	Text   string
	Size   int
	Format string
}

func NewRequest(text string, size int) (Request, error) {
	if text == "" {
		return Request{}, ErrEmptyText
	}
	if size < MinSize {
		return Request{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return Request{Text: text, Size: size, Format: FormatPNG}, nil
}

// EncodedURL resolves the request against base. Text is percent-encoded so
// reserved characters in user input cannot leak into the query structure.
func (r Request) EncodedURL(base *url.URL) string {
	u := base.JoinPath(GeneratePath)
	q := url.Values{}
	q.Set("text", r.Text)
	q.Set("size", strconv.Itoa(r.Size))
	if r.Format != "" {
		q.Set("format", r.Format)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type Generator interface {
	Generate(ctx context.Context, text string, size int) (*blob.Handle, error)
}

// ParseBaseAddress validates a configured origin such as http://localhost:8000.
func ParseBaseAddress(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse base address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base address %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base address %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// HostPort names the service address in user-facing hints, filling in the
// scheme's default port when the base address omits one.
func HostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
