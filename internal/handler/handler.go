package handler

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/dmorgan81/qrgen/internal/log"
	"github.com/dmorgan81/qrgen/internal/qr"
	"github.com/dmorgan81/qrgen/internal/store"
	"github.com/samber/do"
)

var ErrInvalidInput = errors.New("handler: invalid input")

// Input is the invocation event. Size falls back to the session size and
// Name to qrcode.png when omitted.
type Input struct {
	Text string `json:"text"`
	Size int    `json:"size,omitempty"`
	Name string `json:"name,omitempty"`
}

func (i Input) validate() error {
	if i.Size != 0 && (i.Size < qr.MinSize || i.Size > qr.MaxSize) {
		return fmt.Errorf("%w: size must be between %d and %d, got %d", ErrInvalidInput, qr.MinSize, qr.MaxSize, i.Size)
	}
	if i.Name != "" && (path.Base(i.Name) != i.Name || i.Name == "." || i.Name == "..") {
		return fmt.Errorf("%w: name %q must be a plain file name", ErrInvalidInput, i.Name)
	}
	return nil
}

type Output struct {
	Cycle    uint64 `json:"cycle"`
	Handle   string `json:"handle"`
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
	Location string `json:"location"`
}

// Failure is returned when a cycle settles in Failed, so the invocation errors
// with the user-facing message while the cause stays inspectable.
type Failure struct {
	Cause   lifecycle.Cause
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s (%s)", f.Message, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type Handler struct {
	machine *lifecycle.Machine
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		machine: do.MustInvoke[*lifecycle.Machine](i),
	}, nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("input", input)
	log.Info("handling lambda invocation")

	if err := input.validate(); err != nil {
		return Output{}, err
	}

	var (
		state lifecycle.State
		err   error
	)
	if input.Size != 0 {
		state, err = h.machine.StartSized(ctx, input.Text, input.Size)
	} else {
		state, err = h.machine.Start(ctx, input.Text)
	}
	if err != nil {
		return Output{}, err
	}
	if state.Phase != lifecycle.Succeeded {
		return Output{}, &Failure{Cause: state.Cause, Message: state.Message, Err: state.Err}
	}

	name := input.Name
	if name == "" {
		name = store.DefaultName
	}
	location, err := h.machine.DownloadAs(ctx, name)
	if err != nil {
		return Output{}, err
	}

	return Output{
		Cycle:    state.Cycle,
		Handle:   state.Handle.URL(),
		MIMEType: state.Handle.MIMEType(),
		Bytes:    state.Handle.Len(),
		Location: location,
	}, nil
}
