// Package asset serves the single provisioned web asset from the mounted
// volume.
package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/webstation/webstation/pkg/logging"
)

// Response constants of the asset endpoint.
const (
	DefaultPath     = "/webapp/build.ts"
	ContentType     = "text/html"
	NotFoundMessage = "No suitable file could be found."
)

// Opener is the read side of the mounted volume.
type Opener interface {
	Open(name string) (afero.File, error)
}

// StreamWriteError is a failure to write the response body after the 200
// status was sent.
type StreamWriteError struct {
	Written int64
	Err     error
}

func (e *StreamWriteError) Error() string {
	return fmt.Sprintf("failed to stream asset after %d bytes: %v", e.Written, e.Err)
}

func (e *StreamWriteError) Unwrap() error { return e.Err }

// Responder streams one fixed file for every request it is handed. The
// request URI is logged but never selects the file.
type Responder struct {
	volume    Opener
	path      string
	chunkSize int
	logger    logging.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithPath sets the served file.
func WithPath(p string) Option {
	return func(r *Responder) { r.path = p }
}

// WithChunkSize sets the line buffer size.
func WithChunkSize(n int) Option {
	return func(r *Responder) { r.chunkSize = n }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// NewResponder serves DefaultPath from volume unless overridden.
func NewResponder(volume Opener, opts ...Option) *Responder {
	r := &Responder{
		volume:    volume,
		path:      DefaultPath,
		chunkSize: DefaultChunkSize,
		logger:    logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "asset")
	return r
}

// Path returns the served file.
func (r *Responder) Path() string { return r.path }

// Serve answers one request: 200 with the file streamed chunk by chunk, or
// 404 when it cannot be opened. An open failure is a normal outcome and
// returns nil. The file is closed before Serve returns on every path.
func (r *Responder) Serve(w http.ResponseWriter, req *http.Request) error {
	logger := r.logger.With("request_id", uuid.NewString())
	logger.Info("Got URI", "uri", req.RequestURI, "method", req.Method)

	f, err := r.volume.Open(r.path)
	if err != nil {
		logger.Debug("Asset unavailable", "path", r.path, "error", err)
		return notFound(w)
	}
	defer f.Close()

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)

	var written int64
	for chunk, err := range Chunks(f, r.chunkSize) {
		if err != nil {
			return fmt.Errorf("failed to read %s after %d bytes: %w", r.path, written, err)
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return &StreamWriteError{Written: written, Err: err}
		}
	}
	logger.Debug("Asset served", "path", r.path, "bytes", written)
	return nil
}

// ServeHTTP adapts Serve to http.Handler, logging the error that Serve
// returned.
func (r *Responder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if err := r.Serve(w, req); err != nil {
		var sw *StreamWriteError
		if errors.As(err, &sw) {
			r.logger.Warn("Response interrupted", "uri", req.RequestURI, "error", err)
			return
		}
		r.logger.Error("Asset request failed", "uri", req.RequestURI, "error", err)
	}
}

func notFound(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusNotFound)
	if _, err := io.WriteString(w, NotFoundMessage); err != nil {
		return &StreamWriteError{Err: err}
	}
	return nil
}
