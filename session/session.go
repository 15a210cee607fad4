// Package session coordinates a signing session: the selected document,
// the drawn signature, the chosen position and the apply action.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/georgepadayatti/firma/capture"
	"github.com/georgepadayatti/firma/compose"
	"github.com/georgepadayatti/firma/placement"
	"github.com/georgepadayatti/firma/render"
)

// Accepted MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// DefaultSuffix is appended to the base name of signed documents.
const DefaultSuffix = "_firmado"

// Common errors
var (
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrUnsupportedFormat = errors.New("document format cannot be signed yet")
	ErrNoDocument        = errors.New("no document selected")
)

// State is the session's position in the signing workflow.
type State int

const (
	Idle State = iota
	DocumentLoaded
	PositionPending
	Ready
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DocumentLoaded:
		return "document-loaded"
	case PositionPending:
		return "position-pending"
	case Ready:
		return "ready"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SelectionError reports a file the session refused to select.
type SelectionError struct {
	Name string
	MIME string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", ErrUnsupportedType, e.Name, e.MIME)
}

func (e *SelectionError) Unwrap() error {
	return ErrUnsupportedType
}

// UnsupportedFormatError reports an accepted document that cannot be
// processed.
type UnsupportedFormatError struct {
	MIME string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnsupportedFormat, e.MIME)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// Document is a selected file.
type Document struct {
	Name string
	MIME string
	Data []byte
}

// Size returns the file size in bytes.
func (d *Document) Size() int64 {
	return int64(len(d.Data))
}

// Output is the result of a successful apply.
type Output struct {
	Name        string
	ContentType string
	Data        []byte
}

// Composer stamps signatures onto documents.
type Composer interface {
	Compose(ctx context.Context, src, signature []byte, pos placement.Position) ([]byte, error)
}

// Session holds the state of one signing workflow. It is safe for
// concurrent use.
type Session struct {
	composer Composer
	logger   *slog.Logger
	suffix   string

	mu         sync.Mutex
	document   *Document
	signature  *capture.Signature
	position   *placement.Position
	processing bool
	lastErr    error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSuffix sets the suffix added to output names.
func WithSuffix(suffix string) Option {
	return func(s *Session) {
		s.suffix = suffix
	}
}

// New creates an idle session. A nil composer uses compose.New().
func New(composer Composer, opts ...Option) *Session {
	s := &Session{
		composer: composer,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		suffix:   DefaultSuffix,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.composer == nil {
		s.composer = compose.New(compose.WithLogger(s.logger))
	}
	return s
}

// Accepted reports whether a MIME type can be selected.
func Accepted(mime string) bool {
	switch mime {
	case MIMEPDF, MIMEDoc, MIMEDocx:
		return true
	}
	return false
}

// MIMEFromName guesses the MIME type of a file from its extension.
func MIMEFromName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return MIMEPDF
	case ".doc":
		return MIMEDoc
	case ".docx":
		return MIMEDocx
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	switch {
	case s.document == nil:
		return Idle
	case s.processing:
		return Processing
	case s.signature == nil:
		return DocumentLoaded
	case s.position == nil:
		return PositionPending
	default:
		return Ready
	}
}

// CanApply reports whether Apply would act.
func (s *Session) CanApply() bool {
	return s.State() == Ready
}

// SelectFile replaces the document. An unsupported type returns a
// *SelectionError and leaves the session unchanged. A new document clears
// the position and any error.
func (s *Session) SelectFile(name, mime string, data []byte) error {
	if !Accepted(mime) {
		s.logger.Info("file rejected", "name", name, "mime", mime)
		return &SelectionError{Name: name, MIME: mime}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = &Document{Name: name, MIME: mime, Data: data}
	s.position = nil
	s.lastErr = nil
	s.logger.Info("file selected", "name", name, "mime", mime, "size", FormatFileSize(int64(len(data))))
	return nil
}

// RemoveFile returns the session to Idle. The signature is kept.
func (s *Session) RemoveFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = nil
	s.position = nil
	s.lastErr = nil
}

// Document returns the selected document, or nil.
func (s *Session) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetSignature replaces the signature. nil clears it.
func (s *Session) SetSignature(sig *capture.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signature = sig
}

// Signature returns the current signature, or nil.
func (s *Session) Signature() *capture.Signature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signature
}

// SetPosition replaces the position.
func (s *Session) SetPosition(pos placement.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = &pos
	return nil
}

// ClearPosition forgets the position.
func (s *Session) ClearPosition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = nil
}

// Position returns the current position.
func (s *Session) Position() (placement.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return placement.Position{}, false
	}
	return *s.position, true
}

// Click maps a click on the view's current page and makes it the position.
func (s *Session) Click(view *render.View, p placement.Point, bounds placement.Surface) (placement.Position, error) {
	pos, err := view.Click(p, bounds)
	if err != nil {
		return placement.Position{}, err
	}
	if err := s.SetPosition(pos); err != nil {
		return placement.Position{}, err
	}
	return pos, nil
}

// Err returns the error of the last apply, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Apply stamps the signature onto the document. It does nothing and
// returns nil, nil unless the session is Ready. Failures are also kept as
// the session error; the position survives both outcomes.
func (s *Session) Apply(ctx context.Context) (*Output, error) {
	s.mu.Lock()
	if s.state() != Ready {
		s.mu.Unlock()
		return nil, nil
	}
	s.processing = true
	s.lastErr = nil
	doc := s.document
	sig := s.signature
	pos := *s.position
	s.mu.Unlock()

	out, err := s.apply(ctx, doc, sig, pos)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	if err != nil {
		s.lastErr = err
		s.logger.Error("apply failed", "name", doc.Name, "error", err)
		return nil, err
	}
	s.logger.Info("signature applied", "name", doc.Name, "output", out.Name, "size", FormatFileSize(int64(len(out.Data))))
	return out, nil
}

func (s *Session) apply(ctx context.Context, doc *Document, sig *capture.Signature, pos placement.Position) (*Output, error) {
	if doc.MIME != MIMEPDF {
		return nil, &UnsupportedFormatError{MIME: doc.MIME}
	}
	data, err := s.composer.Compose(ctx, doc.Data, sig.PNG, pos)
	if err != nil {
		return nil, err
	}
	return &Output{
		Name:        OutputName(doc.Name, s.suffix),
		ContentType: MIMEPDF,
		Data:        data,
	}, nil
}

// OutputName derives the signed file name: the base name without a
// trailing ".pdf", NFC-normalized, plus suffix and ".pdf".
func OutputName(name, suffix string) string {
	base := norm.NFC.String(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if base == "." || base == "/" {
		base = ""
	}
	if strings.EqualFold(path.Ext(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	if base == "" {
		base = "documento"
	}
	return base + suffix + ".pdf"
}
