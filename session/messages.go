package session

import (
	"errors"
	"math"
	"strconv"

	"github.com/georgepadayatti/firma/compose"
	"github.com/georgepadayatti/firma/render"
)

// ErrIncomplete is reported when apply is requested before a document,
// signature and position are all present.
var ErrIncomplete = errors.New("document, signature and position are required")

// User-facing messages.
const (
	MsgUnsupportedType = "Por favor, selecciona solo archivos PDF o Word (.doc, .docx)"
	MsgWordPending     = "Los archivos Word necesitan ser convertidos a PDF primero. Esta funcionalidad estará disponible pronto."
	MsgApplyFailed     = "Error al aplicar la firma al PDF"
	MsgIncomplete      = "Por favor, selecciona un archivo, crea una firma y elige una posición."
	MsgNoPreview       = "No se pudo cargar la vista previa del PDF"
	MsgGeneric         = "Error al procesar el archivo"
)

// Message returns the text shown to the user for err, or "" for nil.
func Message(err error) string {
	var (
		selErr    *SelectionError
		formatErr *UnsupportedFormatError
		renderErr *render.RenderError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &selErr):
		return MsgUnsupportedType
	case errors.As(err, &formatErr):
		return MsgWordPending
	case errors.Is(err, ErrIncomplete):
		return MsgIncomplete
	case errors.Is(err, compose.ErrLoad),
		errors.Is(err, compose.ErrInvalidPage),
		errors.Is(err, compose.ErrImageDecode):
		return MsgApplyFailed
	case errors.As(err, &renderErr), errors.Is(err, render.ErrNoPreview):
		return MsgNoPreview
	default:
		return MsgGeneric
	}
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with binary units and at most two
// decimals, e.g. "1.5 KB".
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
