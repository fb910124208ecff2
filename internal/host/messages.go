package host

import (
	"encoding/json"
	"errors"

	"github.com/jmylchreest/palettepeek/internal/colour"
)

// Request message types.
const (
	TypeExtractColors = "EXTRACT_COLORS"
	TypeGetMaxColors  = "GET_MAX_COLORS"
	TypeSetMaxColors  = "SET_MAX_COLORS"
)

// Response message types.
const (
	TypeExtractSuccess      = "EXTRACT_SUCCESS"
	TypeExtractError        = "EXTRACT_ERROR"
	TypeGetMaxColorsSuccess = "GET_MAX_COLORS_SUCCESS"
	TypeSetMaxColorsSuccess = "SET_MAX_COLORS_SUCCESS"
)

// DefaultErrorMessage is reported when an error carries no message.
const DefaultErrorMessage = "Something went wrong."

// Message is one inbound line. ID is optional and echoed back verbatim.
type Message struct {
	Type    string          `json:"type"`
	ID      any             `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ExtractPayload is the payload of EXTRACT_COLORS. MaxColors is loosely
// typed; anything that is not a number falls back to the default size.
type ExtractPayload struct {
	Source    string `json:"source"`
	MaxColors any    `json:"maxColors"`
	Force     bool   `json:"force"`
}

// GetMaxColorsPayload is the payload of GET_MAX_COLORS.
type GetMaxColorsPayload struct {
	Fallback any `json:"fallback"`
}

// SetMaxColorsPayload is the payload of SET_MAX_COLORS.
type SetMaxColorsPayload struct {
	MaxColors any `json:"maxColors"`
}

// ExtractSuccess answers EXTRACT_COLORS.
type ExtractSuccess struct {
	Type    string          `json:"type"`
	ID      any             `json:"id,omitempty"`
	Palette []colour.Swatch `json:"palette"`
	Meta    ExtractMeta     `json:"meta"`
}

// ExtractMeta describes how a palette was produced.
type ExtractMeta struct {
	Cached bool `json:"cached"`
}

// MaxColorsResponse answers GET_MAX_COLORS and SET_MAX_COLORS.
type MaxColorsResponse struct {
	Type      string `json:"type"`
	ID        any    `json:"id,omitempty"`
	MaxColors int    `json:"maxColors"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Type  string    `json:"type"`
	ID    any       `json:"id,omitempty"`
	Error ErrorBody `json:"error"`
}

// ErrorBody is the normalised error shape.
type ErrorBody struct {
	Message string `json:"message"`
}

// userMessages maps host errors to the sentences shown to users.
var userMessages = []struct {
	err     error
	message string
}{
	{ErrNoSource, "Could not determine the image source."},
	{ErrDisallowedSource, "palettepeek cannot access this source. Try a different image."},
	{ErrTimeout, "Palette extraction timed out."},
	{ErrLoad, "Unable to load the image"},
	{ErrExtract, "Palette extraction failed"},
	{ErrPayload, "Invalid request payload"},
}

// NormalizeError converts err to the wire error shape. Known host errors
// become user-facing sentences; stage errors keep their cause as a suffix.
func NormalizeError(err error) ErrorBody {
	if err == nil || err.Error() == "" {
		return ErrorBody{Message: DefaultErrorMessage}
	}

	var se *stageError
	if errors.As(err, &se) {
		return ErrorBody{Message: userMessage(se.stage) + ": " + se.err.Error()}
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return ErrorBody{Message: m.message}
		}
	}
	return ErrorBody{Message: err.Error()}
}

func userMessage(err error) string {
	for _, m := range userMessages {
		if err == m.err {
			return m.message
		}
	}
	return err.Error()
}
