// Package protocol implements the v1 message envelope exchanged with the
// Blender addon. The relay itself forwards frames verbatim; this package is
// for the endpoints that need to read or build them.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const Version = 1

// Source identifies the origin of a message.
type Source string

const (
	SourceAddon     Source = "blender_addon"
	SourceBlendmate Source = "blendmate"
	SourceAI        Source = "ai"
)

// Hierarchical type strings for messages crossing the bridge.
const (
	TypeSceneConnected     = "event.scene.connected"
	TypeSceneFileLoaded    = "event.scene.file_loaded"
	TypeSceneFileSaved     = "event.scene.file_saved"
	TypeDepsgraphUpdated   = "event.depsgraph.updated"
	TypeFrameChanged       = "event.timeline.frame_changed"
	TypeNodeActiveChanged  = "event.node.active_changed"
	TypeHeartbeat          = "heartbeat"
	TypeResponse           = "response"
	TypeCommandPropertyGet = "command.property.get"
	TypeCommandPropertySet = "command.property.set"
)

// ErrorCode is the stable result code carried in command responses.
type ErrorCode string

const (
	CodeOK                 ErrorCode = "OK"
	CodeInvalidParams      ErrorCode = "INVALID_PARAMS"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeInvalidContext     ErrorCode = "INVALID_CONTEXT"
	CodeOperatorFailed     ErrorCode = "OPERATOR_FAILED"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

var (
	ErrMalformed          = errors.New("protocol: malformed message")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
)

// Message is the envelope wrapping every payload on the wire.
type Message struct {
	V       int    `json:"v"`
	Type    string `json:"type"`
	TS      int64  `json:"ts"` // unix milliseconds
	ID      string `json:"id"`
	Source  Source `json:"source"`
	Body    any    `json:"body,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// CommandBody addresses a command at a data path inside Blender,
// e.g. target "objects['Cube']" with params {"path": "location"}.
type CommandBody struct {
	Target string         `json:"target"`
	Params map[string]any `json:"params,omitempty"`
}

type ResponseError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// ResponseBody is the payload of a "response" message.
type ResponseBody struct {
	OK       bool           `json:"ok"`
	Action   string         `json:"action,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Error    *ResponseError `json:"error,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// New builds an envelope with a fresh id and the current timestamp.
func New(msgType string, source Source, body any) Message {
	return Message{
		V:      Version,
		Type:   msgType,
		TS:     time.Now().UnixMilli(),
		ID:     NewID(),
		Source: source,
		Body:   body,
	}
}

// Reply builds a response envelope threaded to the given request.
func Reply(to Message, body any) Message {
	m := New(TypeResponse, SourceBlendmate, body)
	m.ReplyTo = to.ID
	return m
}

// PropertyGet builds a command reading one property from a Blender data path.
func PropertyGet(target, path string) Message {
	return New(TypeCommandPropertyGet, SourceBlendmate, CommandBody{
		Target: target,
		Params: map[string]any{"path": path},
	})
}

// PropertySet builds a command writing one property on a Blender data path.
func PropertySet(target, path string, value any) Message {
	return New(TypeCommandPropertySet, SourceBlendmate, CommandBody{
		Target: target,
		Params: map[string]any{"path": path, "value": value},
	})
}

// NewID returns a short message id, the first segment of a UUID.
func NewID() string {
	return uuid.NewString()[:8]
}

// Parse decodes an envelope. The version check is strict: anything other
// than Version is rejected so both sides fail loudly on a mismatch.
func Parse(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if m.V != Version {
		return Message{}, fmt.Errorf("%w: got v%d", ErrUnsupportedVersion, m.V)
	}
	return m, nil
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeBody re-decodes the message body into a concrete type. Bodies come
// out of Parse as generic maps; endpoints that want structure use this.
func (m Message) DecodeBody(v any) error {
	raw, err := json.Marshal(m.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// IsEvent reports whether the message is an addon-originated notification.
// A bare "event." with nothing after the dot does not count.
func (m Message) IsEvent() bool {
	return strings.HasPrefix(m.Type, "event.") && m.Type != "event."
}

// IsCommand reports whether the message is an app-originated action.
func (m Message) IsCommand() bool {
	return strings.HasPrefix(m.Type, "command.") && m.Type != "command."
}
