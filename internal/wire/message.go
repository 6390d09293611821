// Package wire implements the DSS request/response envelope: framing of
// command/response messages with opaque binary payloads carried as base64
// inside a structured JSON frame, plus the UDP/TCP transports that carry
// them (see transport.go).
package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Status is the outcome of a handled request.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Request is a single command/response datagram's request half: a
// command name, an opaque parameters object, and an optional sender name.
// Parameters is kept as raw JSON so each handler decodes it into its own
// typed contract struct (internal/contract) rather than a dynamically
// typed map — see DESIGN NOTES in spec.md §9.
type Request struct {
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Sender     string          `json:"sender,omitempty"`
}

// Response is the reply half: a status, an optional human message, and an
// optional data object, again carried as raw JSON.
type Response struct {
	Status  Status          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewRequest builds a Request carrying params (marshaled to JSON) and an
// optional sender name.
func NewRequest(command string, params interface{}, sender string) (*Request, error) {
	raw, err := EncodePayload(params)
	if err != nil {
		return nil, err
	}
	return &Request{Command: command, Parameters: raw, Sender: sender}, nil
}

// Success builds a SUCCESS response, optionally carrying data (marshaled
// to JSON). Pass nil for no data.
func Success(data interface{}) (*Response, error) {
	raw, err := EncodePayload(data)
	if err != nil {
		return nil, err
	}
	return &Response{Status: StatusSuccess, Data: raw}, nil
}

// Failure builds a FAILURE response with a human-readable message.
func Failure(message string) *Response {
	return &Response{Status: StatusFailure, Message: message}
}

// Ok reports whether the response status is SUCCESS.
func (r *Response) Ok() bool {
	return r != nil && r.Status == StatusSuccess
}

// EncodePayload marshals v (a contract struct, or nil) to raw JSON for use
// as a Request's Parameters or a Response's Data.
func EncodePayload(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to marshal payload: %w", err)
	}
	return b, nil
}

// DecodePayload unmarshals raw (a Request's Parameters or a Response's
// Data) into v, a pointer to a contract struct.
func DecodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("wire: empty payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("wire: failed to unmarshal payload: %w", err)
	}
	return nil
}

// EncodeBlock base64-encodes raw block bytes for transmission inside a
// request/response's Parameters/Data.
func EncodeBlock(block []byte) string {
	return base64.StdEncoding.EncodeToString(block)
}

// DecodeBlock reverses EncodeBlock.
func DecodeBlock(encoded string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to decode block payload: %w", err)
	}
	return b, nil
}

// Marshal serializes a Request or Response to its JSON wire form.
func Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to marshal frame: %w", err)
	}
	return b, nil
}

// UnmarshalRequest parses a JSON request frame. An error here means no
// reply should be sent (per spec.md §4.2, encoding errors yield no reply).
func UnmarshalRequest(b []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("wire: failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// UnmarshalResponse parses a JSON response frame.
func UnmarshalResponse(b []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("wire: failed to unmarshal response: %w", err)
	}
	return &resp, nil
}
