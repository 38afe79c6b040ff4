package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// DecodeRequest parses a JSON request body.
//
// A syntax error yields a MalformedRequestError. A literal null yields a nil
// request, which Analyze rejects. Bodies that are not objects, or whose
// "input" is not a string, fail validation here because the typed request
// cannot represent them. A non-string "mode" is treated as absent.
func DecodeRequest(body []byte) (*AnalysisRequest, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedRequestError{Err: err}
	}
	// only whitespace may follow the value
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedRequestError{Err: errTrailingData}
	}

	if raw == nil {
		return nil, nil
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrRequestNotObject
	}

	req := &AnalysisRequest{}

	if v, present := fields["input"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, ErrInputMissing
		}
		req.Input = &s
	}

	if s, ok := fields["mode"].(string); ok {
		req.Mode = s
	}

	return req, nil
}
