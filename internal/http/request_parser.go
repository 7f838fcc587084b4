package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"renohub/internal/core"
	"renohub/internal/prompt"
)

// maxBodyBytes bounds POST bodies; a summary request carries at most a
// snapshot fragment.
const maxBodyBytes = 1 << 20

// ParsePromptRequest reads a {type, data} body. Malformed JSON and unknown
// prompt types are bad requests.
func ParsePromptRequest(r *http.Request) (prompt.Request, error) {
	var req prompt.Request

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return req, core.BadRequest("Invalid JSON body", err.Error())
	}
	if len(raw) > maxBodyBytes {
		return req, core.BadRequest("Invalid JSON body", "request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, core.BadRequest("Invalid JSON body", "empty body")
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, core.BadRequest("Invalid JSON body", err.Error())
	}

	kind, err := prompt.ParseKind(string(req.Type))
	if err != nil {
		if errors.Is(err, prompt.ErrUnknownKind) {
			return req, core.BadRequest("Invalid request type", err.Error())
		}
		return req, core.BadRequest("Invalid request", err.Error())
	}
	req.Type = kind
	return req, nil
}
