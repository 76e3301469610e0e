package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// MethodPost is the only method the API accepts.
const MethodPost = "POST"

// Request is one decoded request.
type Request struct {
	Method     string
	Path       string
	Proto      string
	Header     map[string]string
	Body       []byte
	RemoteAddr string
}

// ParseRequest decodes one complete request as accumulated by a Framer.
// Only the request line is validated here; the body is left raw.
func ParseRequest(raw []byte) (*Request, error) {
	head, body, found := bytes.Cut(raw, separator)
	if !found {
		return nil, fmt.Errorf("%w: missing header terminator", ErrMalformedRequest)
	}

	lines := strings.Split(string(head), "\r\n")
	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequest, lines[0])
	}

	req := &Request{
		Method: parts[0],
		Path:   parts[1],
		Proto:  parts[2],
		Header: make(map[string]string),
	}
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			continue
		}
		if _, dup := req.Header[name]; dup {
			continue
		}
		req.Header[name] = strings.TrimSpace(value)
	}

	if n := contentLength(head); n > 0 && n < len(body) {
		body = body[:n]
	}
	req.Body = bytes.Clone(body)
	return req, nil
}
