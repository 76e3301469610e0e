package protocol

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawRequest(method, path, body string) string {
	return method + " " + path + " HTTP/1.1\r\n" +
		"Host: localhost:8080\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body
}

func TestFramerComplete(t *testing.T) {
	full := rawRequest("POST", "/api/login", `{"username":"admin","password":"123456"}`)

	tests := []struct {
		name   string
		chunks []string
		want   bool
	}{
		{"empty", nil, false},
		{"partial headers", []string{"POST /api/login HTTP/1.1\r\nContent-Le"}, false},
		{"headers without body", []string{full[:strings.Index(full, "\r\n\r\n")+4]}, false},
		{"partial body", []string{full[:len(full)-3]}, false},
		{"complete in one read", []string{full}, true},
		{"complete in many reads", []string{full[:10], full[10:40], full[40:]}, true},
		{"no content length", []string{"POST /api/users/list HTTP/1.1\r\nHost: x\r\n\r\n"}, true},
		{"lowercase header is ignored", []string{"POST /x HTTP/1.1\r\ncontent-length: 10\r\n\r\n"}, true},
		{"unparsable length counts as zero", []string{"POST /x HTTP/1.1\r\nContent-Length: abc\r\n\r\n"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(0)
			for _, c := range tt.chunks {
				if _, err := f.Write([]byte(c)); err != nil {
					t.Fatalf("Write: %v", err)
				}
			}
			if got := f.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFramerResetAndLimit(t *testing.T) {
	f := NewFramer(16)
	if _, err := f.Write([]byte("POST / HTTP/1.1\r")); err != nil {
		t.Fatalf("Write within limit: %v", err)
	}
	if _, err := f.Write([]byte("\n\r\n")); !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("expected ErrRequestTooLarge, got %v", err)
	}
	f.Reset()
	if f.Len() != 0 || f.Complete() {
		t.Errorf("expected empty incomplete buffer after Reset, len=%d", f.Len())
	}
}

func TestParseRequest(t *testing.T) {
	body := `{"username":"admin"}`
	req, err := ParseRequest([]byte(rawRequest("POST", "/api/login", body)))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Method != "POST" || req.Path != "/api/login" || req.Proto != "HTTP/1.1" {
		t.Errorf("unexpected request line: %s %s %s", req.Method, req.Path, req.Proto)
	}
	if req.Header["Host"] != "localhost:8080" {
		t.Errorf("Host header = %q", req.Header["Host"])
	}
	if string(req.Body) != body {
		t.Errorf("Body = %q, want %q", req.Body, body)
	}
}

func TestParseRequestBodyTruncatedToLength(t *testing.T) {
	raw := rawRequest("POST", "/api/homeworks", `{}`) + "POST /api/homeworks HTTP/1.1\r\n"
	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if string(req.Body) != "{}" {
		t.Errorf("Body = %q, want {}", req.Body)
	}
}

func TestParseRequestMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"two tokens", "POST /api/login\r\n\r\n"},
		{"one token", "GARBAGE\r\n\r\n"},
		{"four tokens", "POST /a b HTTP/1.1\r\n\r\n"},
		{"no terminator", "POST /api/login HTTP/1.1\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedRequest) {
				t.Errorf("expected ErrMalformedRequest, got %v", err)
			}
		})
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, Error(401, "wrong password")); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	out := buf.String()

	head, body, ok := strings.Cut(out, "\r\n\r\n")
	if !ok {
		t.Fatalf("no header terminator in %q", out)
	}
	lines := strings.Split(head, "\r\n")
	if lines[0] != "HTTP/1.1 401 Unauthorized" {
		t.Errorf("status line = %q", lines[0])
	}
	wantHeaders := []string{
		"Content-Type: application/json",
		"Content-Length: " + strconv.Itoa(len(body)),
		"Access-Control-Allow-Origin: *",
	}
	for _, h := range wantHeaders {
		if !strings.Contains(head, h) {
			t.Errorf("missing header %q in %q", h, head)
		}
	}
	if !strings.Contains(body, `"success": false`) || !strings.Contains(body, `"error": "wrong password"`) {
		t.Errorf("unexpected body %q", body)
	}
}

func TestStatusText(t *testing.T) {
	tests := map[int]string{
		200: "OK",
		400: "Bad Request",
		401: "Unauthorized",
		403: "Forbidden",
		404: "Not Found",
		405: "Method Not Allowed",
		500: "Internal Server Error",
		418: "Unknown",
	}
	for code, want := range tests {
		if got := StatusText(code); got != want {
			t.Errorf("StatusText(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestRouterOrder(t *testing.T) {
	r := NewRouter(nil)
	r.Handle("/api/ping", func(ctx context.Context, req *Request) Response {
		return OK(map[string]any{"success": true})
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"ok", "POST", "/api/ping", `{}`, 200},
		{"method checked before path", "GET", "/nowhere", `{}`, 405},
		{"method checked before body", "GET", "/api/ping", `not json`, 405},
		{"body checked before path", "POST", "/nowhere", `not json`, 400},
		{"array body", "POST", "/api/ping", `[1,2]`, 400},
		{"null body", "POST", "/api/ping", `null`, 400},
		{"empty body", "POST", "/api/ping", ``, 400},
		{"unknown path", "POST", "/nowhere", `{}`, 404},
		{"no trailing slash normalization", "POST", "/api/ping/", `{}`, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := r.ServeRequest(context.Background(), &Request{Method: tt.method, Path: tt.path, Body: []byte(tt.body)})
			if resp.Status != tt.want {
				t.Errorf("status = %d, want %d", resp.Status, tt.want)
			}
		})
	}
}

func TestMiddlewareOrderAndRecover(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Request) Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	r := NewRouter(nil)
	r.Use(mark("outer"), Recoverer(discardLogger(), nil), mark("inner"))
	r.Handle("/boom", func(ctx context.Context, req *Request) Response {
		panic("boom")
	})

	resp := r.ServeRequest(context.Background(), &Request{Method: "POST", Path: "/boom", Body: []byte(`{}`)})
	if resp.Status != 500 {
		t.Errorf("status = %d, want 500", resp.Status)
	}
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("middleware order = %v", order)
	}
}
