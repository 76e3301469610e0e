package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pavelanni/coursework/internal/i18n"
	"github.com/pavelanni/coursework/internal/protocol"
)

func TestBuildRouterLocalizesPanics(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	msgs, err := i18n.New("en", log)
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	r := buildRouter(msgs, log)
	r.Handle("/api/panic", func(context.Context, *protocol.Request) protocol.Response {
		panic("boom")
	})

	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"default language", "", "internal server error"},
		{"chinese", "zh-CN,zh;q=0.9", "服务器内部错误"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &protocol.Request{
				Method: protocol.MethodPost,
				Path:   "/api/panic",
				Proto:  "HTTP/1.1",
				Header: map[string]string{},
				Body:   []byte(`{}`),
			}
			if tt.accept != "" {
				req.Header["Accept-Language"] = tt.accept
			}
			resp := r.ServeRequest(context.Background(), req)
			if resp.Status != 500 {
				t.Fatalf("status = %d, want 500", resp.Status)
			}
			body, ok := resp.Body.(protocol.ErrorBody)
			if !ok {
				t.Fatalf("body = %#v", resp.Body)
			}
			if body.Success || body.Error != tt.want {
				t.Errorf("body = %+v, want error %q", body, tt.want)
			}
		})
	}
}
