package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostBinarySendsBytesAndToken(t *testing.T) {
	var gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`[{"generated_text":"a cat on a sofa"},{"generated_text":"a sofa"}]`))
	}))
	defer srv.Close()

	c := NewClientWithHTTP(" hf_token ", srv.Client())
	candidates, err := c.PostBinary(context.Background(), srv.URL, "image/png", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("PostBinary: %v", err)
	}

	if gotAuth != "Bearer hf_token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotType != "image/png" {
		t.Fatalf("Content-Type = %q", gotType)
	}
	if string(gotBody) != "\x89PNG" {
		t.Fatalf("body = %q", gotBody)
	}
	if len(candidates) != 2 || candidates[0].GeneratedText != "a cat on a sofa" {
		t.Fatalf("candidates = %+v", candidates)
	}
}

func TestPostJSONEncodesPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`[{"generated_text":"story"}]`))
	}))
	defer srv.Close()

	c := NewClientWithHTTP("", srv.Client())
	_, err := c.PostJSON(context.Background(), srv.URL, map[string]any{"inputs": "hello"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if got["inputs"] != "hello" {
		t.Fatalf("payload = %v", got)
	}
}

func TestPostWithoutTokenOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	candidates, err := NewClientWithHTTP("", srv.Client()).PostBinary(context.Background(), srv.URL, "", nil)
	if err != nil {
		t.Fatalf("PostBinary: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("candidates = %+v", candidates)
	}
}

func TestPostStatusError(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"hf error body", http.StatusServiceUnavailable, `{"error":"Model is loading","estimated_time":20}`, "Model is loading"},
		{"error list", http.StatusBadRequest, `{"error":["bad input","too long"]}`, "bad input; too long"},
		{"plain text", http.StatusInternalServerError, "  oops  ", "oops"},
		{"empty", http.StatusBadGateway, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClientWithHTTP("t", srv.Client()).PostBinary(context.Background(), srv.URL, "image/jpeg", []byte("x"))
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.StatusCode != tc.status || statusErr.Message != tc.wantMsg {
				t.Fatalf("StatusError = %+v", statusErr)
			}
		})
	}
}

func TestPostMalformedResponse(t *testing.T) {
	bodies := map[string]string{
		"not json":      `<html>`,
		"object":        `{"generated_text":"x"}`,
		"missing field": `[{"label":"dog"}]`,
		"wrong type":    `[{"generated_text":42}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewClientWithHTTP("", srv.Client()).PostJSON(context.Background(), srv.URL, struct{}{})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestPostHonorsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClientWithHTTP("", srv.Client()).PostBinary(ctx, srv.URL, "image/png", []byte("x"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
