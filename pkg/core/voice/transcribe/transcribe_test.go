package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/transcribe" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("audio field: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "raw-audio-bytes" {
			t.Errorf("audio payload = %q", data)
		}
		if !strings.HasSuffix(hdr.Filename, ".webm") {
			t.Errorf("filename = %q", hdr.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"transcript":"what is my balance"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	text, err := c.Transcribe(context.Background(), []byte("raw-audio-bytes"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "what is my balance" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeTextField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text":"  transfer funds  "}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	text, err := c.Transcribe(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "transfer funds" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Transcribe(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"transcript":"   "}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Transcribe(context.Background(), []byte("x"))
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestTranscribeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Transcribe(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestTranscribeAcceptsNonOK2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"transcript":"pay my bill"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	text, err := c.Transcribe(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "pay my bill" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeRedirectStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Transcribe(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for 304 response")
	}
}
