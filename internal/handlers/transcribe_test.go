package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
)

type stubTranscriber struct {
	text     string
	err      error
	gotAudio []byte
	gotMime  string
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	s.gotAudio = audio
	s.gotMime = mimeType
	return s.text, s.err
}

func audioRequest(t *testing.T, field, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="clip"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/speech/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestTranscribeHandler_Success(t *testing.T) {
	stub := &stubTranscriber{text: "I have went home"}
	h := NewTranscribeHandler(stub)

	rr := httptest.NewRecorder()
	h.Transcribe(rr, audioRequest(t, "audio", "audio/webm; codecs=opus", []byte("RIFF....")))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["transcript"] != "I have went home" {
		t.Errorf("unexpected transcript %q", body["transcript"])
	}
	if stub.gotMime != "audio/webm" {
		t.Errorf("Expected parameters stripped from mime type, got %q", stub.gotMime)
	}
	if string(stub.gotAudio) != "RIFF...." {
		t.Errorf("unexpected audio bytes %q", stub.gotAudio)
	}
}

func TestTranscribeHandler_Validation(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		contentType string
	}{
		{"missing audio field", "file", "audio/wav"},
		{"not audio", "audio", "text/plain"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubTranscriber{text: "x"}
			rr := httptest.NewRecorder()
			NewTranscribeHandler(stub).Transcribe(rr, audioRequest(t, tc.field, tc.contentType, []byte("data")))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rr.Code)
			}
			if stub.gotAudio != nil {
				t.Error("transcriber should not be called")
			}
		})
	}
}

func TestTranscribeHandler_ServiceError(t *testing.T) {
	rr := httptest.NewRecorder()
	NewTranscribeHandler(&stubTranscriber{err: errors.New("quota")}).Transcribe(rr, audioRequest(t, "audio", "audio/wav", []byte("data")))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
}
