package handlers

import (
	"context"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
)

const maxAudioSize = 10 << 20

type transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type TranscribeHandler struct {
	transcriber transcriber
}

func NewTranscribeHandler(t transcriber) *TranscribeHandler {
	return &TranscribeHandler{transcriber: t}
}

// Transcribe accepts a multipart "audio" field and returns {transcript}.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioSize+1<<20)
	if err := r.ParseMultipartForm(maxAudioSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Audio must be a multipart upload under 10 MB", r))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("audio file is required", r))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		writeJSON(w, http.StatusBadRequest, errorResp("Unsupported audio type", r))
		return
	}

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Failed to read audio", r))
		return
	}
	if len(audio) > maxAudioSize {
		writeJSON(w, http.StatusBadRequest, errorResp("Audio must be a multipart upload under 10 MB", r))
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), audio, mimeType)
	if err != nil {
		log.Printf("transcription error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to transcribe audio", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"transcript": text})
}
