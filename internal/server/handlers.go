package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lexiqai/doc-narrator/internal/audio"
	"github.com/lexiqai/doc-narrator/internal/document"
	"github.com/lexiqai/doc-narrator/internal/pipeline"
)

var errBadRequest = errors.New("bad request")

// requestError marks a malformed request
func requestError(format string, args ...any) error {
	return &pipeline.Error{
		Stage: pipeline.StageValidate,
		Kind:  pipeline.KindConfig,
		Err:   fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...)),
	}
}

// narrationForm holds the parsed fields shared by the HTTP and stream endpoints
type narrationForm struct {
	Voice string
	Speed string
	Pause string
	Pages string
}

func (f narrationForm) input(doc []byte) (pipeline.Input, error) {
	in := pipeline.Input{Document: doc, Voice: strings.TrimSpace(f.Voice), PauseSeconds: -1}

	if f.Speed != "" {
		speed, err := strconv.ParseFloat(f.Speed, 64)
		if err != nil {
			return in, requestError("speed %q is not a number", f.Speed)
		}
		in.Speed = speed
	}
	if f.Pause != "" {
		pause, err := strconv.ParseFloat(f.Pause, 64)
		if err != nil || pause < 0 {
			return in, requestError("pause %q is not a non-negative number", f.Pause)
		}
		in.PauseSeconds = pause
	}
	pages, err := document.ParsePageSelection(f.Pages)
	if err != nil {
		return in, &pipeline.Error{Stage: pipeline.StageValidate, Kind: pipeline.KindConfig, Err: err}
	}
	in.Pages = pages
	return in, nil
}

// readUpload reads the multipart "file" field within the upload limit
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, &pipeline.Error{
			Stage: pipeline.StageValidate,
			Kind:  pipeline.KindConfig,
			Err:   fmt.Errorf("%w: invalid multipart form: %w", errBadRequest, err),
		}
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, requestError("missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, requestError("failed to read upload: %v", err)
	}
	if len(data) == 0 {
		return nil, requestError("file is empty")
	}
	return data, nil
}

// handleNarration renders a document to WAV in one request
func (s *Server) handleNarration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	in, err := narrationForm{
		Voice: r.FormValue("voice"),
		Speed: r.FormValue("speed"),
		Pause: r.FormValue("pause"),
		Pages: r.FormValue("pages"),
	}.input(doc)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.narrator.Run(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	wav, err := audio.EncodeWAV(result.Waveform)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("X-Narration-Run", result.RunID)
	if s.store != nil {
		location, err := s.store.Save(r.Context(), wav, result.RunID+".wav")
		if err != nil {
			// The caller still gets the audio
			s.logger.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to store narration")
		} else {
			w.Header().Set("X-Narration-Location", location)
		}
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.WriteHeader(http.StatusOK)
	w.Write(wav)
}

// handleExtraction returns the cleaned text of a document
func (s *Server) handleExtraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pages, err := document.ParsePageSelection(r.FormValue("pages"))
	if err != nil {
		s.writeError(w, &pipeline.Error{Stage: pipeline.StageValidate, Kind: pipeline.KindConfig, Err: err})
		return
	}

	text, err := s.narrator.Extract(r.Context(), doc, pages)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}
