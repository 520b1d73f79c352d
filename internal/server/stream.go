package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lexiqai/doc-narrator/internal/audio"
	"github.com/lexiqai/doc-narrator/internal/pipeline"
	"github.com/rs/zerolog"
)

const (
	startTimeout = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients are served from other origins
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Stream events. The client sends start and may send stop; the server sends
// progress events followed by exactly one result or error.
const (
	EventStart    = "start"
	EventStop     = "stop"
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// StreamMessage is one message on the narration stream
type StreamMessage struct {
	Event string `json:"event"`

	// start
	Document string   `json:"document,omitempty"` // Base64 encoded PDF
	Voice    string   `json:"voice,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Pause    *float64 `json:"pause,omitempty"`
	Pages    string   `json:"pages,omitempty"` // 1-indexed selection such as "1-3"

	// progress, result
	RunID    string `json:"run_id,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Page     int    `json:"page,omitempty"` // 1-indexed
	Total    int    `json:"total,omitempty"`
	Attempts int    `json:"attempts,omitempty"`

	// result
	Audio     string  `json:"audio,omitempty"` // Base64 encoded WAV
	Narration string  `json:"narration,omitempty"`
	Duration  float64 `json:"duration,omitempty"` // Seconds of audio
	Location  string  `json:"location,omitempty"`

	// error
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// streamSession holds the state of one streamed narration
type streamSession struct {
	conn      *websocket.Conn
	sessionID string
	logger    zerolog.Logger

	// gorilla/websocket allows one concurrent writer
	writeMu sync.Mutex
}

func newStreamSession(conn *websocket.Conn, logger zerolog.Logger) *streamSession {
	sessionID := fmt.Sprintf("stream-%s", uuid.New().String())
	return &streamSession{
		conn:      conn,
		sessionID: sessionID,
		logger:    logger.With().Str("session_id", sessionID).Logger(),
	}
}

func (s *streamSession) send(msg StreamMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *streamSession) sendError(err error) {
	resp := toErrorResponse(err)
	if sendErr := s.send(StreamMessage{Event: EventError, Error: resp.Error, Kind: resp.Kind, Stage: resp.Stage}); sendErr != nil {
		s.logger.Warn().Err(sendErr).Msg("Failed to send error event")
	}
}

// readStart waits for the start message
func (s *streamSession) readStart() (StreamMessage, error) {
	s.conn.SetReadDeadline(time.Now().Add(startTimeout))
	defer s.conn.SetReadDeadline(time.Time{})

	var msg StreamMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return msg, fmt.Errorf("failed to read start message: %w", err)
	}
	if msg.Event != EventStart {
		return msg, requestError("expected %q event, got %q", EventStart, msg.Event)
	}
	return msg, nil
}

// watch reads client messages until stop or disconnect and then cancels the run
func (s *streamSession) watch(cancel context.CancelFunc) {
	defer cancel()
	for {
		var msg StreamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		switch msg.Event {
		case EventStop:
			s.logger.Info().Msg("Client stopped narration")
			return
		default:
			s.logger.Warn().Str("event", msg.Event).Msg("Ignoring unexpected stream event")
		}
	}
}

// handleStream runs one narration per WebSocket connection
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxUploadBytes() * 2) // Base64 overhead

	session := newStreamSession(conn, s.logger)
	session.logger.Info().Msg("Narration stream connected")

	start, err := session.readStart()
	if err != nil {
		session.logger.Warn().Err(err).Msg("Invalid stream start")
		session.sendError(err)
		return
	}

	in, err := start.input()
	if err != nil {
		session.sendError(err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go session.watch(cancel)

	in.OnProgress = func(p pipeline.Progress) {
		msg := StreamMessage{
			Event:    EventProgress,
			RunID:    p.RunID,
			Stage:    string(p.Stage),
			Total:    p.Total,
			Attempts: p.Attempts,
		}
		if p.Stage == pipeline.StageFormat {
			msg.Page = p.Page + 1
		}
		if err := session.send(msg); err != nil {
			session.logger.Warn().Err(err).Msg("Failed to send progress event")
		}
	}

	result, err := s.narrator.Run(ctx, in)
	if err != nil {
		session.sendError(err)
		return
	}

	wav, err := audio.EncodeWAV(result.Waveform)
	if err != nil {
		session.sendError(err)
		return
	}

	msg := StreamMessage{
		Event:     EventResult,
		RunID:     result.RunID,
		Audio:     base64.StdEncoding.EncodeToString(wav),
		Narration: result.Narration,
		Duration:  result.Waveform.Duration().Seconds(),
	}
	if s.store != nil {
		if location, err := s.store.Save(ctx, wav, result.RunID+".wav"); err != nil {
			session.logger.Error().Err(err).Msg("Failed to store narration")
		} else {
			msg.Location = location
		}
	}

	if err := session.send(msg); err != nil {
		session.logger.Warn().Err(err).Msg("Failed to send result")
		return
	}

	session.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeTimeout))
	session.writeMu.Unlock()
	session.logger.Info().Str("run_id", result.RunID).Msg("Narration stream completed")
}

// input converts a start message into a pipeline input
func (m StreamMessage) input() (pipeline.Input, error) {
	doc, err := base64.StdEncoding.DecodeString(m.Document)
	if err != nil {
		return pipeline.Input{}, requestError("document is not valid base64: %v", err)
	}
	if len(doc) == 0 {
		return pipeline.Input{}, requestError("document is empty")
	}

	form := narrationForm{Voice: m.Voice, Pages: m.Pages}
	in, err := form.input(doc)
	if err != nil {
		return in, err
	}
	if m.Speed != nil {
		in.Speed = *m.Speed
	}
	if m.Pause != nil {
		if *m.Pause < 0 {
			return in, requestError("pause must not be negative")
		}
		in.PauseSeconds = *m.Pause
	}
	return in, nil
}
