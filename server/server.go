// Package server exposes the retrieval-augmented chat pipeline over
// WebSocket. Each inbound message runs one ask-turn; response deltas are
// streamed back as individual frames so a browser client renders tokens as
// they arrive, exactly like the terminal session does.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/becomeliminal/recall-go/llm"
	"github.com/becomeliminal/recall-go/memory"
	"github.com/becomeliminal/recall-go/session"
)

// Config holds server parameters.
type Config struct {
	// ListenAddr is the bind address, e.g. ":8080".
	ListenAddr string

	// Model is the generation model identifier.
	Model string

	// AskTopK is the context fragment count per turn. Default: 2.
	AskTopK int
}

// Server serves /ws and /health.
type Server struct {
	store     memory.Store
	generator llm.Generator
	config    Config
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// New creates a server.
func New(store memory.Store, generator llm.Generator, config Config, logger *zap.Logger) *Server {
	if config.AskTopK == 0 {
		config.AskTopK = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     store,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// askFrame is one inbound chat message.
type askFrame struct {
	Message string `json:"message"`
}

// replyFrame is one outbound frame: a delta, a completion marker, or an
// error. Exactly one of Delta/Error is set per frame.
type replyFrame struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler returns the HTTP handler, separate from Run so tests can mount it
// on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	s.logger.Info("chat server listening", zap.String("addr", s.config.ListenAddr))
	return http.ListenAndServe(s.config.ListenAddr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWS upgrades the connection and serves ask-turns until the client
// goes away or a turn hits a transport error.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("client connected", zap.String("remote", conn.RemoteAddr().String()))

	for {
		var frame askFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.logger.Debug("client disconnected", zap.Error(err))
			return
		}
		if strings.TrimSpace(frame.Message) == "" {
			continue
		}

		if err := s.serveTurn(r.Context(), conn, frame.Message); err != nil {
			// Transport errors mirror the terminal session: report and end
			// the conversation.
			s.logger.Warn("turn failed", zap.Error(err))
			conn.WriteJSON(replyFrame{Error: err.Error()})
			return
		}
	}
}

// serveTurn runs one retrieval-augmented generation turn and streams the
// deltas to the client.
func (s *Server) serveTurn(ctx context.Context, conn *websocket.Conn, question string) error {
	fragments, err := s.store.Search(ctx, question, s.config.AskTopK)
	if err != nil {
		s.logger.Warn("retrieval failed, continuing without context", zap.Error(err))
		fragments = nil
	}

	texts := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		texts = append(texts, frag.Text)
	}
	prompt := session.BuildPrompt(strings.Join(texts, "\n"), question)

	stream, err := s.generator.Generate(ctx, llm.Request{
		Model:  s.config.Model,
		Prompt: prompt,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		delta := stream.Current()
		if delta.Text != "" {
			if err := conn.WriteJSON(replyFrame{Delta: delta.Text}); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}

	return conn.WriteJSON(replyFrame{Done: true})
}
