package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/simulex-engine/internal/attempt"
	"github.com/terra-clan/simulex-engine/internal/models"
	"github.com/terra-clan/simulex-engine/internal/timer"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Timer stream message types
const (
	msgState     = "state"
	msgTick      = "tick"
	msgExpired   = "expired"
	msgFinalized = "finalized"
	msgError     = "error"

	msgDraft  = "draft"
	msgSubmit = "submit"
)

// TimerMessage is exchanged on the timer stream. The server sends state,
// tick, expired, finalized and error; the client sends draft and submit.
type TimerMessage struct {
	Type       string          `json:"type"`
	Remaining  int             `json:"remaining,omitempty"`
	TimeLimit  int             `json:"timeLimit,omitempty"`
	Result     *models.Result  `json:"result,omitempty"`
	Submission models.Document `json:"submission,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// handleTimerWS streams the countdown of an attempt. The stream ends once the
// attempt is finalized, whether by expiry, by a submit on the stream or by a
// submit over HTTP. Closing the socket cancels the countdown and leaves the
// attempt open.
func (s *Server) handleTimerWS(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "id")

	a, err := s.tracker.Load(r.Context(), currentUserID(r), resultID)
	if err != nil {
		s.respondAttemptError(w, err, "load attempt")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	// the stream outlives the upgrade request
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	if a.Result.Completed {
		s.sendTimerMessage(conn, TimerMessage{Type: msgFinalized, Result: a.Result})
		return
	}

	tm := a.StartTimer(s.tracker.Clock())
	s.tracker.Watch(resultID, tm)
	defer tm.Cancel()

	s.logger.Info("timer stream connected", "result_id", resultID, "remaining", tm.Remaining())

	if err := s.sendTimerMessage(conn, TimerMessage{
		Type:      msgState,
		Remaining: tm.Remaining(),
		TimeLimit: tm.Limit(),
		Result:    a.Result,
	}); err != nil {
		return
	}

	incoming := make(chan TimerMessage)
	go s.readTimerMessages(ctx, cancel, conn, incoming)

	draft := a.Result.Submission
	ticks := tm.Ticks()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timer stream disconnected", "result_id", resultID)
			return

		case remaining, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			if err := s.sendTimerMessage(conn, TimerMessage{Type: msgTick, Remaining: remaining}); err != nil {
				return
			}

		case <-tm.Expired():
			s.expireOnStream(ctx, conn, a, draft)
			return

		case <-tm.Done():
			if tm.IsExpired() {
				s.expireOnStream(ctx, conn, a, draft)
				return
			}
			// finalized elsewhere
			s.sendStoredResult(ctx, conn, a)
			return

		case msg := <-incoming:
			switch msg.Type {
			case msgDraft:
				draft = msg.Submission
			case msgSubmit:
				s.submitOnStream(ctx, conn, a, msg.Submission, tm)
				return
			default:
				s.logger.Debug("ignoring timer message", "type", msg.Type)
			}
		}
	}
}

func (s *Server) readTimerMessages(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- TimerMessage) {
	defer cancel()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg TimerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("invalid timer message", "error", err)
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) expireOnStream(ctx context.Context, conn *websocket.Conn, a *attempt.Attempt, draft models.Document) {
	if err := s.sendTimerMessage(conn, TimerMessage{Type: msgExpired}); err != nil {
		s.logger.Debug("client gone before expiry notice", "result_id", a.Result.ID)
	}

	if _, err := s.tracker.Expire(ctx, a, draft); err != nil {
		s.logger.Error("failed to finalize expired attempt", "result_id", a.Result.ID, "error", err)
		s.sendTimerMessage(conn, TimerMessage{Type: msgError, Message: "failed to save result, please retry"})
		return
	}
	s.sendTimerMessage(conn, TimerMessage{Type: msgFinalized, Result: a.Result})
}

func (s *Server) submitOnStream(ctx context.Context, conn *websocket.Conn, a *attempt.Attempt, submission models.Document, tm *timer.Timer) {
	var err error
	if tm.IsExpired() || a.Expired(s.tracker.Clock().Now()) {
		_, err = s.tracker.Expire(ctx, a, submission)
	} else {
		_, err = s.tracker.Submit(ctx, a, submission)
	}
	if err != nil {
		s.logger.Error("failed to finalize submitted attempt", "result_id", a.Result.ID, "error", err)
		s.sendTimerMessage(conn, TimerMessage{Type: msgError, Message: "failed to save result, please retry"})
		return
	}
	s.sendTimerMessage(conn, TimerMessage{Type: msgFinalized, Result: a.Result})
}

func (s *Server) sendStoredResult(ctx context.Context, conn *websocket.Conn, a *attempt.Attempt) {
	stored, err := s.tracker.Load(ctx, a.Result.UserID, a.Result.ID)
	if err != nil {
		s.logger.Error("failed to reload result", "result_id", a.Result.ID, "error", err)
		s.sendTimerMessage(conn, TimerMessage{Type: msgError, Message: "failed to load result"})
		return
	}
	// countdown stopped by a finalize whose save failed
	if !stored.Result.Completed {
		s.sendTimerMessage(conn, TimerMessage{Type: msgError, Message: "failed to save result, please retry"})
		return
	}
	s.sendTimerMessage(conn, TimerMessage{Type: msgFinalized, Result: stored.Result})
}

func (s *Server) sendTimerMessage(conn *websocket.Conn, msg TimerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal timer message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("failed to send timer message", "error", err)
		return err
	}
	return nil
}
