package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/phlux/internal/counter"
	"github.com/grovetools/phlux/pkg/persist"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/sirupsen/logrus"
)

const (
	writeWait        = 5 * time.Second
	defaultTickDelay = 1000
)

// command is a client request.
type command struct {
	Op      string `json:"op"`
	N       int    `json:"n,omitempty"`
	DelayMS int    `json:"delay_ms,omitempty"`
}

// message is sent to the client.
type message struct {
	Type   string         `json:"type"`
	Key    phlux.Key      `json:"key,omitempty"`
	Origin string         `json:"origin,omitempty"`
	State  *counter.State `json:"state,omitempty"`
	Error  string         `json:"error,omitempty"`
}

const (
	originCreated  = "created"
	originResumed  = "resumed"
	originRestored = "restored"
)

type session struct {
	server *Server
	conn   *websocket.Conn
	handle *phlux.Handle[counter.State]
	sub    phlux.Subscription
	logger *logrus.Entry

	writeMu sync.Mutex
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	sess := &session{server: s, conn: conn}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.wg.Add(1)
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	defer s.wg.Done()

	h, origin, err := s.open(r.Context(), phlux.Key(r.URL.Query().Get("key")))
	if err != nil {
		s.logger.WithError(err).Warn("Failed to open scope")
		sess.send(message{Type: "error", Error: err.Error()})
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		conn.Close()
		return
	}

	sess.handle = h
	sess.logger = s.logger.WithField("scope", string(h.Key())).WithField("remote", r.RemoteAddr)
	sess.logger.WithField("origin", origin).Info("Session opened")

	sess.send(message{Type: "hello", Key: h.Key(), Origin: origin})
	sess.sub = h.Register(sess.deliver)
	sess.run()
}

// open creates, resumes or restores the scope for a new session.
func (s *Server) open(ctx context.Context, key phlux.Key) (*phlux.Handle[counter.State], string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		h := phlux.New(s.store, counter.State{})
		s.attached[h.Key()]++
		return h, originCreated, nil
	}

	if e, ok := s.pending[key]; ok {
		e.timer.Stop()
		delete(s.pending, key)
	}
	if h, err := phlux.Attach[counter.State](s.store, key); err == nil {
		s.attached[key]++
		return h, originResumed, nil
	}

	bundle, err := persist.Load(ctx, s.repo, s.codec, key)
	if err != nil {
		return nil, "", err
	}
	h, err := phlux.Restore[counter.State](s.store, s.codec, bundle)
	if err != nil {
		return nil, "", err
	}
	s.attached[key]++
	return h, originRestored, nil
}

func (sess *session) run() {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			sess.logger.WithError(err).Debug("Connection dropped")
			sess.disconnect()
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			sess.send(message{Type: "error", Error: "malformed command"})
			continue
		}

		if cmd.Op == "quit" {
			sess.quit()
			return
		}
		if err := sess.dispatch(cmd); err != nil {
			sess.send(message{Type: "error", Error: err.Error()})
		}
	}
}

func (sess *session) dispatch(cmd command) error {
	h := sess.handle
	switch cmd.Op {
	case "add":
		n := cmd.N
		if n == 0 {
			n = 1
		}
		h.Apply(counter.Add(n))
	case "tick":
		delay := cmd.DelayMS
		if delay <= 0 {
			delay = defaultTickDelay
		}
		step := cmd.N
		if step == 0 {
			step = 1
		}
		h.Background(counter.TickID, counter.Tick{DelayMS: delay, Step: step})
	case "drop":
		h.Drop(counter.TickID)
	case "state":
		st, err := h.State()
		if err != nil {
			return err
		}
		sess.send(message{Type: "state", Key: h.Key(), State: &st})
	default:
		return fmt.Errorf("unknown op '%s'", cmd.Op)
	}
	return nil
}

func (sess *session) deliver(st counter.State) {
	sess.send(message{Type: "state", Key: sess.handle.Key(), State: &st})
}

func (sess *session) send(msg message) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteJSON(msg); err != nil && sess.logger != nil {
		sess.logger.WithError(err).Debug("Failed to write message")
	}
}

// disconnect handles a connection that went away without quitting. The scope
// is saved and kept for the grace period once no other session holds it.
func (sess *session) disconnect() {
	s := sess.server
	h := sess.handle
	h.Unregister(sess.sub)
	sess.conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sess)
	key := h.Key()
	if s.attached[key]--; s.attached[key] > 0 {
		return
	}
	delete(s.attached, key)
	if _, live := s.store.Get(key); !live {
		return
	}

	if err := persist.Save(context.Background(), s.repo, s.codec, h); err != nil {
		sess.logger.WithError(err).Error("Failed to save scope")
	}

	if s.grace <= 0 {
		s.store.Remove(key)
		return
	}
	e := &expiry{}
	s.pending[key] = e
	e.timer = time.AfterFunc(s.grace, func() { s.expire(key, e) })
	sess.logger.WithField("grace", s.grace.String()).Debug("Scope kept for resumption")
}

// expiry is one armed grace period. Its identity, not the timer, tells a
// firing callback whether it was superseded. timer is guarded by Server.mu.
type expiry struct {
	timer *time.Timer
}

// expire removes a scope whose grace period ran out. The saved copy stays in
// the repository.
func (s *Server) expire(key phlux.Key, e *expiry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[key] != e {
		return
	}
	delete(s.pending, key)
	if s.attached[key] > 0 {
		return
	}
	s.store.Remove(key)
	s.logger.WithField("scope", string(key)).Debug("Grace period expired")
}

// quit disposes of the scope for good.
func (sess *session) quit() {
	s := sess.server
	h := sess.handle
	key := h.Key()
	h.Unregister(sess.sub)

	s.mu.Lock()
	delete(s.sessions, sess)
	delete(s.attached, key)
	h.Remove()
	s.mu.Unlock()

	if err := s.repo.Delete(context.Background(), key); err != nil {
		sess.logger.WithError(err).Warn("Failed to delete saved scope")
	}

	sess.logger.Info("Session closed")
	sess.send(message{Type: "bye", Key: key})
	sess.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	sess.conn.Close()
}
