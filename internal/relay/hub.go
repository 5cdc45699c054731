package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-realtime-relay/internal/application"
	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
	"github.com/oksasatya/go-realtime-relay/pkg/validation"
)

// Authenticator is the credential issuer the router delegates to.
type Authenticator interface {
	BeginSignup(ctx context.Context, firstname, lastname, email string) (application.Outcome, error)
	BeginLogin(ctx context.Context, email string) (application.Outcome, error)
	Verify(ctx context.Context, email, code string) (string, time.Time, error)
	Validate(token string) (string, error)
	Profile(ctx context.Context, userID string) (*entity.User, error)
}

// ChatStore accepts and replays chat messages.
type ChatStore interface {
	Submit(ctx context.Context, senderID, senderName, raw string) (*entity.ChatMessage, error)
	Recent(ctx context.Context, limit int) ([]entity.ChatMessage, error)
}

type inboundFrame struct {
	client *Client
	data   []byte
}

// Options tune per-connection transport behavior and the history window.
type Options struct {
	HistoryLimit int
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	SendBuffer   int
}

const (
	laneBuffer   = 256
	opTimeout    = 5 * time.Second
	eventBuffer  = 256
	rejoinBuffer = 256
)

// Hub is the single event-processing goroutine that owns the connection
// registry: connects, disconnects, frame dispatch, presence recomputes and
// chat fan-out all run to completion on it, one event at a time, which makes
// registry mutations race-free by construction.
//
// Storage and notifier calls are never made on the hub goroutine. They run on
// two FIFO worker lanes (auth flows and chat persistence) whose completions
// rejoin the loop as queued closures, so a slow database or mail queue cannot
// stall connects, disconnects or fan-out for unrelated connections. The chat
// lane is a single worker, which keeps persisted order identical to broadcast
// order.
type Hub struct {
	auth Authenticator
	chat ChatStore
	log  *logrus.Logger
	opts Options

	registry   *Registry
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	rejoin     chan func()
	authTasks  chan func()
	chatTasks  chan func()
	quit       chan struct{}
	done       chan struct{}
}

func NewHub(auth Authenticator, chat ChatStore, logger *logrus.Logger, opts Options) *Hub {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	return &Hub{
		auth:       auth,
		chat:       chat,
		log:        logger,
		opts:       opts,
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame, eventBuffer),
		rejoin:     make(chan func(), rejoinBuffer),
		authTasks:  make(chan func(), laneBuffer),
		chatTasks:  make(chan func(), laneBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// HandleConnection registers a freshly upgraded socket with the hub and spins
// up its read/write pumps.
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	c := &Client{
		id:           uuid.NewString(),
		hub:          h,
		socket:       conn,
		send:         make(chan []byte, h.opts.SendBuffer),
		writeTimeout: h.opts.WriteTimeout,
		pongTimeout:  h.opts.PongTimeout,
	}
	select {
	case h.register <- c:
	case <-h.quit:
		// Lost the race against shutdown; the loop will never accept us.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	go c.writePump()
	go c.readPump()
}

// Run processes events until Stop is called. It must run on exactly one
// goroutine.
func (h *Hub) Run() {
	go h.workLane(h.authTasks)
	go h.workLane(h.chatTasks)

	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.registry.OnConnect(c)
			h.log.WithField("connection_id", c.id).Debug("connection registered")
		case c := <-h.unregister:
			h.dropClient(c)
		case f := <-h.inbound:
			h.route(f.client, f.data)
		case fn := <-h.rejoin:
			fn()
		case <-h.quit:
			h.closeAll()
			close(h.authTasks)
			close(h.chatTasks)
			return
		}
	}
}

// Stop shuts the hub down; every live connection is closed.
func (h *Hub) Stop() {
	close(h.quit)
}

// Done is closed once the event loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) workLane(tasks chan func()) {
	for t := range tasks {
		t()
	}
}

// offload queues work on a lane; the closure work returns rejoins the event
// loop. A saturated lane drops the request rather than blocking the loop.
func (h *Hub) offload(lane chan func(), work func() func()) {
	task := func() {
		after := work()
		if after == nil {
			return
		}
		select {
		case h.rejoin <- after:
		case <-h.quit:
		}
	}
	select {
	case lane <- task:
	default:
		h.log.Warn("worker lane saturated, dropping request")
	}
}

// route classifies one inbound frame and dispatches it. Malformed or invalid
// frames and unknown intents are dropped silently, with a debug log so the
// silence stays observable.
func (h *Hub) route(c *Client, data []byte) {
	if !h.registry.Contains(c.id) {
		return
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		h.log.WithField("connection_id", c.id).Debug("undecodable frame, dropping")
		return
	}

	switch f.Type {
	case IntentSignup:
		req := signupFrame{Firstname: f.Firstname, Lastname: f.Lastname, Email: f.Email}
		if err := validation.Struct(req); err != nil {
			h.logRejected(c, f.Type, err)
			return
		}
		h.offload(h.authTasks, func() func() {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			defer cancel()
			out, err := h.auth.BeginSignup(ctx, req.Firstname, req.Lastname, req.Email)
			return func() { h.replyIssueOutcome(c, out, err) }
		})

	case IntentRequestLogin:
		req := requestLoginFrame{Email: f.Email}
		if err := validation.Struct(req); err != nil {
			h.logRejected(c, f.Type, err)
			return
		}
		h.offload(h.authTasks, func() func() {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			defer cancel()
			out, err := h.auth.BeginLogin(ctx, req.Email)
			return func() { h.replyIssueOutcome(c, out, err) }
		})

	case IntentVerifyLogin:
		req := verifyLoginFrame{Email: f.Email, OTP: f.OTP}
		if err := validation.Struct(req); err != nil {
			h.logRejected(c, f.Type, err)
			return
		}
		h.offload(h.authTasks, func() func() {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			defer cancel()
			token, _, err := h.auth.Verify(ctx, req.Email, req.OTP)
			return func() {
				if err != nil {
					h.trySend(c, marshalLoginFailed())
					return
				}
				h.trySend(c, marshalLoginSuccess(token))
			}
		})

	case IntentAuth:
		req := authFrame{Token: f.Token}
		if err := validation.Struct(req); err != nil {
			h.logRejected(c, f.Type, err)
			return
		}
		// Signature and expiry check is pure, no storage involved.
		userID, err := h.auth.Validate(req.Token)
		if err != nil {
			// Fail closed: an invalid credential never leaves a live,
			// half-authenticated connection behind.
			h.log.WithField("connection_id", c.id).Info("auth rejected, closing connection")
			h.dropClient(c)
			return
		}
		h.offload(h.authTasks, func() func() {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			defer cancel()
			u, perr := h.auth.Profile(ctx, userID)
			return func() { h.stageBind(c, u, perr) }
		})

	case IntentMessage:
		if !h.registry.IsBound(c.id) {
			// NotBound: deliberate silent drop, no feedback to the sender.
			h.log.WithField("connection_id", c.id).Debug("message from unbound connection, dropping")
			return
		}
		senderID, senderName, raw := c.userID, c.userName, f.Message
		h.offload(h.chatTasks, func() func() {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			defer cancel()
			m, err := h.chat.Submit(ctx, senderID, senderName, raw)
			return func() {
				if errors.Is(err, application.ErrEmptyMessage) {
					return
				}
				if err != nil {
					h.log.WithError(err).WithField("user_id", senderID).Error("message not persisted, skipping broadcast")
					return
				}
				h.broadcast(marshalMessage(m))
			}
		})

	default:
		h.log.WithField("intent", f.Type).Debug("unrecognized intent, ignoring")
	}
}

func (h *Hub) logRejected(c *Client, intent string, err error) {
	h.log.WithFields(logrus.Fields{
		"connection_id": c.id,
		"intent":        intent,
		"details":       validation.ToDetails(err),
	}).Debug("frame rejected by validation, dropping")
}

// replyIssueOutcome reports a signup/request_login outcome to the requester
// only. An unknown email stays externally silent (anti-enumeration); a
// rate-limited send looks sent so the cap is not observable either.
func (h *Hub) replyIssueOutcome(c *Client, out application.Outcome, err error) {
	if err != nil {
		h.log.WithError(err).WithField("connection_id", c.id).Error("challenge issue failed")
		return
	}
	switch out {
	case application.OutcomeSent, application.OutcomeRateLimited:
		h.trySend(c, marshalLoginRequestSent())
	case application.OutcomeUnknownEmail:
		// intended silence
	}
}

// stageBind runs on the event loop once the profile lookup has rejoined. The
// history fetch is queued on the chat lane so it is serialized with message
// persists: every message persisted before the fetch lands in the replay, and
// every message persisted after it rejoins behind the bind and reaches the
// connection as a live broadcast. Nothing can fall between replay and fan-out.
func (h *Hub) stageBind(c *Client, u *entity.User, err error) {
	if !h.registry.Contains(c.id) {
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("connection_id", c.id).Warn("user lookup failed during auth, closing connection")
		h.dropClient(c)
		return
	}
	h.offload(h.chatTasks, func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		history, herr := h.chat.Recent(ctx, h.opts.HistoryLimit)
		return func() { h.completeBind(c, u, history, herr) }
	})
}

// completeBind finishes a successful auth: bind, replay history to the new
// connection only, then recompute presence for everyone.
func (h *Hub) completeBind(c *Client, u *entity.User, history []entity.ChatMessage, err error) {
	if !h.registry.Contains(c.id) {
		return
	}
	if err != nil {
		// Bind anyway; a degraded replay beats a dead connection.
		h.log.WithError(err).WithField("connection_id", c.id).Warn("history fetch failed, binding without replay")
		history = nil
	}
	if berr := h.registry.Bind(c.id, u.ID, u.DisplayName()); berr != nil {
		h.log.WithError(berr).WithField("connection_id", c.id).Warn("bind rejected")
		return
	}
	for i := range history {
		h.trySend(c, marshalMessage(&history[i]))
	}
	h.log.WithFields(logrus.Fields{"connection_id": c.id, "user_id": u.ID}).Info("connection bound")
	h.broadcastPresence()
}

// broadcastPresence sends one consistent snapshot to every bound connection.
func (h *Hub) broadcastPresence() {
	h.broadcast(marshalUserList(h.registry.Snapshot()))
}

// broadcast fans a payload out to every bound connection. A failed delivery
// drops only that connection; the loop carries on.
func (h *Hub) broadcast(payload []byte) {
	for _, c := range h.registry.BoundClients() {
		h.trySend(c, payload)
	}
}

// trySend enqueues a payload for one connection. A full send buffer means the
// consumer is not draining; the connection is dropped rather than blocking
// the event loop.
func (h *Hub) trySend(c *Client, payload []byte) {
	if !h.registry.Contains(c.id) {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.log.WithField("connection_id", c.id).Warn("send buffer full, dropping connection")
		h.dropClient(c)
	}
}

// dropClient removes a connection and, if it was bound, recomputes presence.
func (h *Hub) dropClient(c *Client) {
	present, bound := h.registry.OnDisconnect(c.id)
	if !present {
		return
	}
	close(c.send)
	if c.socket != nil {
		_ = c.socket.Close()
	}
	h.log.WithFields(logrus.Fields{"connection_id": c.id, "bound": bound}).Debug("connection dropped")
	if bound {
		h.broadcastPresence()
	}
}

func (h *Hub) closeAll() {
	for _, c := range h.registry.All() {
		h.registry.OnDisconnect(c.id)
		close(c.send)
		if c.socket != nil {
			_ = c.socket.Close()
		}
	}
}
