package relay

import (
	"encoding/json"
	"time"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
)

// Inbound intents. The set is closed; anything else is ignored.
const (
	IntentSignup       = "signup"
	IntentRequestLogin = "request_login"
	IntentVerifyLogin  = "verify_login"
	IntentAuth         = "auth"
	IntentMessage      = "message"
)

// Frame is the decoded inbound payload. Type selects the intent; the other
// fields are populated per intent and validated before dispatch.
type Frame struct {
	Type      string `json:"type"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
	OTP       string `json:"otp,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Per-intent views of Frame carrying the validation rules.
type signupFrame struct {
	Firstname string `json:"firstname" validate:"required,max=100"`
	Lastname  string `json:"lastname" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
}

type requestLoginFrame struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyLoginFrame struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

type authFrame struct {
	Token string `json:"token" validate:"required"`
}

// Outbound event shapes.

type loginRequestSentEvent struct {
	Type string `json:"type"`
}

type loginSuccessEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type loginFailedEvent struct {
	Type string `json:"type"`
}

// PresenceUser is one entry of a user_list_update broadcast.
type PresenceUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userListUpdateEvent struct {
	Type  string         `json:"type"`
	Users []PresenceUser `json:"users"`
}

type messageEvent struct {
	Type       string `json:"type"`
	SenderName string `json:"sender_name"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

func marshalLoginRequestSent() []byte {
	b, _ := json.Marshal(loginRequestSentEvent{Type: "login_request_sent"})
	return b
}

func marshalLoginSuccess(token string) []byte {
	b, _ := json.Marshal(loginSuccessEvent{Type: "login_success", Token: token})
	return b
}

func marshalLoginFailed() []byte {
	b, _ := json.Marshal(loginFailedEvent{Type: "login_failed"})
	return b
}

func marshalUserList(users []PresenceUser) []byte {
	if users == nil {
		users = []PresenceUser{}
	}
	b, _ := json.Marshal(userListUpdateEvent{Type: "user_list_update", Users: users})
	return b
}

func marshalMessage(m *entity.ChatMessage) []byte {
	b, _ := json.Marshal(messageEvent{
		Type:       "message",
		SenderName: m.SenderName,
		Message:    m.Body,
		Timestamp:  m.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	return b
}
