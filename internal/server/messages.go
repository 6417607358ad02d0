package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/disasternet/chatd/internal/types"
)

// isoTimeLayout matches the millisecond-precision ISO-8601 format used on
// the wire and in the chat log.
const isoTimeLayout = "2006-01-02T15:04:05.000Z"

// ClientMessage is the closed set of events a client may send. Exactly one
// payload field is set per message; anything else is rejected at the
// boundary before reaching the dispatch loop.
type ClientMessage struct {
	Join        *JoinRequest   `json:"join,omitempty"`
	SendMessage *SendMessage   `json:"send-message,omitempty"`
	Typing      *TypingRequest `json:"typing,omitempty"`

	client     *Client
	register   bool
	disconnect bool
}

type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type SendMessage struct {
	Message string `json:"message"`
}

type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

// valid reports whether exactly one client event payload is present.
func (m *ClientMessage) valid() bool {
	var n int
	if m.Join != nil {
		n++
	}
	if m.SendMessage != nil {
		n++
	}
	if m.Typing != nil {
		n++
	}
	return n == 1
}

// ServerMessage is the closed set of events sent to clients. Exactly one
// field is set per message.
type ServerMessage struct {
	History    *MessageHistory `json:"message-history,omitempty"`
	Receive    *types.Message  `json:"receive-message,omitempty"`
	UserJoined *UserJoined     `json:"user-joined,omitempty"`
	UserLeft   *UserLeft       `json:"user-left,omitempty"`
	UserList   *UserList       `json:"user-list,omitempty"`
	UserTyping *UserTyping     `json:"user-typing,omitempty"`
	Response   *Response       `json:"response,omitempty"`
}

type MessageHistory struct {
	Messages []types.Message `json:"messages"`
}

type UserJoined struct {
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	UserCount int    `json:"userCount"`
}

type UserLeft struct {
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type UserList struct {
	Users []types.User `json:"users"`
}

type UserTyping struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// Response carries the outcome of a client event back to the originating
// connection only. Room-state errors are never broadcast.
type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

func ErrInvalidJoin() *ServerMessage {
	return &ServerMessage{
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid join request",
		},
	}
}

func ErrNotJoined() *ServerMessage {
	return &ServerMessage{
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "not joined",
		},
	}
}

func ErrInvalidMessage() *ServerMessage {
	return &ServerMessage{
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}
}

// Now returns the current UTC time as an ISO-8601 string.
func Now() string {
	return time.Now().UTC().Format(isoTimeLayout)
}

// newMessageID derives a message ID from the current time in milliseconds.
// IDs may collide under clock coincidence; history makes no uniqueness claim.
func newMessageID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
