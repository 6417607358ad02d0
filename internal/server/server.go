package server

import (
	"context"
	"log"

	"github.com/disasternet/chatd/internal/stats"
	"github.com/disasternet/chatd/internal/types"
)

const (
	StatActiveConnections = "ActiveConnections"
	StatMessagesTotal     = "MessagesTotal"
	StatDroppedSends      = "DroppedSends"
)

// ChatServer owns the registry, history and presence stores and dispatches
// all connection-originated events on a single goroutine. One event is fully
// handled, including enqueueing its broadcasts to every recipient, before
// the next event from any connection is processed.
type ChatServer struct {
	log      *log.Logger
	registry *ConnectionRegistry
	history  *HistoryBuffer
	presence *PresenceTracker
	sink     MessageSink
	stats    stats.StatsProvider
	conns    map[string]*Client

	eventChan chan *ClientMessage
	stop      chan struct{}
	done      chan struct{}
}

func NewChatServer(logger *log.Logger, sink MessageSink, su stats.StatsProvider) (*ChatServer, error) {
	su.RegisterMetric(StatActiveConnections)
	su.RegisterMetric(StatMessagesTotal)
	su.RegisterMetric(StatDroppedSends)

	return &ChatServer{
		log:       logger,
		registry:  NewConnectionRegistry(),
		history:   NewHistoryBuffer(DefaultHistoryCapacity),
		presence:  NewPresenceTracker(),
		sink:      sink,
		stats:     su,
		conns:     make(map[string]*Client),
		eventChan: make(chan *ClientMessage, 256),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case msg := <-cs.eventChan:
			cs.handleEvent(msg)
		case <-cs.stop:
			cs.log.Println("stopping clients")
			for _, c := range cs.conns {
				c.stopClient()
			}
			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) handleEvent(msg *ClientMessage) {
	switch {
	case msg.register:
		cs.handleRegister(msg.client)
	case msg.disconnect:
		cs.handleDisconnect(msg.client)
	case msg.Join != nil:
		cs.handleJoin(msg.client, msg.Join)
	case msg.SendMessage != nil:
		cs.handleSendMessage(msg.client, msg.SendMessage)
	case msg.Typing != nil:
		cs.handleTyping(msg.client, msg.Typing)
	}
}

// dispatch hands an event to the dispatch loop, giving up once the loop has
// exited so read pumps never block during shutdown.
func (cs *ChatServer) dispatch(msg *ClientMessage) {
	select {
	case cs.eventChan <- msg:
	case <-cs.done:
	}
}

// Register adds a freshly upgraded connection. The connection stays in the
// pre-join state until a join event arrives.
func (cs *ChatServer) Register(c *Client) {
	cs.dispatch(&ClientMessage{register: true, client: c})
}

func (cs *ChatServer) handleRegister(c *Client) {
	cs.log.Printf("new connection %q", c.id)
	cs.conns[c.id] = c
	cs.stats.Incr(StatActiveConnections)
}

func (cs *ChatServer) handleJoin(c *Client, join *JoinRequest) {
	if join.Username == "" || join.Room == "" {
		c.queueMessage(ErrInvalidJoin())
		return
	}

	prev, rejoined := cs.registry.Get(c.id)
	user := cs.registry.Join(c.id, join.Username, join.Room)
	cs.log.Printf("%s joined room %q", user.Username, user.Room)

	if rejoined && prev.Room != user.Room {
		// last join wins: the old room sees the user leave
		cs.presence.SetTyping(prev.Room, prev.Username, false)
		cs.broadcast(prev.Room, &ServerMessage{
			UserLeft: &UserLeft{Username: prev.Username, Timestamp: Now()},
		}, nil)
		cs.broadcastUserList(prev.Room)
	}

	// replay history to the joiner only
	c.queueMessage(&ServerMessage{
		History: &MessageHistory{Messages: cs.history.Snapshot()},
	})

	cs.broadcast(user.Room, &ServerMessage{
		UserJoined: &UserJoined{
			Username:  user.Username,
			Timestamp: Now(),
			UserCount: cs.registry.Len(),
		},
	}, c)

	cs.broadcastUserList(user.Room)
}

func (cs *ChatServer) handleSendMessage(c *Client, send *SendMessage) {
	user, ok := cs.registry.Get(c.id)
	if !ok {
		c.queueMessage(ErrNotJoined())
		return
	}

	msg := types.Message{
		ID:        newMessageID(),
		Username:  user.Username,
		Message:   send.Message,
		Timestamp: Now(),
		Room:      user.Room,
	}

	cs.history.Append(msg)
	cs.sink.Log(msg)
	cs.stats.Incr(StatMessagesTotal)

	// echo back to the sender as well
	cs.broadcast(user.Room, &ServerMessage{Receive: &msg}, nil)
}

func (cs *ChatServer) handleTyping(c *Client, typing *TypingRequest) {
	user, ok := cs.registry.Get(c.id)
	if !ok {
		c.queueMessage(ErrNotJoined())
		return
	}

	cs.presence.SetTyping(user.Room, user.Username, typing.IsTyping)

	cs.broadcast(user.Room, &ServerMessage{
		UserTyping: &UserTyping{Username: user.Username, IsTyping: typing.IsTyping},
	}, c)
}

func (cs *ChatServer) handleDisconnect(c *Client) {
	cs.log.Printf("connection %q closed", c.id)
	delete(cs.conns, c.id)
	cs.stats.Decr(StatActiveConnections)
	c.stopClient()

	user, ok := cs.registry.Remove(c.id)
	if !ok {
		// never joined, nothing to announce
		return
	}

	cs.presence.SetTyping(user.Room, user.Username, false)
	cs.broadcast(user.Room, &ServerMessage{
		UserLeft: &UserLeft{Username: user.Username, Timestamp: Now()},
	}, nil)
	cs.broadcastUserList(user.Room)
}

// broadcast enqueues msg to every connection joined to room, skipping skip.
// Sends are fire-and-forget: a client with a full send buffer loses the
// message rather than stalling delivery to the rest of the room.
func (cs *ChatServer) broadcast(room string, msg *ServerMessage, skip *Client) {
	for _, user := range cs.registry.ListByRoom(room) {
		c, ok := cs.conns[user.ID]
		if !ok || c == skip {
			continue
		}

		if !c.queueMessage(msg) {
			cs.stats.Incr(StatDroppedSends)
		}
	}
}

func (cs *ChatServer) broadcastUserList(room string) {
	cs.broadcast(room, &ServerMessage{
		UserList: &UserList{Users: cs.registry.ListByRoom(room)},
	}, nil)
}

// History returns a copy of the retained message history. Safe to call from
// outside the dispatch goroutine.
func (cs *ChatServer) History() []types.Message {
	return cs.history.Snapshot()
}

// Users returns every joined user across rooms.
func (cs *ChatServer) Users() []types.User {
	return cs.registry.ListAll()
}

// UserCount returns the number of joined users across rooms.
func (cs *ChatServer) UserCount() int {
	return cs.registry.Len()
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("shutting down chat server")
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
