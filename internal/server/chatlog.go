package server

import (
	"fmt"
	"io"
	"log"

	"github.com/disasternet/chatd/internal/types"
	"gopkg.in/natefinch/lumberjack.v2"
)

const chatLogBufferSize = 512

// MessageSink receives every accepted message for durable logging.
// Implementations must not block the caller and must never fail a broadcast.
type MessageSink interface {
	Log(msg types.Message)
}

// ChatLog appends one line per accepted message to a size-rotated log file.
// Writes happen on a dedicated goroutine behind a buffered channel so a slow
// or failing disk cannot stall room activity.
type ChatLog struct {
	log     *log.Logger
	w       io.WriteCloser
	entries chan types.Message
	done    chan struct{}
}

func NewChatLog(logger *log.Logger, path string) *ChatLog {
	return &ChatLog{
		log: logger,
		w: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		},
		entries: make(chan types.Message, chatLogBufferSize),
		done:    make(chan struct{}),
	}
}

func (cl *ChatLog) Run() {
	go cl.drain()
}

func (cl *ChatLog) drain() {
	defer close(cl.done)

	for msg := range cl.entries {
		line := fmt.Sprintf("[%s] %s: %s\n", msg.Timestamp, msg.Username, msg.Message)
		if _, err := cl.w.Write([]byte(line)); err != nil {
			cl.log.Println("chat log write:", err)
		}
	}
}

// Log enqueues msg for writing. A full buffer drops the entry with a warning
// rather than blocking the dispatch loop.
func (cl *ChatLog) Log(msg types.Message) {
	select {
	case cl.entries <- msg:
	default:
		cl.log.Println("chat log buffer full, dropping entry")
	}
}

// Close flushes pending entries and closes the underlying file. Log must not
// be called after Close.
func (cl *ChatLog) Close() error {
	close(cl.entries)
	<-cl.done
	return cl.w.Close()
}
