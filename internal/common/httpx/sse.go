package httpx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var KeepAlive = 15 * time.Second

// Latest is a one-slot mailbox: Put replaces an undelivered value instead of
// blocking. It suits live queries, where only the newest result matters.
// Put must be called from a single goroutine.
type Latest[T any] struct {
	ch chan T
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

func (l *Latest[T]) Put(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

func (l *Latest[T]) C() <-chan T { return l.ch }

// Stream writes every value received on updates as an SSE event named event
// until the client goes away.
func Stream[T any](c *gin.Context, event string, updates <-chan T) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ping := time.NewTicker(KeepAlive)
	defer ping.Stop()
	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case v := <-updates:
			c.SSEvent(event, v)
			c.Writer.Flush()
		case <-ping.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
