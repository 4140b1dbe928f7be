package comms

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// ErrSendBufferFull is returned when a connection can't keep up with its
// outbound messages.
var ErrSendBufferFull = errors.New("send buffer full")

// Conn is a participant's live connection. Send must not block.
type Conn interface {
	ID() string
	Send(message Message) error
	Close() error
}

// SocketOptions tunes a ConnectionWrapper.
type SocketOptions struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	MaxMessageSize int64
	// OnPong is called whenever the client answers a control ping.
	OnPong func()
}

// ConnectionWrapper wraps a client websocket connection, handling communication.
// Writes are queued on WriteChannel and flushed by a single writer goroutine.
type ConnectionWrapper struct {
	Socket       *websocket.Conn
	WriteChannel chan Message
	PlayerID     string

	id        string
	log       *zap.Logger
	opts      SocketOptions
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewConnectionWrapper wraps socket and starts its write pump.
func NewConnectionWrapper(socket *websocket.Conn, playerID string, opts SocketOptions, log *zap.Logger) *ConnectionWrapper {
	c := &ConnectionWrapper{
		Socket:       socket,
		WriteChannel: make(chan Message, opts.SendBuffer),
		PlayerID:     playerID,
		id:           uuid.NewString(),
		log:          log,
		opts:         opts,
	}

	socket.SetReadLimit(opts.MaxMessageSize)
	c.extendReadDeadline()
	socket.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		if opts.OnPong != nil {
			opts.OnPong()
		}
		return nil
	})

	go c.writePump()
	return c
}

func (c *ConnectionWrapper) ID() string {
	return c.id
}

// ReadMessage blocks for the next inbound frame. Any frame extends the read
// deadline.
func (c *ConnectionWrapper) ReadMessage() ([]byte, error) {
	_, data, err := c.Socket.ReadMessage()
	if err == nil {
		c.extendReadDeadline()
	}
	return data, err
}

// Send queues a message for the client without blocking.
func (c *ConnectionWrapper) Send(message Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.WriteChannel <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops accepting messages. Queued messages are flushed and a close
// frame sent before the socket is closed; Close does not wait for that.
// It is safe to call more than once.
func (c *ConnectionWrapper) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.WriteChannel)
	}
	return nil
}

func (c *ConnectionWrapper) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.Socket.Close()
	})
	return err
}

func (c *ConnectionWrapper) extendReadDeadline() {
	if err := c.Socket.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		c.log.Debug("Unable to set read deadline", zap.Error(err))
	}
}

func (c *ConnectionWrapper) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case message, ok := <-c.WriteChannel:
			c.Socket.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				_ = c.Socket.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Socket.WriteJSON(message); err != nil {
				c.log.Debug("Error writing message",
					zap.String("player_id", c.PlayerID),
					zap.String("type", message.Type),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
