package chatclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

// ErrQuit is returned by Handle when the user asked to leave.
var ErrQuit = errors.New("quit")

// Config configures the terminal client.
type Config struct {
	ServerURL string `env:"SERVER_URL,default=ws://localhost:5001/ws" validate:"required,url"`
	Username  string `env:"CHAT_USERNAME" validate:"required"`
	Origin    string `env:"CHAT_ORIGIN,default=http://localhost:5001" validate:"required,url"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Client is one terminal session against the relay.
type Client struct {
	log      *slog.Logger
	conn     *websocket.Conn
	renderer Renderer

	// mu guards view and serializes terminal output.
	mu   sync.Mutex
	view *View
}

// Dial connects to the relay. The Origin header is required by the server.
func Dial(ctx context.Context, cfg *Config, log *slog.Logger, out io.Writer) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", cfg.Origin)

	conn, resp, err := dialer.DialContext(ctx, cfg.ServerURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.ServerURL, err)
	}

	return &Client{
		log:      log,
		conn:     conn,
		renderer: NewRenderer(out),
		view:     NewView(cfg.Username),
	}, nil
}

// Join announces the configured username.
func (c *Client) Join() error {
	return c.emit(protocol.EventSetUsername, c.view.Username())
}

// Say broadcasts body to everyone.
func (c *Client) Say(body string) error {
	return c.emit(protocol.EventChatMessage, body)
}

// Whisper sends body to one user and echoes it into the local log.
func (c *Client) Whisper(to, body string) error {
	if err := c.emit(protocol.EventPrivate, protocol.PrivateRequest{To: to, Message: body}); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderer.Entry(*c.view.Whispered(to, body))
	return nil
}

// Typing reports the local typing state.
func (c *Client) Typing(isTyping bool) error {
	return c.emit(protocol.EventTyping, isTyping)
}

// Handle runs one line of user input:
//
//	/w <user> <text>   private message
//	/users             list who is online
//	/quit              leave
//	anything else      chat message
func (c *Client) Handle(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	switch {
	case line == "/quit":
		return ErrQuit
	case line == "/users":
		c.mu.Lock()
		defer c.mu.Unlock()
		c.renderer.Users(c.view.Users())
		return nil
	case strings.HasPrefix(line, "/w "):
		parts := strings.SplitN(strings.TrimPrefix(line, "/w "), " ", 2)
		if len(parts) != 2 || parts[1] == "" {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.renderer.Entry(Entry{System: true, Message: "usage: /w <user> <text>"})
			return nil
		}
		return c.sendTyped(func() error { return c.Whisper(parts[0], parts[1]) })
	default:
		return c.sendTyped(func() error { return c.Say(line) })
	}
}

func (c *Client) sendTyped(send func() error) error {
	if err := c.Typing(true); err != nil {
		return err
	}
	if err := send(); err != nil {
		return err
	}
	return c.Typing(false)
}

// Listen applies server events to the view until the connection closes or
// ctx is done.
func (c *Client) Listen(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		envelope, err := protocol.Decode(frame)
		if err != nil {
			c.log.Warn("Invalid frame from server", "error", err)
			continue
		}
		c.apply(envelope)
	}
}

func (c *Client) apply(envelope protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.view.Apply(envelope)
	if err != nil {
		c.log.Warn("Invalid event payload", "event", envelope.Event, "error", err)
		return
	}
	if entry != nil {
		c.renderer.Entry(*entry)
	}
	if envelope.Event == protocol.EventUserTyping {
		c.renderer.Typing(c.view.TypingLine())
	}
}

// Close sends a normal close frame and closes the connection.
func (c *Client) Close() error {
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if closeErr := c.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (c *Client) emit(event string, data any) error {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send %q: %w", event, err)
	}
	return nil
}
