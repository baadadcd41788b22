package wsrelay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/louisbranch/shadowtrack/internal/platform/timeouts"
	"github.com/louisbranch/shadowtrack/internal/services/combat/authority"
)

const defaultMaxTries = 5

// Client emits messages to a remote authority.
type Client struct {
	URL   string
	Token string
	// MaxTries bounds delivery attempts per message, including the first.
	MaxTries   uint
	AckTimeout time.Duration
	HTTPClient *http.Client
	// BackOff overrides the retry schedule. It is mostly useful in tests.
	BackOff func() backoff.BackOff

	mu   sync.Mutex
	conn *websocket.Conn
}

// EmitToAuthority sends msg and waits for its ack. Transport failures and
// retryable acks are retried; the returned ack is the last one received.
func (c *Client) EmitToAuthority(ctx context.Context, msg authority.Message) (authority.Ack, error) {
	requestID := messageRequestID(msg)
	attempt := 0
	operation := func() (authority.Ack, error) {
		attempt++
		ack, err := c.roundTrip(ctx, msg, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return authority.Ack{}, backoff.Permanent(ctx.Err())
			}
			log.Printf("wsrelay: emit %s attempt %d: %v", requestID, attempt, err)
			return authority.Ack{}, err
		}
		if ack.Failed() && ack.Retryable {
			return ack, fmt.Errorf("authority failed %s: %s", requestID, ack.Error)
		}
		return ack, nil
	}

	maxTries := c.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}
	ack, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(maxTries),
	)
	if err != nil && ack.Failed() {
		// Out of tries on a retryable ack: report the ack, not an error.
		return ack, nil
	}
	return ack, err
}

// Close closes the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	return err
}

func (c *Client) newBackOff() backoff.BackOff {
	if c.BackOff != nil {
		return c.BackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// roundTrip writes msg on the shared connection and reads until the ack for
// requestID arrives. Acks left over from an abandoned attempt are skipped.
func (c *Client) roundTrip(ctx context.Context, msg authority.Message, requestID string) (authority.Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return authority.Ack{}, err
	}
	timeout := c.AckTimeout
	if timeout <= 0 {
		timeout = timeouts.RelayAck
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		c.dropLocked()
		return authority.Ack{}, fmt.Errorf("write message: %w", err)
	}
	for {
		var ack authority.Ack
		if err := wsjson.Read(ctx, conn, &ack); err != nil {
			c.dropLocked()
			return authority.Ack{}, fmt.Errorf("read ack: %w", err)
		}
		if requestID == "" || ack.RequestID == "" || ack.RequestID == requestID {
			return ack, nil
		}
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	if c.URL == "" {
		return nil, backoff.Permanent(errors.New("authority url is required"))
	}
	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeouts.RelayDial)
	defer cancel()
	conn, resp, err := websocket.Dial(dialCtx, c.URL, &websocket.DialOptions{
		HTTPClient: c.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, backoff.Permanent(fmt.Errorf("dial authority: %w", ErrTokenInvalid))
		}
		return nil, fmt.Errorf("dial authority: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)
	c.conn = conn
	return conn, nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.CloseNow()
		c.conn = nil
	}
}

func messageRequestID(msg authority.Message) string {
	if msg.Kind != authority.KindCommand {
		return ""
	}
	cmd, err := authority.DecodeCommand(msg)
	if err != nil {
		return ""
	}
	return cmd.RequestID
}
