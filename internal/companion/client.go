package companion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Client talks to a registry server. It holds no connection; every call
// opens a fresh socket, sends one request and waits for one reply.
type Client struct {
	addr    string
	timeout time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout bounds every call that has no context deadline. Zero blocks.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for the registry at addr
func NewClient(addr string, opts ...ClientOption) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	c := &Client{addr: addr}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the registry address
func (c *Client) Addr() string {
	return c.addr
}

// Get fetches the value registered under key
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.Do(ctx, &Request{Op: OpGet, Key: key})
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case StatusString:
		return resp.Value, nil
	case StatusNotFound:
		return nil, &NotFoundError{Key: key}
	default:
		return nil, unexpected(resp)
	}
}

// Set registers value under key
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	resp, err := c.Do(ctx, &Request{Op: OpSet, Key: key, Value: value})
	if err != nil {
		return err
	}
	if resp.Status != StatusAck {
		return unexpected(resp)
	}
	return nil
}

// List returns the registered keys starting with prefix
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	resp, err := c.Do(ctx, &Request{Op: OpList, Key: prefix})
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusKeys {
		return nil, unexpected(resp)
	}
	if resp.Keys == nil {
		return []string{}, nil
	}
	return resp.Keys, nil
}

// Ping checks that a registry answers at the configured address
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Do(ctx, &Request{Op: OpPing})
	if err != nil {
		return err
	}
	if resp.Status != StatusPong {
		return unexpected(resp)
	}
	return nil
}

// Do performs a single request/reply exchange. Replies carrying another
// request id are dropped.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	req.ID = uuid.NewString()
	data, err := MarshalRequest(req)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.addr)
	if err != nil {
		return nil, c.unavailable(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(data); err != nil {
		return nil, c.unavailable(err)
	}

	buf := make([]byte, MaxPayload)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, c.unavailable(ctxErr)
			}
			return nil, c.unavailable(err)
		}
		resp, err := UnmarshalResponse(buf[:n])
		if err != nil {
			return nil, err
		}
		if resp.ID != req.ID {
			continue
		}
		return resp, nil
	}
}

func (c *Client) unavailable(err error) error {
	return fmt.Errorf("%w at %s: %v", ErrUnavailable, c.addr, err)
}

func unexpected(resp *Response) error {
	if resp.Status == StatusError {
		return errors.New(resp.Message)
	}
	return fmt.Errorf("unexpected registry response status %d", resp.Status)
}
