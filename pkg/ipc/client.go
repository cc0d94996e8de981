package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client issues requests over one socket connection, one at a time.
type Client struct {
	mu       sync.Mutex
	conn     net.Conn
	maxFrame int
}

// Dial connects to the daemon socket.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return &Client{conn: conn, maxFrame: DefaultMaxFrameSize}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends method with params and decodes the result into out, which may
// be nil. A daemon-side failure is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	resp, err := c.Do(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// Do sends a request and returns the raw response.
func (c *Client) Do(ctx context.Context, method string, params any) (*Response, error) {
	req := Request{ID: NewTraceID(), Type: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", method, err)
		}
		req.Params = raw
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := writeFrame(c.conn, payload); err != nil {
		return nil, err
	}
	frame, err := readFrame(c.conn, c.maxFrame)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// Subscribe starts a stream and calls fn with every event result until fn
// returns false, the stream ends or ctx is done. The client is unusable for
// other calls afterwards.
func (c *Client) Subscribe(ctx context.Context, method string, params any, fn func(json.RawMessage) bool) error {
	if _, err := c.Do(ctx, method, params); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()
	for {
		frame, err := readFrame(c.conn, c.maxFrame)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var resp Response
		if err := json.Unmarshal(frame, &resp); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if !fn(resp.Result) {
			return nil
		}
	}
}
