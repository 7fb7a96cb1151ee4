package catalog

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/openlobby/openlobby/internal/protocol"
)

// Client reaches the Catalog over a short-lived TCP connection per request,
// the way the Gateway and Lobby talk to the store.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient creates a client for the catalog at host:port.
func NewClient(host string, port int) *Client {
	return &Client{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: 10 * time.Second,
	}
}

// Do sends one request and returns the catalog's response. Transport faults
// are returned as errors; application failures come back in the message.
func (c *Client) Do(ctx context.Context, action, collection string, data map[string]any) (protocol.Message, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dialing catalog %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	pc := protocol.NewConn(conn)
	req := protocol.Message{
		"action":     action,
		"collection": collection,
		"data":       data,
	}
	if err := pc.WriteMessage(req); err != nil {
		return nil, fmt.Errorf("sending catalog request: %w", err)
	}
	resp, err := pc.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}
	return resp, nil
}
