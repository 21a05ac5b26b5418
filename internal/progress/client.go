package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

// Client is a synchronous request/reply connection to a Server: every send
// blocks until the server's acknowledgement arrives, so a client never races
// ahead of a server ack.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	encoder *json.Encoder
}

// Dial connects to a progress Server listening at addr (host:port).
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial progress service: %w", err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		encoder: json.NewEncoder(conn),
	}, nil
}

// Send issues one request and waits for its reply.
func (c *Client) Send(req Request) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.encoder.Encode(req); err != nil {
		return Reply{}, fmt.Errorf("send progress request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return Reply{}, fmt.Errorf("read progress reply: %w", err)
	}
	var reply Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode progress reply: %w", err)
	}
	return reply, nil
}

// Close shuts down the underlying connection without sending a close command.
func (c *Client) Close() error {
	return c.conn.Close()
}
