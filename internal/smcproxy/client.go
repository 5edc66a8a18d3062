package smcproxy

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// Client issues calls to a smcproxy server.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to a server's Unix socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("smcproxy: dial %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Call sends one call and returns the response registers.
func (c *Client) Call(id uint32, args [4]uint64) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := struct {
		ID   uint32
		Args [4]uint64
	}{ID: id, Args: args}
	if err := binary.Write(c.conn, binary.LittleEndian, frame); err != nil {
		return nil, fmt.Errorf("smcproxy: write request: %w", err)
	}

	var count uint8
	if err := binary.Read(c.conn, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("smcproxy: read response: %w", err)
	}
	if count == 0 || count > 4 {
		return nil, fmt.Errorf("smcproxy: bad register count %d", count)
	}
	regs := make([]uint64, count)
	if err := binary.Read(c.conn, binary.LittleEndian, regs); err != nil {
		return nil, fmt.Errorf("smcproxy: read registers: %w", err)
	}
	return regs, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
