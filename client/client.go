// Package client is a minimal programmatic client for the msgboard protocol:
// handshake, framed calls, and the content validation servers expect clients
// to perform. Interactive front ends wrap it; the end-to-end tests drive it.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"msgboard/auth"
	"msgboard/models"
	"msgboard/protocol"
)

var ErrServerFull = errors.New("server is at capacity")

type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects and consumes the handshake line. A capacity rejection closes
// the transport and returns ErrServerFull.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(timeout))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	switch strings.TrimRight(line, "\r\n") {
	case protocol.HandshakeAccepted:
	case protocol.HandshakeRejected:
		conn.Close()
		return nil, ErrServerFull
	default:
		conn.Close()
		return nil, fmt.Errorf("handshake: unexpected line %q", line)
	}
	conn.SetReadDeadline(time.Time{})

	return &Client{conn: conn, reader: reader}, nil
}

func (c *Client) do(req *protocol.Request) (*protocol.Response, error) {
	if err := protocol.WriteRequest(c.conn, req); err != nil {
		return nil, err
	}
	return protocol.ReadResponse(c.reader)
}

// Login hashes the password and authenticates as name.
func (c *Client) Login(name, password string) (*protocol.Response, error) {
	data, err := protocol.EncodeCredentials(models.Credentials{
		Name:   name,
		Digest: auth.Digest(password),
	})
	if err != nil {
		return nil, err
	}
	return c.do(&protocol.Request{Op: protocol.OpLogin, Data: data})
}

func (c *Client) Logout() (*protocol.Response, error) {
	return c.do(&protocol.Request{Op: protocol.OpLogout})
}

func (c *Client) ListUsers() (*protocol.Response, error) {
	return c.do(&protocol.Request{Op: protocol.OpDisplayAllUsers})
}

func (c *Client) ListOnlineUsers() (*protocol.Response, error) {
	return c.do(&protocol.Request{Op: protocol.OpDisplayOnlineUsers})
}

func (c *Client) AddUser(name, password string) (*protocol.Response, error) {
	data, err := protocol.EncodeCredentials(models.Credentials{
		Name:   name,
		Digest: auth.Digest(password),
	})
	if err != nil {
		return nil, err
	}
	return c.do(&protocol.Request{Op: protocol.OpAddUser, Data: data})
}

func (c *Client) DeleteUser(name string) (*protocol.Response, error) {
	return c.do(&protocol.Request{Op: protocol.OpDelUser, Text: name})
}

// Messages returns the account's messages as "timestamp,content" lines.
// A 404 response yields an empty list and no error.
func (c *Client) Messages(name string) ([]string, error) {
	resp, err := c.do(&protocol.Request{Op: protocol.OpDisplayAllMessages, Text: name})
	if err != nil {
		return nil, err
	}
	if resp.Code == protocol.StatusNotFound {
		return nil, nil
	}
	if resp.Code != protocol.StatusOK {
		return nil, fmt.Errorf("displayAllMessages: status %d", resp.Code)
	}
	return protocol.DecodeMessageList(resp.Data)
}

// WriteMessage validates and posts one message for name, stamped with the
// current local time. Invalid content is rejected before anything is sent.
func (c *Client) WriteMessage(name, content string) (*protocol.Response, error) {
	if err := models.ValidateContent(content); err != nil {
		return nil, err
	}

	data, err := protocol.EncodeMessage(models.Message{
		Timestamp: time.Now().Format(models.TimestampFormat),
		Content:   content,
	})
	if err != nil {
		return nil, err
	}
	return c.do(&protocol.Request{Op: protocol.OpWriteNewMessage, Text: name, Data: data})
}

// Quit tells the server to drop the connection and closes it. The server
// sends no response to quit.
func (c *Client) Quit() error {
	if err := protocol.WriteRequest(c.conn, &protocol.Request{Op: protocol.OpQuit}); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}

func (c *Client) Close() error {
	return c.conn.Close()
}
