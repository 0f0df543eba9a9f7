package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"msgboard/metrics"
	"msgboard/protocol"
	"msgboard/registry"
)

// connection is the per-connection handler state: one transport, at most one
// authenticated account name, owned by a single goroutine.
type connection struct {
	server *Server
	conn   net.Conn
	addr   string
	user   string
	once   sync.Once
}

func (s *Server) handleConnection(conn net.Conn) {
	c := &connection{
		server: s,
		conn:   conn,
		addr:   conn.RemoteAddr().String(),
	}
	defer c.teardown()

	log.Printf("Client connected from %s", c.addr)

	for {
		req, err := protocol.ReadRequest(c.conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Printf("Client %s: read failed: %v", c.addr, err)
			}
			return
		}

		if !req.Op.Known() {
			// The protocol defines no response for unknown operations.
			log.Printf("Client %s: unknown operation %q", c.addr, req.Op)
			continue
		}
		metrics.Requests.WithLabelValues(string(req.Op)).Inc()

		if req.Op == protocol.OpQuit {
			log.Printf("Client %s: quit", c.addr)
			return
		}

		if err := c.dispatch(req); err != nil {
			log.Printf("Client %s: %v", c.addr, err)
			return
		}
	}
}

// teardown runs exactly once per connection: log out if authenticated, then
// release the transport and the live-table entry.
func (c *connection) teardown() {
	c.once.Do(func() {
		if c.user != "" {
			c.server.registry.Logout(c.user)
			log.Printf("Client %s: %s logged out", c.addr, c.user)
			c.user = ""
		}
		c.server.removeConnection(c.conn)
		log.Printf("Client %s disconnected", c.addr)
	})
}

// dispatch routes one decoded request to its operation. A returned error
// means the connection is broken and must be torn down.
func (c *connection) dispatch(req *protocol.Request) error {
	switch req.Op {
	case protocol.OpLogin:
		return c.handleLogin(req)
	case protocol.OpLogout:
		return c.handleLogout()
	case protocol.OpDisplayAllUsers:
		return c.handleDisplayAllUsers()
	case protocol.OpDisplayOnlineUsers:
		return c.handleDisplayOnlineUsers()
	case protocol.OpAddUser:
		return c.handleAddUser(req)
	case protocol.OpDelUser:
		return c.handleDelUser(req)
	case protocol.OpDisplayAllMessages:
		return c.handleDisplayAllMessages(req)
	case protocol.OpWriteNewMessage:
		return c.handleWriteNewMessage(req)
	}
	// quit and unknown operations are filtered by the read loop.
	return nil
}

func (c *connection) send(resp *protocol.Response) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
	if err := protocol.WriteResponse(c.conn, resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (c *connection) handleLogin(req *protocol.Request) error {
	creds, err := protocol.DecodeCredentials(req.Data)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if c.user != "" {
		return c.send(&protocol.Response{
			Code: protocol.StatusForbidden,
			Text: c.user + " is already logged in on this connection",
		})
	}

	switch c.server.registry.Login(creds.Name, creds.Digest) {
	case registry.LoginNoAccount:
		return c.send(&protocol.Response{Code: protocol.StatusNotFound, Text: "no such user"})
	case registry.LoginAlreadyOnline:
		return c.send(&protocol.Response{
			Code: protocol.StatusForbidden,
			Text: creds.Name + " is already logged in",
		})
	case registry.LoginWrongPassword:
		return c.send(&protocol.Response{Code: protocol.StatusForbidden, Text: "wrong password"})
	case registry.LoginOK:
		c.user = creds.Name
		log.Printf("Client %s: %s logged in", c.addr, c.user)
		return c.send(&protocol.Response{Code: protocol.StatusOK, Text: creds.Name + " logged in"})
	default:
		return c.send(&protocol.Response{Code: protocol.StatusInternal})
	}
}

func (c *connection) handleLogout() error {
	if c.user == "" {
		return c.send(&protocol.Response{Code: protocol.StatusInternal, Text: "not logged in"})
	}

	name := c.user
	c.server.registry.Logout(name)
	c.user = ""
	log.Printf("Client %s: %s logged out", c.addr, name)
	return c.send(&protocol.Response{Code: protocol.StatusOK, Text: name + " logged out"})
}

func (c *connection) handleDisplayAllUsers() error {
	names := c.server.registry.ListAccounts()
	if len(names) == 0 {
		return c.send(&protocol.Response{Code: protocol.StatusNotFound})
	}
	return c.send(&protocol.Response{Code: protocol.StatusOK, Text: formatUserList(names)})
}

func (c *connection) handleDisplayOnlineUsers() error {
	names := c.server.registry.ListOnline()
	if len(names) == 0 {
		return c.send(&protocol.Response{Code: protocol.StatusNotFound})
	}
	return c.send(&protocol.Response{Code: protocol.StatusOK, Text: formatUserList(names)})
}

func (c *connection) handleAddUser(req *protocol.Request) error {
	creds, err := protocol.DecodeCredentials(req.Data)
	if err != nil {
		return fmt.Errorf("addUser: %w", err)
	}

	switch c.server.registry.AddAccount(creds.Name, creds.Digest) {
	case registry.AddAlreadyExists:
		return c.send(&protocol.Response{Code: protocol.StatusBadRequest, Text: "user already exists"})
	case registry.AddPersistFailed:
		return c.send(&protocol.Response{Code: protocol.StatusInternal, Text: "failed to save user"})
	case registry.AddOK:
		log.Printf("Client %s: added user %s", c.addr, creds.Name)
		return c.send(&protocol.Response{Code: protocol.StatusOK, Text: "user added"})
	default:
		return c.send(&protocol.Response{Code: protocol.StatusInternal})
	}
}

func (c *connection) handleDelUser(req *protocol.Request) error {
	name := req.Text

	switch c.server.registry.RemoveAccount(name) {
	case registry.RemoveProtected:
		return c.send(&protocol.Response{
			Code: protocol.StatusForbidden,
			Text: "cannot remove the " + registry.AdminName + " account",
		})
	case registry.RemoveNoAccount:
		return c.send(&protocol.Response{Code: protocol.StatusNotFound, Text: "no such user"})
	case registry.RemoveOnline:
		return c.send(&protocol.Response{Code: protocol.StatusForbidden, Text: "cannot remove an online user"})
	case registry.RemovePersistFailed:
		return c.send(&protocol.Response{Code: protocol.StatusInternal, Text: "failed to save users"})
	case registry.RemoveOK:
		log.Printf("Client %s: removed user %s", c.addr, name)
		return c.send(&protocol.Response{Code: protocol.StatusOK, Text: "user removed"})
	default:
		return c.send(&protocol.Response{Code: protocol.StatusInternal})
	}
}

func (c *connection) handleDisplayAllMessages(req *protocol.Request) error {
	name := req.Text

	lines := c.server.registry.ReadAllMessages(name)
	if lines == nil {
		return c.send(&protocol.Response{
			Code: protocol.StatusNotFound,
			Text: name + " has no messages",
		})
	}

	data, err := protocol.EncodeMessageList(lines)
	if err != nil {
		return c.send(&protocol.Response{Code: protocol.StatusInternal})
	}
	return c.send(&protocol.Response{Code: protocol.StatusOK, Data: data})
}

func (c *connection) handleWriteNewMessage(req *protocol.Request) error {
	name := req.Text

	msg, err := protocol.DecodeMessage(req.Data)
	if err != nil {
		return fmt.Errorf("writeNewMessage: %w", err)
	}

	if !c.server.registry.AppendMessage(name, msg) {
		return c.send(&protocol.Response{Code: protocol.StatusInternal, Text: "failed to save message"})
	}
	return c.send(&protocol.Response{Code: protocol.StatusOK, Text: "message saved"})
}

func formatUserList(names []string) string {
	var sb strings.Builder
	for i, name := range names {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return sb.String()
}
