package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"

	"msgboard/models"
)

// Handshake lines the server writes immediately after accept, before any
// framed exchange begins.
const (
	HandshakeAccepted = "connected,200"
	HandshakeRejected = "capacity exceeded,403"
)

// MaxFrameSize bounds a single framed message. Payloads are short (one
// message list at most), so anything larger is a broken peer.
const MaxFrameSize = 1 << 20

var (
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	ErrBadPayload    = errors.New("malformed payload")
)

// Op identifies one operation of the catalogue by its wire name.
type Op string

const (
	OpLogin              Op = "login"
	OpLogout             Op = "logout"
	OpQuit               Op = "quit"
	OpDisplayAllUsers    Op = "displayAllUsers"
	OpDisplayOnlineUsers Op = "displayOnlineUsers"
	OpAddUser            Op = "addUser"
	OpDelUser            Op = "delUser"
	OpDisplayAllMessages Op = "displayAllMessages"
	OpWriteNewMessage    Op = "writeNewMessage"
)

// Known reports whether op is part of the catalogue.
func (op Op) Known() bool {
	switch op {
	case OpLogin, OpLogout, OpQuit, OpDisplayAllUsers, OpDisplayOnlineUsers,
		OpAddUser, OpDelUser, OpDisplayAllMessages, OpWriteNewMessage:
		return true
	}
	return false
}

// Response status codes.
const (
	StatusOK         = 200
	StatusBadRequest = 400
	StatusForbidden  = 403
	StatusNotFound   = 404
	StatusInternal   = 500
)

// Request is one framed client call. Text and Data are optional and
// operation-specific.
type Request struct {
	Op   Op     `json:"op"`
	Text string `json:"text,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Response is one framed server reply.
type Response struct {
	Code int    `json:"code"`
	Text string `json:"msg,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// WriteFrame writes payload prefixed with its 4-byte big-endian length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed frame and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func WriteRequest(w io.Writer, req *Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

func ReadRequest(r io.Reader) (*Request, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func WriteResponse(w io.Writer, resp *Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

func ReadResponse(r io.Reader) (*Response, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Payload codecs for the opaque Data field, shared by client and server.

func EncodeCredentials(creds models.Credentials) ([]byte, error) {
	return json.Marshal(creds)
}

func DecodeCredentials(data []byte) (models.Credentials, error) {
	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return models.Credentials{}, ErrBadPayload
	}
	if creds.Name == "" || creds.Digest == "" {
		return models.Credentials{}, ErrBadPayload
	}
	return creds, nil
}

func EncodeMessage(msg models.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func DecodeMessage(data []byte) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.Message{}, ErrBadPayload
	}
	return msg, nil
}

func EncodeMessageList(lines []string) ([]byte, error) {
	return json.Marshal(lines)
}

func DecodeMessageList(data []byte) ([]string, error) {
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, ErrBadPayload
	}
	return lines, nil
}
