// Package protocol implements the framed wire protocol shared by all three
// platform daemons: length-prefixed JSON control messages interleaved with
// length-prefixed opaque file streams on a single duplex TCP connection.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/openlobby/openlobby/internal/constants"
)

// Conn frames messages and files over an underlying byte stream.
// It performs exact-length reads; a corrupt or truncated frame is a fatal
// error and the caller must drop the connection.
type Conn struct {
	rw io.ReadWriter
}

// NewConn wraps a byte stream (usually a net.Conn).
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw}
}

// WriteMessage sends one message frame: 4-byte big-endian length + JSON.
func (c *Conn) WriteMessage(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	if len(data) > constants.MaxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds frame limit", len(data))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := c.rw.Write(header[:]); err != nil {
		return fmt.Errorf("writing message header: %w", err)
	}
	if _, err := c.rw.Write(data); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	return nil
}

// ReadMessage reads one message frame. io.EOF is returned unwrapped when the
// peer closed the connection cleanly between frames.
func (c *Conn) ReadMessage() (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading message header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length == 0 || length > constants.MaxMessageSize {
		return nil, fmt.Errorf("invalid message length %d", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.rw, body); err != nil {
		return nil, fmt.Errorf("reading message body: %w", err)
	}

	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return m, nil
}

// SendFile streams the file at path as one file frame:
// 8-byte big-endian length + content.
func (c *Conn) SendFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stating %s: %w", path, err)
	}
	size := info.Size()
	if size > constants.MaxFileSize {
		return fmt.Errorf("file %s of %d bytes exceeds frame limit", path, size)
	}

	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(size))
	if _, err := c.rw.Write(header[:]); err != nil {
		return fmt.Errorf("writing file header: %w", err)
	}

	buf := make([]byte, constants.FileChunkSize)
	if _, err := io.CopyBuffer(c.rw, io.LimitReader(f, size), buf); err != nil {
		return fmt.Errorf("streaming %s: %w", path, err)
	}
	return nil
}

// ReceiveFile reads one file frame into savePath, creating parent
// directories as needed. The frame header is authoritative for the size.
func (c *Conn) ReceiveFile(savePath string) error {
	var header [8]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		return fmt.Errorf("reading file header: %w", err)
	}

	size := binary.BigEndian.Uint64(header[:])
	if size > constants.MaxFileSize {
		return fmt.Errorf("file frame of %d bytes exceeds limit", size)
	}

	if dir := filepath.Dir(savePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.Create(savePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", savePath, err)
	}
	defer f.Close()

	buf := make([]byte, constants.FileChunkSize)
	written, err := io.CopyBuffer(f, io.LimitReader(c.rw, int64(size)), buf)
	if err != nil {
		return fmt.Errorf("receiving %s: %w", savePath, err)
	}
	if uint64(written) != size {
		return fmt.Errorf("truncated file frame for %s: got %d of %d bytes", savePath, written, size)
	}
	return nil
}
