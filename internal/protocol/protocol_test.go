package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(&buf)

	req := Message{
		"action":  "login",
		"retries": 3,
		"flag":    true,
		"data":    map[string]any{"username": "alice"},
	}
	require.NoError(t, c.WriteMessage(req))

	got, err := c.ReadMessage()
	require.NoError(t, err)

	assert.Equal(t, "login", got.Str("action"))
	assert.Equal(t, 3, got.Int("retries"))
	assert.True(t, got.Bool("flag"))
	assert.Equal(t, "alice", got.Sub("data").Str("username"))
	assert.True(t, got.Has("flag"))
	assert.False(t, got.Has("missing"))
}

func TestReadMessageCleanEOF(t *testing.T) {
	c := NewConn(&bytes.Buffer{})
	_, err := c.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestReadMessageTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 64)
	buf.Write(header[:])
	buf.WriteString(`{"a"`)

	_, err := NewConn(&buf).ReadMessage()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.Contains(t, err.Error(), "reading message body")
}

func TestReadMessageRejectsBadLengths(t *testing.T) {
	for name, length := range map[string]uint32{
		"zero":     0,
		"oversize": 1 << 30,
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			var header [4]byte
			binary.BigEndian.PutUint32(header[:], length)
			buf.Write(header[:])

			_, err := NewConn(&buf).ReadMessage()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid message length")
		})
	}
}

func TestReadMessageRejectsMalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("not json")
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	_, err := NewConn(&buf).ReadMessage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding message")
}

func TestFileFrameRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	content := bytes.Repeat([]byte("game-data"), 40000)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	var buf bytes.Buffer
	require.NoError(t, NewConn(&buf).SendFile(src))

	dst := filepath.Join(dir, "nested", "deep", "dst.bin")
	require.NoError(t, NewConn(&buf).ReceiveFile(dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFileFrameEmptyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	var buf bytes.Buffer
	require.NoError(t, NewConn(&buf).SendFile(src))

	dst := filepath.Join(dir, "out")
	require.NoError(t, NewConn(&buf).ReceiveFile(dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestReceiveFileTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], 100)
	buf.Write(header[:])
	buf.WriteString("short")

	err := NewConn(&buf).ReceiveFile(filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated file frame")
}

func TestMessagesAndFilesInterleave(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload")
	require.NoError(t, os.WriteFile(src, []byte("level one"), 0o644))

	var buf bytes.Buffer
	w := NewConn(&buf)
	require.NoError(t, w.WriteMessage(Message{"path": "payload", "size": 9}))
	require.NoError(t, w.SendFile(src))
	require.NoError(t, w.WriteMessage(OKMsg("done")))

	r := NewConn(&buf)
	meta, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "payload", meta.Str("path"))

	dst := filepath.Join(dir, "copy")
	require.NoError(t, r.ReceiveFile(dst))

	final, err := r.ReadMessage()
	require.NoError(t, err)
	assert.True(t, final.Bool("success"))
	assert.Equal(t, "done", final.Str("message"))
}

func TestFailShape(t *testing.T) {
	m := Fail(ErrNotFound, "Not found")
	assert.False(t, m.Bool("success"))
	assert.Equal(t, ErrNotFound, m.Str("error"))
	assert.Equal(t, "Not found", m.Str("message"))
}
