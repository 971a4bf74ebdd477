package lsp

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_WritesContentLengthHeader(t *testing.T) {
	var buf bytes.Buffer
	tr := newTransport(&buf, strings.NewReader(""))

	require.NoError(t, tr.send(map[string]string{"jsonrpc": "2.0"}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Content-Length: "))
	assert.Contains(t, out, "\r\n\r\n")
	assert.True(t, strings.HasSuffix(out, `{"jsonrpc":"2.0"}`))
}

func frame(body string) string {
	return "Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
}

func TestReadFrame_ParsesHeaderAndBody(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"result":null}`
	tr := newTransport(&bytes.Buffer{}, strings.NewReader(frame(body)))

	got, err := tr.readFrame()
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestReadFrame_SkipsUnknownHeaderLine(t *testing.T) {
	body := `{"jsonrpc":"2.0"}`
	raw := "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	tr := newTransport(&bytes.Buffer{}, strings.NewReader(raw))

	got, err := tr.readFrame()
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestReadFrame_MalformedHeaderLineIsSkipped(t *testing.T) {
	body := `{"jsonrpc":"2.0"}`
	raw := "not-a-header-line\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	tr := newTransport(&bytes.Buffer{}, strings.NewReader(raw))

	got, err := tr.readFrame()
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestReadFrame_MissingContentLengthErrors(t *testing.T) {
	tr := newTransport(&bytes.Buffer{}, strings.NewReader("\r\n"))

	_, err := tr.readFrame()
	require.Error(t, err)
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestReadFrame_EOFPropagates(t *testing.T) {
	tr := newTransport(&bytes.Buffer{}, strings.NewReader(""))

	_, err := tr.readFrame()
	assert.Error(t, err)
}

func TestDecodeFrame_ParsesResponse(t *testing.T) {
	msg, err := decodeFrame([]byte(`{"jsonrpc":"2.0","id":7,"result":{"ok":true}}`))
	require.NoError(t, err)
	assert.Equal(t, "2.0", msg.JSONRPC)
	require.NotNil(t, msg.ID)
}

func TestDecodeFrame_InvalidJSONErrors(t *testing.T) {
	_, err := decodeFrame([]byte(`not json`))
	assert.Error(t, err)
}
