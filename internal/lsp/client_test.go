package lsp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is an in-process double for a language server's stdio: it
// reads framed requests/notifications off one pipe and writes framed
// responses/notifications on another, so Client's lifecycle and request
// correlation can be exercised without spawning a real binary.
type fakeServer struct {
	transport *transport
	respW     *io.PipeWriter
}

// hangUp simulates the child process exiting: closing the write end of
// the server -> client pipe delivers EOF to the client's receive loop.
func (f *fakeServer) hangUp() {
	_ = f.respW.Close()
}

func (f *fakeServer) recv() *rpcMessage {
	body, err := f.transport.readFrame()
	if err != nil {
		return nil
	}
	msg, err := decodeFrame(body)
	if err != nil {
		return nil
	}
	return msg
}

func (f *fakeServer) respond(id *json.RawMessage, result any) {
	raw, _ := json.Marshal(result)
	_ = f.transport.send(rpcMessage{JSONRPC: "2.0", ID: id, Result: raw})
}

func (f *fakeServer) respondError(id *json.RawMessage, code int, message string) {
	_ = f.transport.send(rpcMessage{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

func (f *fakeServer) notify(method string, params any) {
	_ = f.transport.send(rpcNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// serve runs handler once per received message until the pipe closes.
func (f *fakeServer) serve(handler func(msg *rpcMessage)) {
	go func() {
		for {
			msg := f.recv()
			if msg == nil {
				return
			}
			handler(msg)
		}
	}()
}

// newTestClient wires a Client directly to a fakeServer via two in-memory
// pipes, bypassing Start (which spawns a real child process), and starts
// the receive loop exactly as Start would.
func newTestClient() (*Client, *fakeServer) {
	reqR, reqW := io.Pipe() // client -> server
	respR, respW := io.Pipe() // server -> client

	c := &Client{
		state:     Running,
		pending:   make(map[int64]*pendingRequest),
		documents: make(map[string]*documentState),
		root:      "/tmp/workspace",
		lang:      "py",
		doneCh:    make(chan struct{}),
		transport: newTransport(reqW, respR),
	}
	go c.receiveLoop()

	fs := &fakeServer{transport: newTransport(respW, reqR), respW: respW}
	return c, fs
}

func TestCall_RoundTripsResult(t *testing.T) {
	c, fs := newTestClient()
	fs.serve(func(msg *rpcMessage) {
		assert.Equal(t, "textDocument/documentSymbol", msg.Method)
		fs.respond(msg.ID, []map[string]string{{"name": "foo"}})
	})

	var result []map[string]string
	err := c.call(context.Background(), "textDocument/documentSymbol", map[string]string{"uri": "file:///a.py"}, &result, time.Second)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "foo", result[0]["name"])
}

func TestCall_ServerErrorReturnsLspError(t *testing.T) {
	c, fs := newTestClient()
	fs.serve(func(msg *rpcMessage) {
		fs.respondError(msg.ID, -32601, "method not found")
	})

	err := c.call(context.Background(), "bogus", nil, nil, time.Second)
	require.Error(t, err)
	var lspErr *LspError
	require.ErrorAs(t, err, &lspErr)
	assert.Equal(t, -32601, lspErr.Code)
}

func TestCall_TimeoutReturnsTimeoutError(t *testing.T) {
	c, fs := newTestClient()
	fs.serve(func(msg *rpcMessage) {
		// Never responds.
	})

	err := c.call(context.Background(), "slow", nil, nil, 20*time.Millisecond)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)

	c.mu.Lock()
	_, stillPending := c.pending[1]
	c.mu.Unlock()
	assert.False(t, stillPending, "timed-out request must be removed from the correlation table")
}

func TestCall_InvalidStateOutsideRunning(t *testing.T) {
	c := NewClient("/tmp/workspace")

	err := c.call(context.Background(), "textDocument/documentSymbol", nil, nil, time.Second)
	require.Error(t, err)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, Stopped, stateErr.State)
}

func TestCall_ContextCancelledUnregistersPending(t *testing.T) {
	c, fs := newTestClient()
	fs.serve(func(msg *rpcMessage) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.call(ctx, "slow", nil, nil, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatchNotification_PublishDiagnosticsIncrementsCount(t *testing.T) {
	c, fs := newTestClient()
	fs.notify("textDocument/publishDiagnostics", map[string]string{"uri": "file:///a.py"})

	require.Eventually(t, func() bool {
		return c.DiagnosticCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDispatchNotification_UnknownMethodIgnored(t *testing.T) {
	c, fs := newTestClient()
	fs.notify("workspace/unknownThing", map[string]string{})

	// Nothing to assert beyond "doesn't panic and doesn't wedge": a
	// following call must still round-trip normally.
	fs.serve(func(msg *rpcMessage) {
		if msg.Method == "ping" {
			fs.respond(msg.ID, "pong")
		}
	})
	var result string
	err := c.call(context.Background(), "ping", nil, &result, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "pong", result)
}

func TestReceiveLoop_StreamEOFCancelsPending(t *testing.T) {
	c, fs := newTestClient()

	done := make(chan error, 1)
	go func() {
		done <- c.call(context.Background(), "never-answered", nil, nil, 5*time.Second)
	}()

	// Wait until the request is actually registered, then sever the
	// server -> client pipe to simulate the child process exiting.
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.pending) == 1
	}, time.Second, 5*time.Millisecond)

	fs.hangUp()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("call did not unblock after stream EOF")
	}
}

func TestShutdown_RunsHandshakeAndIsIdempotent(t *testing.T) {
	c, fs := newTestClient()
	fs.serve(func(msg *rpcMessage) {
		if msg.Method == "shutdown" {
			fs.respond(msg.ID, nil)
		}
	})

	err1 := c.Shutdown(context.Background())
	require.NoError(t, err1)
	assert.Equal(t, Stopped, c.State())

	err2 := c.Shutdown(context.Background())
	require.NoError(t, err2)
}

func TestShutdown_FromStoppedIsNoop(t *testing.T) {
	c := NewClient("/tmp/workspace")
	require.Equal(t, Stopped, c.State())
	require.NoError(t, c.Shutdown(context.Background()))
}
