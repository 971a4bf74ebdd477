package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"codegraph/internal/logging"
)

// DefaultRequestTimeout is used when a request is issued with a negative
// timeout ("use default", per spec.md §4.2.2).
const DefaultRequestTimeout = 30 * time.Second

// pendingRequest is a correlation-table entry: a completion handle that
// the receive loop resolves when a matching response id arrives.
type pendingRequest struct {
	method string
	ch     chan *rpcMessage
	once   sync.Once
}

func (p *pendingRequest) complete(msg *rpcMessage) {
	p.once.Do(func() { p.ch <- msg })
}

func (p *pendingRequest) cancel() {
	p.once.Do(func() { close(p.ch) })
}

// Client drives one language server child process through the full LSP
// lifecycle. It owns the child process, the correlation table, and all
// open-document state; exactly one workspace root and one server per
// instance (spec.md §1's "no multi-workspace multiplexing").
type Client struct {
	mu    sync.Mutex
	state State

	cmd         *exec.Cmd
	transport   *transport
	stdinCloser interface{ Close() error }

	nextID  int64
	pending map[int64]*pendingRequest

	documents map[string]*documentState

	root string
	lang string

	diagCount int64

	shutdownOnce sync.Once
	doneCh       chan struct{}
}

// NewClient creates a client bound to no process yet; call Start to spawn
// the language server for lang and bring the client to RUNNING.
func NewClient(root string) *Client {
	return &Client{
		state:     Stopped,
		pending:   make(map[int64]*pendingRequest),
		documents: make(map[string]*documentState),
		root:      root,
		doneCh:    make(chan struct{}),
	}
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Root returns the workspace root this client was started against.
func (c *Client) Root() string { return c.root }

// Lang returns the language id this client was started with.
func (c *Client) Lang() string { return c.lang }

// Start spawns the child process for lang (see servers.go for the
// lang -> command table) and drives STOPPED -> STARTING -> RUNNING.
// override, if non-nil, replaces the builtin command and/or globs for lang
// (internal/config's per-language Servers overrides, C1/C3).
func (c *Client) Start(ctx context.Context, lang string, override *ServerOverride) error {
	c.mu.Lock()
	if c.state != Stopped {
		state := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "Start", State: state}
	}
	c.state = Starting
	c.lang = lang
	c.mu.Unlock()

	spec, ok := resolveServerSpec(lang, override)
	if !ok {
		c.setState(Stopped)
		return fmt.Errorf("lsp: no server configured for language %q", lang)
	}

	if _, err := exec.LookPath(spec.Command[0]); err != nil {
		c.setState(Stopped)
		return &ServerNotInstalledError{Command: spec.Command[0]}
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = c.root

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.setState(Stopped)
		return &TransportError{Op: "Start", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.setState(Stopped)
		return &TransportError{Op: "Start", Err: err}
	}
	// Drain stderr so the child never blocks writing diagnostics there,
	// and so we don't see a SIGPIPE on cleanup (spec.md §5 process hygiene).
	stderr, err := cmd.StderrPipe()
	if err != nil {
		c.setState(Stopped)
		return &TransportError{Op: "Start", Err: err}
	}

	if err := cmd.Start(); err != nil {
		c.setState(Stopped)
		return &TransportError{Op: "Start", Err: err}
	}

	c.mu.Lock()
	c.cmd = cmd
	c.transport = newTransport(stdin, stdout)
	c.stdinCloser = stdin
	c.mu.Unlock()

	go drainStderr(stderr)
	go c.receiveLoop()

	if err := c.initialize(ctx); err != nil {
		_ = c.killProcess()
		c.setState(Stopped)
		return err
	}

	c.setState(Running)
	return nil
}

func drainStderr(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// initialize sends the initialize request and the initialized
// notification (spec.md §4.2.5).
func (c *Client) initialize(ctx context.Context) error {
	params := initializeParams{
		ProcessID: nil, // client does not ask the server to monitor its process
		RootURI:   pathToFileURI(c.root),
		WorkspaceFolders: []workspaceFolder{
			{URI: pathToFileURI(c.root), Name: c.root},
		},
		Capabilities: clientCapabilities{
			TextDocument: textDocumentClientCapabilities{
				Synchronization: synchronizationCapability{WillSave: true, DidSave: true},
				Completion:      completionCapability{DynamicRegistration: false},
				Hover:           hoverCapability{ContentFormat: []string{"plaintext", "markdown"}},
				Definition:      definitionCapability{DynamicRegistration: false},
				References:      referencesCapability{DynamicRegistration: false},
				DocumentSymbol:  documentSymbolCapability{HierarchicalDocumentSymbolSupport: true},
			},
			Workspace: workspaceClientCapabilities{
				WorkspaceEdit:         workspaceEditCapability{DocumentChanges: true},
				DidChangeWatchedFiles: didChangeWatchedFilesCapability{DynamicRegistration: true},
			},
		},
	}

	var result json.RawMessage
	if err := c.call(ctx, "initialize", params, &result, 0); err != nil {
		return err
	}
	return c.notify(ctx, "initialized", struct{}{})
}

// Shutdown drives RUNNING -> STOPPING -> STOPPED: cancels all pending
// futures, attempts the LSP shutdown/exit handshake (both failures
// tolerated), then kills the child process. Idempotent: a second call
// awaits the first (spec.md §8 round-trip law).
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Stopped {
		c.mu.Unlock()
		return nil
	}
	if c.state == Stopping {
		c.mu.Unlock()
		<-c.doneCh
		return nil
	}
	c.state = Stopping
	c.mu.Unlock()

	c.shutdownOnce.Do(func() {
		defer close(c.doneCh)

		// Cancel all outstanding requests before attempting the LSP
		// handshake so nobody is left hanging on a process we're about
		// to kill.
		c.mu.Lock()
		for id, p := range c.pending {
			p.cancel()
			delete(c.pending, id)
		}
		c.mu.Unlock()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var result json.RawMessage
		_ = c.call(shutdownCtx, "shutdown", nil, &result, 5*time.Second)
		_ = c.notify(context.Background(), "exit", nil)

		_ = c.killProcess()

		c.mu.Lock()
		c.documents = make(map[string]*documentState)
		c.state = Stopped
		c.mu.Unlock()
	})

	return nil
}

// killProcess implements spec.md §5's process hygiene: close stdin, drain
// stdout until EOF, then SIGTERM with a 5s grace period before SIGKILL.
func (c *Client) killProcess() error {
	c.mu.Lock()
	cmd := c.cmd
	closer := c.stdinCloser
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if closer != nil {
		_ = closer.Close()
	}

	if cmd.ProcessState != nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
	}
	_ = cmd.Process.Kill()
	<-done
	return nil
}

// call issues a request, registers the pending entry under the
// correlation-table mutex, sends the message, then awaits the handle
// with a per-call timeout. A negative timeout means "use the default."
func (c *Client) call(ctx context.Context, method string, params any, result any, timeout time.Duration) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	// initialize runs during STARTING and shutdown's own handshake request
	// runs during STOPPING; every other request is only valid in RUNNING
	// (spec.md §4.2.1).
	allowed := state == Running ||
		(method == "initialize" && state == Starting) ||
		(method == "shutdown" && state == Stopping)
	if !allowed {
		return &InvalidStateError{Op: method, State: state}
	}

	if timeout == 0 {
		timeout = DefaultRequestTimeout
	} else if timeout < 0 {
		timeout = DefaultRequestTimeout
	}

	id := atomic.AddInt64(&c.nextID, 1)
	p := &pendingRequest{method: method, ch: make(chan *rpcMessage, 1)}

	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.transport.send(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-p.ch:
		if !ok {
			return fmt.Errorf("lsp: request %d (%s) cancelled", id, method)
		}
		if msg.Error != nil {
			return &LspError{Code: msg.Error.Code, Message: msg.Error.Message}
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return &TransportError{Op: method, Err: err}
			}
		}
		return nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return &TimeoutError{Method: method, ID: id}
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	}
}

// notify sends a fire-and-forget notification.
func (c *Client) notify(ctx context.Context, method string, params any) error {
	return c.transport.send(rpcNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// receiveLoop is the sole reader of the child's stdout; it classifies and
// dispatches every decoded frame, catching per-message errors so one
// malformed frame never kills the loop (spec.md §4.2.3).
func (c *Client) receiveLoop() {
	for {
		body, err := c.transport.readFrame()
		if err != nil {
			c.cancelAllPending()
			return
		}
		msg, err := decodeFrame(body)
		if err != nil {
			logging.Error().Err(err).Msg("lsp: failed to decode frame, dropping")
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) cancelAllPending() {
	c.mu.Lock()
	for id, p := range c.pending {
		p.cancel()
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// dispatch classifies an incoming message by the presence of id/method
// (spec.md §4.2.3) and routes it accordingly. Errors are caught so a
// single bad message never aborts the receive loop.
func (c *Client) dispatch(msg *rpcMessage) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("recover", r).Msg("lsp: panic handling message, dropping")
		}
	}()

	switch {
	case msg.ID != nil && msg.Method == "":
		c.dispatchResponse(msg)
	case msg.Method != "" && msg.ID == nil:
		c.dispatchNotification(msg)
	case msg.ID != nil && msg.Method != "":
		// Server-initiated request: not serviced (spec.md §4.2.3).
	default:
		// Neither id nor method: not a message we understand.
	}
}

func (c *Client) dispatchResponse(msg *rpcMessage) {
	var id int64
	if err := json.Unmarshal(*msg.ID, &id); err != nil {
		return
	}
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok {
		p.complete(msg)
	}
}

func (c *Client) dispatchNotification(msg *rpcMessage) {
	switch msg.Method {
	case "textDocument/publishDiagnostics":
		atomic.AddInt64(&c.diagCount, 1)
		logging.Debug().Str("method", msg.Method).Msg("lsp: diagnostics published")
	case "window/logMessage":
		var p logMessageParams
		if err := json.Unmarshal(msg.Params, &p); err == nil {
			logServerMessage(p.Type, p.Message)
		}
	case "window/showMessage":
		logging.Debug().Str("method", msg.Method).Msg("lsp: showMessage")
	default:
		// Unknown notification methods are ignored.
	}
}

// logServerMessage maps an LSP MessageType (1=error..4=log) to local log
// levels, suppressing anything below warn (spec.md §4.2.3).
func logServerMessage(msgType int, message string) {
	switch msgType {
	case 1:
		logging.Error().Str("source", "server").Msg(message)
	case 2:
		logging.Warn().Str("source", "server").Msg(message)
	default:
		// info (3) and log (4) are suppressed.
	}
}

// DiagnosticCount returns the number of publishDiagnostics notifications
// seen so far. Purely informational (spec.md §4.2.3: diagnostics are not
// part of the core contract); supplemented from original_source's running
// per-file diagnostic counters for CLI summaries.
func (c *Client) DiagnosticCount() int64 {
	return atomic.LoadInt64(&c.diagCount)
}
