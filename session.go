package mymcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tmarkel/mysql-mcp/internal/meta"
)

// maxLineBytes bounds a single incoming message. Statements are separately
// capped by MaxSQLLength; this only guards the transport against unbounded
// lines.
const maxLineBytes = 4 * 1024 * 1024

// ServerInfo identifies the server in the initialize response.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type serverCapabilities struct {
	Tools toolsCapability `json:"tools"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

type listToolsResult struct {
	Tools []Tool `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ContentBlock is a single block of tool output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult wraps a tool's output for the wire.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// Session speaks line-delimited JSON-RPC over a single reader/writer pair,
// one message per line. Requests are handled sequentially in arrival order;
// notifications never produce output. Logs go to the logger, never to the
// writer: the writer carries protocol frames only.
type Session struct {
	registry *Registry
	logger   zerolog.Logger

	reader io.Reader
	writer io.Writer

	writeMu sync.Mutex

	// Handshake state. tools/call is gated on the initialize response having
	// been sent; tools/list and ping work in any state.
	initialized         bool
	initializedNotified bool
}

// NewSession creates a Session over the given transport. Panics when registry
// is nil.
func NewSession(registry *Registry, reader io.Reader, writer io.Writer, logger zerolog.Logger) *Session {
	if registry == nil {
		panic("session: registry must not be nil")
	}
	return &Session{
		registry: registry,
		logger:   logger,
		reader:   reader,
		writer:   writer,
	}
}

// Run reads messages until EOF or until ctx is canceled. EOF is the normal
// shutdown path and returns nil. An oversized line is consumed and dropped;
// it never terminates the session.
func (s *Session) Run(ctx context.Context) error {
	reader := bufio.NewReaderSize(s.reader, 64*1024)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := readLine(reader)
		if errors.Is(err, errLineTooLong) {
			s.logger.Warn().Int("limit", maxLineBytes).Msg("dropping oversized message")
			continue
		}
		if len(line) > 0 {
			s.handleLine(ctx, line)
		}
		if errors.Is(err, io.EOF) {
			s.logger.Info().Msg("input closed, shutting down")
			return nil
		}
		if err != nil {
			return fmt.Errorf("session: read: %w", err)
		}
	}
}

var errLineTooLong = errors.New("session: line exceeds maximum length")

// readLine reads one newline-terminated line of at most maxLineBytes. An
// oversized line is consumed to its end and reported as errLineTooLong so
// the stream stays aligned on message boundaries.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			if len(line) > maxLineBytes {
				return nil, discardLine(r)
			}
			continue
		}
		if len(line) > maxLineBytes {
			return nil, errLineTooLong
		}
		return bytes.TrimRight(line, "\r\n"), err
	}
}

// discardLine consumes the remainder of the current line.
func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if err != bufio.ErrBufferFull {
			return errLineTooLong
		}
	}
}

// handleLine parses and dispatches one message. A line that is not valid
// JSON gets a ParseError when an id is recoverable from it; otherwise it is
// logged and dropped, since a response without an id cannot be correlated.
func (s *Session) handleLine(ctx context.Context, line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		if id := recoverID(line); id != nil {
			s.write(newErrorResponse(id, CodeParseError, "parse error: invalid JSON"))
		} else {
			s.logger.Warn().Str("line", truncateForLog(string(line), 200)).Msg("dropping unparseable message")
		}
		return
	}
	if req.Method == "" {
		if !req.IsNotification() {
			s.write(newErrorResponse(req.ID, CodeInvalidRequest, "method must be a non-empty string"))
		}
		return
	}

	resp := s.dispatch(ctx, &req)
	if req.IsNotification() {
		// Notifications never get responses, not even errors.
		return
	}
	if resp != nil {
		s.write(resp)
	}
}

func (s *Session) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		s.initializedNotified = true
		// Usually a notification; when a client sends it as a request, the
		// id must still be answered.
		return newResponse(req.ID, struct{}{})
	case "ping":
		return newResponse(req.ID, struct{}{})
	case "tools/list":
		return newResponse(req.ID, listToolsResult{Tools: s.registry.List()})
	case "tools/call":
		return s.handleCallTool(ctx, req)
	default:
		s.logger.Warn().Str("method", req.Method).Msg("unknown method")
		return newErrorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Session) handleInitialize(req *Request) *Response {
	s.initialized = true
	s.logger.Info().Msg("session initialized")
	return newResponse(req.ID, initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    serverCapabilities{Tools: toolsCapability{ListChanged: false}},
		ServerInfo:      ServerInfo{Name: "gomymcp", Version: meta.Version},
	})
}

func (s *Session) handleCallTool(ctx context.Context, req *Request) *Response {
	if !s.initialized {
		return newErrorResponse(req.ID, CodeNotInitialized, "session not initialized: send initialize first")
	}

	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return newErrorResponse(req.ID, CodeInvalidParams, "params must be an object with name and arguments")
	}
	if params.Name == "" {
		return newErrorResponse(req.ID, CodeInvalidParams, "tool name is required")
	}

	handler, ok := s.registry.Resolve(params.Name)
	if !ok {
		s.logger.Warn().Str("tool", params.Name).Msg("unknown tool")
		return newErrorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("tool not found: %s", params.Name))
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		rpcErr := rpcErrorFor(err)
		s.logger.Warn().
			Str("tool", params.Name).
			Int("code", rpcErr.Code).
			Str("error", rpcErr.Message).
			Msg("tool call failed")
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}

	wrapped, err := wrapToolResult(result)
	if err != nil {
		return newErrorResponse(req.ID, CodeInternalError, "failed to encode tool result")
	}
	return newResponse(req.ID, wrapped)
}

// wrapToolResult encodes a tool's output payload as a single text content
// block, the shape tool-calling agents consume.
func wrapToolResult(result any) (*CallToolResult, error) {
	text, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(text)}},
	}, nil
}

// write marshals one response and emits it as a single line. Write failures
// are logged; the loop keeps running because the peer may only have closed
// one direction.
func (s *Session) write(resp *Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(append(payload, '\n')); err != nil {
		if !errors.Is(err, io.ErrClosedPipe) {
			s.logger.Error().Err(err).Msg("failed to write response")
		}
	}
}

// recoverID makes a best effort to pull an id out of a malformed line so the
// ParseError can be correlated. Only scalar ids are recovered.
func recoverID(line []byte) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil
	}
	if len(probe.ID) == 0 || string(probe.ID) == "null" {
		return nil
	}
	return probe.ID
}
