package mymcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// wireResponse mirrors Response with a concrete error type for decoding.
type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// runSession feeds the given lines through a session and returns one decoded
// response per emitted output line.
func runSession(t *testing.T, engine *MySQLMcp, lines ...string) []wireResponse {
	t.Helper()

	reg := NewRegistry()
	RegisterTools(reg, engine)

	input := strings.Join(lines, "\n") + "\n"
	var output bytes.Buffer
	session := NewSession(reg, strings.NewReader(input), &output, zerolog.Nop())
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("session failed: %v", err)
	}

	var responses []wireResponse
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var resp wireResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("output line is not valid JSON: %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

const initializeLine = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test","version":"0.1"}}}`

func TestSessionInitialize(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine, initializeLine)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	resp := responses[0]
	if string(resp.ID) != "1" {
		t.Errorf("expected id 1 echoed back, got %s", resp.ID)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	var result initializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("unexpected protocol version: %s", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "gomymcp" {
		t.Errorf("unexpected server name: %s", result.ServerInfo.Name)
	}
}

func TestSessionCallBeforeInitialize(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"query","arguments":{"sql":"SELECT 1"}}}`,
	)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != CodeNotInitialized {
		t.Errorf("expected NotInitialized error, got %+v", responses[0].Error)
	}
}

func TestSessionListToolsBeforeInitialize(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine, `{"jsonrpc":"2.0","id":5,"method":"tools/list"}`)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error != nil {
		t.Fatalf("tools/list must work before initialize, got %+v", responses[0].Error)
	}

	var result listToolsResult
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	want := []string{"mysql", "query", "insert", "update", "delete"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected tool listing: %v", names)
	}
}

func TestSessionNotificationsProduceNoResponse(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","method":"some/unknown/notification"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	// initialize + ping only; the notifications are silent even when unknown.
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if string(responses[1].ID) != "2" || responses[1].Error != nil {
		t.Errorf("unexpected ping response: %+v", responses[1])
	}
}

func TestSessionUnknownMethod(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine, `{"jsonrpc":"2.0","id":9,"method":"resources/list"}`)
	if responses[0].Error == nil || responses[0].Error.Code != CodeMethodNotFound {
		t.Errorf("expected MethodNotFound, got %+v", responses[0].Error)
	}
}

func TestSessionUnknownTool(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"bogus","arguments":{}}}`,
	)
	if responses[1].Error == nil || responses[1].Error.Code != CodeMethodNotFound {
		t.Errorf("expected MethodNotFound for unknown tool, got %+v", responses[1].Error)
	}
}

func TestSessionParseErrorWithRecoverableID(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	// Valid JSON, but not a valid request shape: the id is recoverable, so
	// the client gets a correlated parse error.
	responses := runSession(t, engine, `{"id":7,"method":123}`)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != CodeParseError {
		t.Errorf("expected ParseError, got %+v", responses[0].Error)
	}
	if string(responses[0].ID) != "7" {
		t.Errorf("expected id 7 echoed back, got %s", responses[0].ID)
	}
}

func TestSessionUnparseableLineIsDropped(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		`{this is not json`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	)
	// Only the ping gets a response; the garbage line cannot be correlated.
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if string(responses[0].ID) != "1" {
		t.Errorf("expected ping response, got %+v", responses[0])
	}
}

func TestSessionPolicyRejectionLeavesPoolUntouched(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"query","arguments":{"sql":"DROP TABLE users"}}}`,
	)
	if responses[1].Error == nil || responses[1].Error.Code != CodePolicyViolation {
		t.Fatalf("expected PolicyViolation, got %+v", responses[1].Error)
	}

	// A denied statement must never lease a connection.
	stats := engine.PoolStats()
	if stats.Idle != 0 || stats.Leased != 0 {
		t.Errorf("pool touched by denied statement: %+v", stats)
	}
}

func TestSessionMutationToolsRejectedByPolicy(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"insert","arguments":{"table":"users","values":{"name":"a"}}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"update","arguments":{"table":"users","set":{"name":"b"},"where":"id = ?","params":[1]}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"delete","arguments":{"table":"users","where":"id = ?","params":[1]}}}`,
	)
	for _, resp := range responses[1:] {
		if resp.Error == nil || resp.Error.Code != CodePolicyViolation {
			t.Errorf("id %s: expected PolicyViolation, got %+v", resp.ID, resp.Error)
		}
	}
	if stats := engine.PoolStats(); stats.Idle != 0 || stats.Leased != 0 {
		t.Errorf("pool touched by denied mutation: %+v", stats)
	}
}

func TestSessionUnconditionedMutation(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{
		Safety: SafetyConfig{AllowDangerousQueries: true},
	})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"update","arguments":{"table":"users","set":{"name":"b"},"where":"  "}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"delete","arguments":{"table":"users","where":""}}}`,
	)
	for _, resp := range responses[1:] {
		if resp.Error == nil || resp.Error.Code != CodeUnsafeMutation {
			t.Errorf("id %s: expected UnsafeMutation, got %+v", resp.ID, resp.Error)
		}
	}
}

func TestSessionInvalidArguments(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"query","arguments":{"sql":""}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"query","arguments":{"sql":"SELECT 1; SELECT 2"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"mysql","arguments":{"table_name":"users; drop"}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"query","arguments":"not an object"}}`,
	)
	for _, resp := range responses[1:] {
		if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
			t.Errorf("id %s: expected InvalidParams, got %+v", resp.ID, resp.Error)
		}
	}
}

func TestSessionOversizedStatement(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{
		Query: QueryConfig{MaxSQLLength: 32},
	})

	long := "SELECT '" + strings.Repeat("x", 64) + "'"
	line, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		"params": map[string]any{"name": "query", "arguments": map[string]any{"sql": long}},
	})

	responses := runSession(t, engine, initializeLine, string(line))
	if responses[1].Error == nil || responses[1].Error.Code != CodeInvalidParams {
		t.Errorf("expected InvalidParams for oversized sql, got %+v", responses[1].Error)
	}
}

func TestSessionStringIDEchoedBack(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine, `{"jsonrpc":"2.0","id":"abc-123","method":"ping"}`)
	if string(responses[0].ID) != `"abc-123"` {
		t.Errorf("expected string id echoed back, got %s", responses[0].ID)
	}
}

func TestSessionEmptyLinesIgnored(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		"",
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		"",
	)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
}

func TestSessionOversizedLineDropped(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	// One message over the line limit must be dropped without taking the
	// session down; the next message still gets served.
	oversized := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` +
		strings.Repeat("x", maxLineBytes) + `"}}`
	responses := runSession(t, engine,
		oversized,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if string(responses[0].ID) != "2" || responses[0].Error != nil {
		t.Errorf("expected ping response for id 2, got %+v", responses[0])
	}
}

func TestSessionInitializedAsRequestGetsResponse(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine,
		initializeLine,
		`{"jsonrpc":"2.0","id":2,"method":"initialized"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if string(responses[1].ID) != "2" || responses[1].Error != nil {
		t.Errorf("initialized sent with an id must be answered, got %+v", responses[1])
	}
}

func TestSessionMissingMethod(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t, Config{})

	responses := runSession(t, engine, `{"jsonrpc":"2.0","id":3}`)
	if responses[0].Error == nil || responses[0].Error.Code != CodeInvalidRequest {
		t.Errorf("expected InvalidRequest, got %+v", responses[0].Error)
	}
}

func TestToolDescriptionsFollowPolicy(t *testing.T) {
	t.Parallel()

	denied := newTestEngine(t, Config{})
	regDenied := NewRegistry()
	RegisterTools(regDenied, denied)
	for _, tool := range regDenied.List() {
		if tool.Name == "query" && !strings.Contains(tool.Description, "rejected") {
			t.Errorf("query description should mention rejection under the default policy: %q", tool.Description)
		}
	}

	allowed := newTestEngine(t, Config{Safety: SafetyConfig{AllowDangerousQueries: true}})
	regAllowed := NewRegistry()
	RegisterTools(regAllowed, allowed)
	for _, tool := range regAllowed.List() {
		if tool.Name == "query" && !strings.Contains(tool.Description, "permitted") {
			t.Errorf("query description should mention mutations are permitted: %q", tool.Description)
		}
	}
}
