package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/mcp-training/lightcycle/api"
	"github.com/wricardo/mcp-training/lightcycle/game/config"
	"github.com/wricardo/mcp-training/lightcycle/game/service"
	"github.com/wricardo/mcp-training/lightcycle/game/session"
)

const duelPreset = `{
  "name": "duel",
  "description": "test duel",
  "size": 10,
  "num_players": 2,
  "seed": 4,
  "agents": ["forward"]
}`

// newTestAPI serves the real REST API over in-memory sessions.
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "duel.json"), []byte(duelPreset), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(), configs, nil)
	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)
	return server
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		if err := client.apiCall(context.Background(), "GET", "/api/sessions", nil, nil); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})

	t.Run("plain HTTP error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got: %v", err)
		}
	})

	t.Run("JSON error body", func(t *testing.T) {
		server := newTestAPI(t)
		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/sessions/zzzz", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "session not found") {
			t.Errorf("Expected session not found, got: %v", err)
		}
	})
}

func TestClient_PlayGame(t *testing.T) {
	server := newTestAPI(t)
	client := NewClient(server.URL)

	text, isErr := callTool(t, client.handleCreateSession, map[string]any{"config_id": "duel"})
	if isErr {
		t.Fatalf("create_session failed: %s", text)
	}
	if !strings.Contains(text, "Config: duel") {
		t.Errorf("Expected config in output, got:\n%s", text)
	}

	var list struct {
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := client.apiCall(context.Background(), "GET", "/api/sessions", nil, &list); err != nil || len(list.Sessions) != 1 {
		t.Fatalf("Expected one session, got %v (%v)", list.Sessions, err)
	}
	id := list.Sessions[0].ID

	t.Run("observe", func(t *testing.T) {
		text, isErr := callTool(t, client.handleObserve, map[string]any{"session_id": id, "size": float64(5)})
		if isErr {
			t.Fatalf("observe failed: %s", text)
		}
		for _, want := range []string{"Vision of player 1 (5x5", "You control players: [1]", "(forward)"} {
			if !strings.Contains(text, want) {
				t.Errorf("Expected %q in output:\n%s", want, text)
			}
		}
	})

	t.Run("move", func(t *testing.T) {
		text, isErr := callTool(t, client.handleMove, map[string]any{
			"session_id": id,
			"actions":    []any{"straight"},
			"intent":     "keep away from the wall",
		})
		if isErr {
			t.Fatalf("move failed: %s", text)
		}
		if !strings.Contains(text, "Tick 1 | Actions: straight, straight") {
			t.Errorf("Unexpected move output:\n%s", text)
		}
	})

	t.Run("move with wrong action count", func(t *testing.T) {
		text, isErr := callTool(t, client.handleMove, map[string]any{
			"session_id": id,
			"actions":    []any{"straight", "left"},
		})
		if !isErr || !strings.Contains(text, "wrong number of actions") {
			t.Errorf("Expected action count error, got %v: %s", isErr, text)
		}
	})

	t.Run("move with missing actions", func(t *testing.T) {
		if _, isErr := callTool(t, client.handleMove, map[string]any{"session_id": id}); !isErr {
			t.Error("Expected error without actions")
		}
	})

	t.Run("history", func(t *testing.T) {
		text, isErr := callTool(t, client.handleHistory, map[string]any{"session_id": id, "uid": float64(2)})
		if isErr {
			t.Fatalf("history failed: %s", text)
		}
		if !strings.Contains(text, "History of player 2") || !strings.Contains(text, "Total records: 2") {
			t.Errorf("Unexpected history output:\n%s", text)
		}
	})

	t.Run("simulate", func(t *testing.T) {
		text, isErr := callTool(t, client.handleSimulate, map[string]any{"session_id": id})
		if isErr {
			t.Fatalf("simulate failed: %s", text)
		}
		if !strings.Contains(text, "done: true") {
			t.Errorf("Expected finished game:\n%s", text)
		}

		text, isErr = callTool(t, client.handleGetSession, map[string]any{"session_id": id})
		if isErr || !strings.Contains(text, "Game over") {
			t.Errorf("Expected game over in session output, got %v:\n%s", isErr, text)
		}
	})

	t.Run("reset", func(t *testing.T) {
		text, isErr := callTool(t, client.handleReset, map[string]any{"session_id": id})
		if isErr || !strings.Contains(text, "Game reset successfully") {
			t.Errorf("Unexpected reset output %v:\n%s", isErr, text)
		}
	})
}

func TestClient_Catalog(t *testing.T) {
	server := newTestAPI(t)
	client := NewClient(server.URL)

	text, _ := callTool(t, client.handleListConfigs, nil)
	if !strings.Contains(text, "config_id: duel") || !strings.Contains(text, "Arena: 10x10, Players: 2, Agents: forward") {
		t.Errorf("Unexpected config listing:\n%s", text)
	}

	text, _ = callTool(t, client.handleListAgents, nil)
	for _, name := range []string{"forward", "random", "wallhugger"} {
		if !strings.Contains(text, name) {
			t.Errorf("Expected agent %s in %q", name, text)
		}
	}

	text, _ = callTool(t, client.handleGameInstructions, nil)
	if !strings.Contains(text, "CRASH_INTO_WALL") {
		t.Error("Instructions should describe crash statuses")
	}

	text, _ = callTool(t, client.handleListSessions, nil)
	if !strings.Contains(text, "Active Sessions (0)") {
		t.Errorf("Unexpected session listing:\n%s", text)
	}
}

func TestFormatVision(t *testing.T) {
	out := formatVision(&service.VisionResponse{UID: 1, Size: 3, Grid: []int{1, 1, 1, 0, 0, 0, 0, 1, 0}})
	want := "###\n.@.\n.#.\n"
	if !strings.HasSuffix(out, want) {
		t.Errorf("Expected grid %q, got:\n%s", want, out)
	}
}
