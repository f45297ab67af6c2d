package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/lightcycle/game/config"
	"github.com/wricardo/mcp-training/lightcycle/game/engine"
	"github.com/wricardo/mcp-training/lightcycle/game/replay"
	"github.com/wricardo/mcp-training/lightcycle/game/service"
	"github.com/wricardo/mcp-training/lightcycle/game/session"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	MoveFunc     func(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*service.MoveResult, error)
	ResetFunc    func(ctx context.Context, sessionID string) (*engine.Observation, error)
	SimulateFunc func(ctx context.Context, sessionID string, maxTicks int) (*service.SimulateResult, error)

	// Game State
	GetObservationFunc func(ctx context.Context, sessionID string) (*engine.Observation, error)
	GetVisionFunc      func(ctx context.Context, sessionID string, uid, size int) (*service.VisionResponse, error)
	GetHistoryFunc     func(ctx context.Context, sessionID string, uid int, opts service.HistoryOptions) (*service.HistoryResponse, error)
	GetReplayFunc      func(ctx context.Context, sessionID string) (*replay.Document, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func testObservation() *engine.Observation {
	eng, err := engine.NewEngine(&engine.GameConfig{Name: "test", Size: 8, NumPlayers: 2, Seed: 1})
	if err != nil {
		panic(err)
	}
	return eng.Observation()
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, actions, reset)
	}
	return &service.MoveResult{Tick: 1, Observation: testObservation()}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.Observation, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return testObservation(), nil
}

func (m *MockGameService) Simulate(ctx context.Context, sessionID string, maxTicks int) (*service.SimulateResult, error) {
	if m.SimulateFunc != nil {
		return m.SimulateFunc(ctx, sessionID, maxTicks)
	}
	return &service.SimulateResult{Ticks: maxTicks, Done: true}, nil
}

func (m *MockGameService) GetObservation(ctx context.Context, sessionID string) (*engine.Observation, error) {
	if m.GetObservationFunc != nil {
		return m.GetObservationFunc(ctx, sessionID)
	}
	return testObservation(), nil
}

func (m *MockGameService) GetVision(ctx context.Context, sessionID string, uid, size int) (*service.VisionResponse, error) {
	if m.GetVisionFunc != nil {
		return m.GetVisionFunc(ctx, sessionID, uid, size)
	}
	return &service.VisionResponse{UID: uid, Size: size}, nil
}

func (m *MockGameService) GetHistory(ctx context.Context, sessionID string, uid int, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, sessionID, uid, opts)
	}
	return &service.HistoryResponse{UID: uid, Records: []engine.Record{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) GetReplay(ctx context.Context, sessionID string) (*replay.Document, error) {
	if m.GetReplayFunc != nil {
		return m.GetReplayFunc(ctx, sessionID)
	}
	return &replay.Document{GameID: sessionID}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{Name: configName}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, cfg *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	return nil
}

func (m *MockGameService) ListAgents(ctx context.Context) []string {
	return []string{"forward", "random", "wallhugger"}
}

func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, nil)
}

func makeRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestCreateSession(t *testing.T) {
	t.Run("with config id", func(t *testing.T) {
		var got string
		server := setupTestServer(&MockGameService{
			CreateSessionFunc: func(ctx context.Context, configName string) (*service.SessionInfo, error) {
				got = configName
				return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
			},
		})

		w := serve(server, makeRequest("POST", "/api/sessions", map[string]string{"config_id": "duel"}))
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		if got != "duel" {
			t.Errorf("Expected config 'duel', got %q", got)
		}

		var info service.SessionInfo
		parseResponse(t, w, &info)
		if info.ID != "ab12" {
			t.Errorf("Expected session ab12, got %s", info.ID)
		}
	})

	t.Run("empty body uses default", func(t *testing.T) {
		got := "unset"
		server := setupTestServer(&MockGameService{
			CreateSessionFunc: func(ctx context.Context, configName string) (*service.SessionInfo, error) {
				got = configName
				return &service.SessionInfo{ID: "cd34"}, nil
			},
		})

		req := httptest.NewRequest("POST", "/api/sessions", nil)
		if w := serve(server, req); w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}
		if got != "" {
			t.Errorf("Expected empty config name, got %q", got)
		}
	})

	t.Run("unknown config", func(t *testing.T) {
		server := setupTestServer(&MockGameService{
			CreateSessionFunc: func(ctx context.Context, configName string) (*service.SessionInfo, error) {
				return nil, fmt.Errorf("failed to load config '%s': %w", configName, config.ErrConfigNotFound)
			},
		})

		w := serve(server, makeRequest("POST", "/api/sessions", map[string]string{"config_id": "nope"}))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	server := setupTestServer(&MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now},
				{ID: "mid", CreatedAt: now.Add(-90 * time.Minute), LastAccessedAt: now.Add(-30 * time.Minute)},
			}, nil
		},
	})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"new", "mid", "old"}},
		{"?sort=created&order=asc", []string{"old", "mid", "new"}},
		{"?limit=1", []string{"new"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)
			if resp.Total != 3 || resp.Count != len(tt.want) {
				t.Errorf("Expected count %d of 3, got %d of %d", len(tt.want), resp.Count, resp.Total)
			}
			for i, id := range tt.want {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	server := setupTestServer(&MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, fmt.Errorf("session not found: %w", session.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: "ab12", Tick: 4}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				return session.ErrSessionNotFound
			}
			return nil
		},
	})

	if w := serve(server, makeRequest("GET", "/api/sessions/ab12", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/sessions/zz99", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := serve(server, makeRequest("DELETE", "/api/sessions/ab12", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("DELETE", "/api/sessions/zz99", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestMove(t *testing.T) {
	t.Run("parses turn names", func(t *testing.T) {
		var got []engine.Turn
		var gotReset bool
		server := setupTestServer(&MockGameService{
			MoveFunc: func(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*service.MoveResult, error) {
				got, gotReset = actions, reset
				return &service.MoveResult{Tick: 1, Actions: []string{"left", "right"}}, nil
			},
		})

		body := map[string]any{"actions": []string{"left", "straight"}, "reset": true}
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/move", body))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(got) != 2 || got[0] != engine.TurnHardLeft || got[1] != engine.TurnStraight {
			t.Errorf("Unexpected actions %v", got)
		}
		if !gotReset {
			t.Error("Expected reset to be forwarded")
		}

		var result service.MoveResult
		parseResponse(t, w, &result)
		if result.Tick != 1 {
			t.Errorf("Expected tick 1, got %d", result.Tick)
		}
	})

	t.Run("unknown turn name", func(t *testing.T) {
		called := false
		server := setupTestServer(&MockGameService{
			MoveFunc: func(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*service.MoveResult, error) {
				called = true
				return nil, nil
			},
		})

		w := serve(server, makeRequest("POST", "/api/sessions/ab12/move", map[string]any{"actions": []string{"up"}}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
		if called {
			t.Error("Service should not be called for an invalid turn")
		}
	})

	t.Run("maps engine errors", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{fmt.Errorf("%w: got 2", engine.ErrActionCount), http.StatusBadRequest},
			{engine.ErrGameOver, http.StatusConflict},
			{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
			{fmt.Errorf("disk full"), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			server := setupTestServer(&MockGameService{
				MoveFunc: func(ctx context.Context, sessionID string, actions []engine.Turn, reset bool) (*service.MoveResult, error) {
					return nil, tt.err
				},
			})
			w := serve(server, makeRequest("POST", "/api/sessions/ab12/move", map[string]any{"actions": []string{"left"}}))
			if w.Code != tt.want {
				t.Errorf("%v: expected status %d, got %d", tt.err, tt.want, w.Code)
			}
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		req := httptest.NewRequest("POST", "/api/sessions/ab12/move", strings.NewReader("{"))
		if w := serve(server, req); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestResetAndObservation(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	for _, path := range []string{"/api/sessions/ab12/reset", "/api/sessions/ab12/observation"} {
		method := "GET"
		if strings.HasSuffix(path, "reset") {
			method = "POST"
		}
		w := serve(server, makeRequest(method, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}

		var resp struct {
			Observation struct {
				Tick      int               `json:"tick"`
				Positions []engine.Position `json:"positions"`
				Board     [][][]int         `json:"board"`
			} `json:"observation"`
			Board string `json:"board"`
		}
		parseResponse(t, w, &resp)
		if len(resp.Observation.Positions) != 2 {
			t.Errorf("%s: expected 2 positions, got %d", path, len(resp.Observation.Positions))
		}
		if len(resp.Observation.Board) != 8 {
			t.Errorf("%s: expected 8 board rows, got %d", path, len(resp.Observation.Board))
		}
		if strings.Count(resp.Board, "\n") != 8 {
			t.Errorf("%s: expected rendered board with 8 rows, got %q", path, resp.Board)
		}
	}
}

func TestSimulate(t *testing.T) {
	var gotMax int
	server := setupTestServer(&MockGameService{
		SimulateFunc: func(ctx context.Context, sessionID string, maxTicks int) (*service.SimulateResult, error) {
			gotMax = maxTicks
			return &service.SimulateResult{Ticks: 12, Done: true, Winner: 2}, nil
		},
	})

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/simulate", map[string]int{"max_ticks": 50}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotMax != 50 {
		t.Errorf("Expected max_ticks 50, got %d", gotMax)
	}

	var result service.SimulateResult
	parseResponse(t, w, &result)
	if result.Winner != 2 {
		t.Errorf("Expected winner 2, got %d", result.Winner)
	}

	req := httptest.NewRequest("POST", "/api/sessions/ab12/simulate", nil)
	if w := serve(server, req); w.Code != http.StatusOK || gotMax != 0 {
		t.Errorf("Expected empty body to simulate with default ticks, got %d/%d", w.Code, gotMax)
	}
}

func TestGetVision(t *testing.T) {
	var gotUID, gotSize int
	server := setupTestServer(&MockGameService{
		GetVisionFunc: func(ctx context.Context, sessionID string, uid, size int) (*service.VisionResponse, error) {
			gotUID, gotSize = uid, size
			if uid > 2 {
				return nil, fmt.Errorf("%w: %d", engine.ErrUnknownPlayer, uid)
			}
			return &service.VisionResponse{UID: uid, Size: size, Grid: make([]int, size*size)}, nil
		},
	})

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/vision?uid=2&size=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotUID != 2 || gotSize != 5 {
		t.Errorf("Expected uid 2 size 5, got %d/%d", gotUID, gotSize)
	}

	serve(server, makeRequest("GET", "/api/sessions/ab12/vision", nil))
	if gotUID != 1 || gotSize != 0 {
		t.Errorf("Expected defaults uid 1 size 0, got %d/%d", gotUID, gotSize)
	}

	if w := serve(server, makeRequest("GET", "/api/sessions/ab12/vision?uid=9", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown player, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/sessions/ab12/vision?uid=x", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad uid, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	var got service.HistoryOptions
	var gotUID int
	server := setupTestServer(&MockGameService{
		GetHistoryFunc: func(ctx context.Context, sessionID string, uid int, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got, gotUID = opts, uid
			return &service.HistoryResponse{UID: uid, Page: opts.Page}, nil
		},
	})

	serve(server, makeRequest("GET", "/api/sessions/ab12/history", nil))
	if got.Page != 1 || got.Limit != 20 || got.Order != "desc" || gotUID != 1 {
		t.Errorf("Unexpected defaults %+v uid %d", got, gotUID)
	}

	serve(server, makeRequest("GET", "/api/sessions/ab12/history?uid=2&page=3&limit=5&order=asc", nil))
	if got.Page != 3 || got.Limit != 5 || got.Order != "asc" || gotUID != 2 {
		t.Errorf("Unexpected options %+v uid %d", got, gotUID)
	}

	serve(server, makeRequest("GET", "/api/sessions/ab12/history?page=-1&order=sideways", nil))
	if got.Page != 1 || got.Order != "desc" {
		t.Errorf("Invalid values should fall back to defaults, got %+v", got)
	}
}

func TestGetReplay(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/replay", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var doc struct {
		GameID string `json:"game_id"`
	}
	parseResponse(t, w, &doc)
	if doc.GameID != "ab12" {
		t.Errorf("Expected game_id ab12, got %s", doc.GameID)
	}
}

func TestConfigs(t *testing.T) {
	var saved *engine.GameConfig
	server := setupTestServer(&MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "duel", Size: 16, NumPlayers: 2}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName != "duel" {
				return nil, config.ErrConfigNotFound
			}
			return &engine.GameConfig{Name: "duel", Size: 16, NumPlayers: 2}, nil
		},
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
			if cfg.Size < engine.MinGridSize {
				return fmt.Errorf("%w: too small", engine.ErrInvalidConfig)
			}
			saved = cfg
			return nil
		},
	})

	w := serve(server, makeRequest("GET", "/api/configs", nil))
	var configs []*service.ConfigInfo
	parseResponse(t, w, &configs)
	if len(configs) != 1 || configs[0].ConfigID != "duel" {
		t.Errorf("Unexpected configs %+v", configs)
	}

	if w := serve(server, makeRequest("GET", "/api/configs/duel.json", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/configs/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	body := map[string]any{"name": "arena", "size": 12, "num_players": 3, "agents": []string{"random", "random"}}
	if w := serve(server, makeRequest("POST", "/api/configs", body)); w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if saved == nil || saved.NumPlayers != 3 || len(saved.Agents) != 2 {
		t.Errorf("Unexpected saved config %+v", saved)
	}

	if w := serve(server, makeRequest("POST", "/api/configs", map[string]any{"size": 12})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing name, got %d", w.Code)
	}
	if w := serve(server, makeRequest("POST", "/api/configs", map[string]any{"name": "tiny", "size": 2})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid config, got %d", w.Code)
	}
}

func TestListAgentsAndHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := serve(server, makeRequest("GET", "/api/agents", nil))
	var resp struct {
		Agents []string `json:"agents"`
	}
	parseResponse(t, w, &resp)
	if len(resp.Agents) != 3 {
		t.Errorf("Expected 3 agents, got %v", resp.Agents)
	}

	if w := serve(server, makeRequest("GET", "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestWebSocketDisabledWithoutHub(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	if w := serve(server, makeRequest("GET", "/ws?session=ab12", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without a hub, got %d", w.Code)
	}
}
