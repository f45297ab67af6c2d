package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/lightcycle/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Light Cycle Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Light Cycle Arena - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer your light cycle (player 1, drawn as A) and outlive every opponent.
Each tick every cycle turns and moves one cell, leaving a permanent trail.

AVAILABLE TOOLS:
- create_session: Start a game from a preset
- list_sessions / get_session: Inspect games
- observe: Board, heads and the vision window around your cycle
- move: Play one tick (one turn per external player)
- simulate: Let agents finish the game
- reset_game: Restart the game
- history: Per-player tick records
- list_configs / list_agents: Presets and scripted opponents
- game_instructions: Full rules

NOTE: The 'intent' parameter on move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))

	// Session management
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new game session from a preset"),
		mcp.WithString("config_id", mcp.Description("Preset to use, e.g. classic, duel, solo (optional)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active game sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get players, statuses and the rendered board of a session"),
		sessionID,
	), c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.NewTool("observe",
		mcp.WithDescription("Get the board and the vision window around a player's head (1 = occupied)"),
		sessionID,
		mcp.WithNumber("uid", mcp.Description("Player to look from (default 1)")),
		mcp.WithNumber("size", mcp.Description("Odd vision window size (default from the preset)")),
	), c.handleObserve)

	c.mcpServer.AddTool(mcp.NewTool("move",
		mcp.WithDescription("Play one tick. Give one turn per externally controlled player, in uid order"),
		sessionID,
		mcp.WithArray("actions",
			mcp.Required(),
			mcp.Description("Turns relative to the current heading"),
			mcp.WithStringItems(mcp.Enum("left", "soft_left", "straight", "soft_right", "right")),
		),
		mcp.WithString("intent", mcp.Description("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)")),
		mcp.WithBoolean("reset", mcp.Description("Reset before moving")),
	), c.handleMove)

	c.mcpServer.AddTool(mcp.NewTool("simulate",
		mcp.WithDescription("Play the game to completion with scripted agents"),
		sessionID,
		mcp.WithNumber("max_ticks", mcp.Description("Upper bound on ticks (optional)")),
	), c.handleSimulate)

	c.mcpServer.AddTool(mcp.NewTool("reset_game",
		mcp.WithDescription("Reset the game to a fresh start"),
		sessionID,
	), c.handleReset)

	c.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Get a player's tick records"),
		sessionID,
		mcp.WithNumber("uid", mcp.Description("Player (default 1)")),
		mcp.WithNumber("page", mcp.Description("Page number")),
		mcp.WithNumber("limit", mcp.Description("Items per page")),
	), c.handleHistory)

	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available game presets"),
	), c.handleListConfigs)

	c.mcpServer.AddTool(mcp.NewTool("list_agents",
		mcp.WithDescription("List scripted agents usable as opponents"),
	), c.handleListAgents)

	c.mcpServer.AddTool(mcp.NewTool("game_instructions",
		mcp.WithDescription("Get comprehensive game instructions and rules"),
	), c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(id, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := request.GetString("config_id", ""); configID != "" {
		body["config_id"] = configID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created " + formatSessionInfo(&info)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		state := "running"
		if s.Done {
			state = "finished"
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Tick: %d, %s, Created: %s)\n",
			s.ID, s.ConfigName, s.Tick, state, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(id, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleObserve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(id, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	query.Set("uid", fmt.Sprint(request.GetInt("uid", 1)))
	if size := request.GetInt("size", 0); size > 0 {
		query.Set("size", fmt.Sprint(size))
	}
	var vision service.VisionResponse
	if err := c.apiCall(ctx, "GET", sessionPath(id, "/vision?"+query.Encode()), nil, &vision); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info) + "\n" + formatVision(&vision)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	actions, err := request.RequireStringSlice("actions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent serves as rubber duck debugging and is not forwarded
	_ = request.GetString("intent", "")

	body := map[string]any{
		"actions": actions,
		"reset":   request.GetBool("reset", false),
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(id, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]int{"max_ticks": request.GetInt("max_ticks", 0)}
	var result service.SimulateResult
	if err := c.apiCall(ctx, "POST", sessionPath(id, "/simulate"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSimulateResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string `json:"message"`
		Board   string `json:"board"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(id, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, response.Board)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	query.Set("uid", fmt.Sprint(request.GetInt("uid", 1)))
	if page := request.GetInt("page", 0); page > 0 {
		query.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", sessionPath(id, "/history?"+query.Encode()), nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		opponents := "none"
		if len(cfg.Agents) > 0 {
			opponents = strings.Join(cfg.Agents, ", ")
		}
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Arena: %dx%d, Players: %d, Agents: %s\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.Size, cfg.Size, cfg.NumPlayers, opponents)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListAgents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Agents []string `json:"agents"`
	}
	if err := c.apiCall(ctx, "GET", "/api/agents", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Agents: " + strings.Join(response.Agents, ", ")), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Light Cycle Arena - Complete Instructions

GAME OBJECTIVE:
Be the last cycle moving. In a solo game, survive as many ticks as possible.

BOARD:
• '#' is the border wall, '.' is empty
• Digits are trails (1 = player 1's trail)
• Letters are heads: A = player 1, B = player 2, ...; X is a crashed head
• Row 0 is the top. North is up

MOVEMENT:
• Headings: N, NE, E, SE, S, SW, W, NW (diagonals are allowed)
• Each tick you turn relative to your heading, then move one cell:
  left = 90° counter-clockwise, straight, right = 90° clockwise
  soft_left / soft_right = 45° (only when the preset enables soft turns)
• Every cell you leave becomes part of your trail forever

CRASHES (checked in this order):
• CRASH_INTO_WALL - you entered the border
• CRASH_INTO_SELF - you entered your own trail
• CRASH_INTO_TAIL - you entered another cycle's trail
• CRASH_INTO_OPPONENT - two cycles entered the same cell on the same tick
Crashed cycles freeze in place.

REWARDS:
• +1 for every tick you survive
• -100 once, on the tick you crash

STRATEGY TIPS:
1. Use observe: the vision grid marks occupied cells (1) around your head
2. Straight is not always safe; check the cell ahead before every move
3. Avoid cells another head could reach on the same tick
4. Keep large open regions available; cutting yourself off is slow death`

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nTick: %d\n", info.ID, info.ConfigName, info.Tick)
	if info.Done {
		if info.Winner > 0 {
			fmt.Fprintf(&b, "Game over - winner: player %d\n", info.Winner)
		} else {
			b.WriteString("Game over\n")
		}
	}
	if len(info.AllowedTurns) > 0 {
		fmt.Fprintf(&b, "Allowed turns: %s\n", strings.Join(info.AllowedTurns, ", "))
	}
	if len(info.ExternalPlayers) > 0 {
		fmt.Fprintf(&b, "You control players: %v\n", info.ExternalPlayers)
	}

	b.WriteString("\nPlayers:\n")
	for _, p := range info.Players {
		fmt.Fprintf(&b, "  %d (%s) at (%d,%d) heading %s - %s, reward %.0f\n",
			p.UID, p.Controller, p.Position.X, p.Position.Y, p.Orientation, p.Status, p.TotalReward)
	}

	if info.Board != "" {
		b.WriteString("\n" + info.Board)
	}
	return b.String()
}

func formatVision(v *service.VisionResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vision of player %d (%dx%d around (%d,%d), heading %s):\n",
		v.UID, v.Size, v.Size, v.Position.X, v.Position.Y, v.Orientation)
	if v.Size == 0 || len(v.Grid) != v.Size*v.Size {
		b.WriteString("(vision clipped at the board edge)\n")
		fmt.Fprintf(&b, "%v\n", v.Grid)
		return b.String()
	}
	for y := 0; y < v.Size; y++ {
		for x := 0; x < v.Size; x++ {
			switch {
			case y == v.Size/2 && x == v.Size/2:
				b.WriteByte('@')
			case v.Grid[y*v.Size+x] == 1:
				b.WriteByte('#')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick %d | Actions: %s\n", result.Tick, strings.Join(result.Actions, ", "))
	for i, status := range result.Statuses {
		reward := 0.0
		if i < len(result.Rewards) {
			reward = result.Rewards[i]
		}
		fmt.Fprintf(&b, "  Player %d: %s (reward %+.0f)\n", i+1, status, reward)
	}
	for _, e := range result.Events {
		fmt.Fprintf(&b, "  * %s\n", e.Message)
	}
	if result.Done {
		b.WriteString("GAME OVER\n")
	}
	if result.Board != "" {
		b.WriteString("\n" + result.Board)
	}
	return b.String()
}

func formatSimulateResult(result *service.SimulateResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Simulated to tick %d (done: %v, winner: %d)\n", result.Ticks, result.Done, result.Winner)
	for _, s := range result.Stats {
		fmt.Fprintf(&b, "  Player %d: %d actions, total reward %.0f, %s\n", s.UID, s.NumActions, s.TotalReward, s.CrashFlag)
	}
	if result.Board != "" {
		b.WriteString("\n" + result.Board)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History of player %d (Page %d/%d) - Total records: %d\n\n",
		history.UID, history.Page, history.TotalPages, history.TotalRecords)

	for _, r := range history.Records {
		fmt.Fprintf(&b, "(%d,%d) %s %s %s reward %+.0f\n",
			r.X, r.Y, r.Orientation, r.Action, r.Status, r.Reward)
	}

	return b.String()
}
