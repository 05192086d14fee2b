// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the memory service as tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
)

// Scope identifies the containers the server reads from and writes to.
type Scope struct {
	ProjectName  string
	ContainerTag string
	UserTag      string
}

// tag resolves a tool's scope argument to a container tag.
func (s Scope) tag(scope string) (string, error) {
	switch scope {
	case "", "project":
		return s.ContainerTag, nil
	case "user":
		return s.UserTag, nil
	default:
		return "", fmt.Errorf("invalid scope %q: must be project or user", scope)
	}
}

// Server wraps the memory client and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	client      integration.MemoryClient
	scope       Scope
	metricsCalc observability.MetricsCalculator
	eventLog    observability.EventLog
	now         func() time.Time
}

// NewServer creates a new MCP server. client is nil when no API key is
// configured; metricsCalc and eventLog may be nil if observability is disabled.
func NewServer(client integration.MemoryClient, scope Scope, metricsCalc observability.MetricsCalculator, eventLog observability.EventLog, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		client:      client,
		scope:       scope,
		metricsCalc: metricsCalc,
		eventLog:    eventLog,
		now:         time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "supermemory", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type searchInput struct {
	Query string `json:"query" jsonschema:"required,what to look for in stored memories"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 10)"`
	Scope string `json:"scope,omitempty" jsonschema:"project (default) or user"`
}

type memoryOutput struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type searchOutput struct {
	Results   []memoryOutput `json:"results"`
	Count     int            `json:"count"`
	Formatted string         `json:"formatted"`
}

type getProfileInput struct {
	Query string `json:"query,omitempty" jsonschema:"optional query to attach relevant memories to the profile"`
}

type profileOutput struct {
	Static    []string `json:"static"`
	Dynamic   []string `json:"dynamic"`
	Formatted string   `json:"formatted"`
}

type saveMemoryInput struct {
	Content string `json:"content" jsonschema:"required,the fact or note to remember"`
	Scope   string `json:"scope,omitempty" jsonschema:"project (default) or user"`
}

type saveMemoryOutput struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	CapturesSaved     int            `json:"captures_saved"`
	CapturesSkipped   int            `json:"captures_skipped"`
	CapturesFailed    int            `json:"captures_failed"`
	CapturesByMode    map[string]int `json:"captures_by_mode"`
	PromptsSaved      int            `json:"prompts_saved"`
	ObservationsSaved int            `json:"observations_saved"`
	ContextInjections int            `json:"context_injections"`
	Sessions          int            `json:"sessions"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "search_memories",
		Description: "Search memories saved from earlier coding sessions. Returns the matching memories ranked by similarity.",
	}, s.handleSearch)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_profile",
		Description: "Get the persistent and recent profile facts for the current project, optionally with memories relevant to a query.",
	}, s.handleGetProfile)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "save_memory",
		Description: "Save a fact or note so future sessions can recall it. Content inside <private> tags is redacted.",
	}, s.handleSaveMemory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get capture metrics from the local event log: saved, skipped and failed captures, prompts, observations and context injections.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) handleSearch(ctx context.Context, _ *gomcp.CallToolRequest, input searchInput) (*gomcp.CallToolResult, searchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult("query is required"), searchOutput{}, nil
	}
	if s.client == nil {
		return errorResult(noClientMessage), searchOutput{}, nil
	}
	tag, err := s.scope.tag(input.Scope)
	if err != nil {
		return errorResult(err.Error()), searchOutput{}, nil
	}

	results, err := s.client.Search(ctx, query, tag, integration.SearchOptions{Limit: input.Limit})
	if err != nil {
		return errorResult(fmt.Sprintf("searching memories: %s", err)), searchOutput{}, nil
	}

	out := searchOutput{Results: make([]memoryOutput, 0, len(results.Results))}
	for _, m := range results.Results {
		out.Results = append(out.Results, memoryOutput{
			ID:         m.ID,
			Text:       m.Text(),
			Similarity: m.Similarity,
			UpdatedAt:  m.UpdatedAt,
		})
	}
	out.Count = len(out.Results)
	out.Formatted = core.FormatSearchResults(query, results.Results, "Memories", s.now())

	s.record(observability.EventSearchPerformed, "mcp search", map[string]any{
		"query":   query,
		"results": out.Count,
	})
	return nil, out, nil
}

func (s *Server) handleGetProfile(ctx context.Context, _ *gomcp.CallToolRequest, input getProfileInput) (*gomcp.CallToolResult, profileOutput, error) {
	if s.client == nil {
		return errorResult(noClientMessage), profileOutput{}, nil
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		query = s.scope.ProjectName
	}

	result, err := s.client.GetProfile(ctx, s.scope.ContainerTag, query)
	if err != nil {
		return errorResult(fmt.Sprintf("getting profile: %s", err)), profileOutput{}, nil
	}

	out := profileOutput{
		Static:  nonNil(result.Profile.Static),
		Dynamic: nonNil(result.Profile.Dynamic),
	}
	out.Formatted = core.FormatContext(result, true, input.Query != "", 10, false, s.now())
	if out.Formatted == "" {
		out.Formatted = "No memories stored for this project yet."
	}
	return nil, out, nil
}

func (s *Server) handleSaveMemory(ctx context.Context, _ *gomcp.CallToolRequest, input saveMemoryInput) (*gomcp.CallToolResult, saveMemoryOutput, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return errorResult("content is required"), saveMemoryOutput{}, nil
	}
	if core.IsFullyPrivate(content) {
		return errorResult("content is entirely private and was not saved"), saveMemoryOutput{}, nil
	}
	if s.client == nil {
		return errorResult(noClientMessage), saveMemoryOutput{}, nil
	}
	tag, err := s.scope.tag(input.Scope)
	if err != nil {
		return errorResult(err.Error()), saveMemoryOutput{}, nil
	}

	// Project memories are shared knowledge; user memories are personal.
	opts := integration.AddOptions{EntityContext: integration.RepoEntityContext}
	if input.Scope == "user" {
		opts.EntityContext = integration.PersonalEntityContext
	}

	content = core.StripPrivate(content)
	res, err := s.client.AddMemory(ctx, content, tag, map[string]any{
		"type":    "manual",
		"project": s.scope.ProjectName,
	}, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("saving memory: %s", err)), saveMemoryOutput{}, nil
	}

	return nil, saveMemoryOutput{
		ID:      res.ID,
		Status:  res.Status,
		Message: fmt.Sprintf("memory saved to %s", tag),
	}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := ParseSince(sinceStr, s.now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		CapturesSaved:     metrics.CapturesSaved,
		CapturesSkipped:   metrics.CapturesSkipped,
		CapturesFailed:    metrics.CapturesFailed,
		CapturesByMode:    metrics.CapturesByMode,
		PromptsSaved:      metrics.PromptsSaved,
		ObservationsSaved: metrics.ObservationsSaved,
		ContextInjections: metrics.ContextInjections,
		Sessions:          metrics.Sessions,
		EventCount:        metrics.EventCount,
	}
	if out.CapturesByMode == nil {
		out.CapturesByMode = make(map[string]int)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

// --- Helpers ---

const noClientMessage = "memory service not configured: set SUPERMEMORY_CC_API_KEY or run `supermemory config set-key`"

func (s *Server) record(eventType, msg string, data map[string]any) {
	if s.eventLog == nil {
		return
	}
	_ = s.eventLog.Write(observability.Event{
		Time:    s.now().UTC(),
		Level:   observability.LevelInfo,
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{CapturesByMode: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	now = now.UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
