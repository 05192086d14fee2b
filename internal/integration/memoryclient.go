package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

const (
	memorySource       = "claude-code-plugin"
	defaultSearchLimit = 10
	defaultSearchMode  = "hybrid"
	maxErrorBody       = 1024
)

// PersonalEntityContext guides extraction of memories from a developer's
// own session transcript.
const PersonalEntityContext = `Developer coding session transcript. Focus on USER message and intent.

RULES:
- Extract USER's action/intent, not every detail assistant provides
- Condense assistant responses into what user gained from it
- Skip granular facts from assistant output

EXTRACT:
- Research: "researched whisper.cpp for speech recognition"
- Actions: "built auth flow with JWT", "fixed memory leak in useEffect"
- Preferences: "prefers Tailwind over CSS modules"
- Decisions: "chose SQLite for local storage"
- Learnings: "learned about React Server Components"

SKIP:
- Every fact assistant mentions (condense to user's action)
- Generic assistant explanations user didn't confirm/use`

// RepoEntityContext guides extraction of shareable project knowledge.
const RepoEntityContext = `Project/codebase knowledge for team sharing.

EXTRACT:
- Architecture: "uses monorepo with turborepo", "API in /apps/api"
- Conventions: "components in PascalCase", "hooks prefixed with use"
- Patterns: "all API routes use withAuth wrapper", "errors thrown as ApiError"
- Setup: "requires .env with DATABASE_URL", "run pnpm db:migrate first"
- Decisions: "chose Drizzle over Prisma for performance", "using RSC for data fetching"`

// ErrInvalidAPIKey is returned for keys that do not look like service keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

// APIError is a non-2xx response from the memory service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// AddOptions carries optional fields of an add request.
type AddOptions struct {
	// CustomID makes the add an upsert keyed by this id.
	CustomID      string
	EntityContext string
}

// SearchOptions tunes a memory search.
type SearchOptions struct {
	Limit      int
	SearchMode string
}

// MemoryClient talks to the remote memory service.
type MemoryClient interface {
	AddMemory(ctx context.Context, content, containerTag string, metadata map[string]any, opts AddOptions) (*models.AddResult, error)
	Search(ctx context.Context, query, containerTag string, opts SearchOptions) (*models.SearchResults, error)
	GetProfile(ctx context.Context, containerTag, query string) (*models.ProfileResult, error)
}

type memoryClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ValidateAPIKey checks the key format without contacting the service.
func ValidateAPIKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	switch {
	case apiKey == "":
		return fmt.Errorf("%w: empty", ErrInvalidAPIKey)
	case !strings.HasPrefix(apiKey, "sm_"):
		return fmt.Errorf("%w: must start with sm_", ErrInvalidAPIKey)
	case len(apiKey) < 8:
		return fmt.Errorf("%w: too short", ErrInvalidAPIKey)
	case strings.ContainsAny(apiKey, " \t\r\n"):
		return fmt.Errorf("%w: contains whitespace", ErrInvalidAPIKey)
	}
	return nil
}

// NewMemoryClient creates a client for the service at baseURL.
func NewMemoryClient(baseURL, apiKey string) (MemoryClient, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = core.DefaultAPIURL
	}
	return &memoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *memoryClient) AddMemory(ctx context.Context, content, containerTag string, metadata map[string]any, opts AddOptions) (*models.AddResult, error) {
	md := map[string]any{"sm_source": memorySource}
	for k, v := range metadata {
		md[k] = v
	}
	payload := map[string]any{
		"content":      content,
		"containerTag": containerTag,
		"metadata":     md,
	}
	if opts.CustomID != "" {
		payload["customId"] = opts.CustomID
	}
	if opts.EntityContext != "" {
		payload["entityContext"] = opts.EntityContext
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/v3/documents", payload, &resp); err != nil {
		return nil, fmt.Errorf("adding memory: %w", err)
	}
	return &models.AddResult{ID: resp.ID, Status: resp.Status, ContainerTag: containerTag}, nil
}

// wireMemory is a search hit as returned by the service. The memory body
// arrives under different keys depending on the endpoint.
type wireMemory struct {
	ID         string         `json:"id"`
	Memory     string         `json:"memory"`
	Content    string         `json:"content"`
	Context    string         `json:"context"`
	Chunk      string         `json:"chunk"`
	Title      string         `json:"title"`
	Similarity float64        `json:"similarity"`
	UpdatedAt  string         `json:"updatedAt"`
	Metadata   map[string]any `json:"metadata"`
}

func (w wireMemory) toModel() models.Memory {
	text := w.Content
	if text == "" {
		text = w.Memory
	}
	if text == "" {
		text = w.Context
	}
	return models.Memory{
		ID:         w.ID,
		Memory:     text,
		Chunk:      w.Chunk,
		Title:      w.Title,
		Similarity: w.Similarity,
		UpdatedAt:  w.UpdatedAt,
		Metadata:   w.Metadata,
	}
}

type wireSearchResults struct {
	Results []wireMemory `json:"results"`
	Total   int          `json:"total"`
	Timing  float64      `json:"timing"`
}

// toModel converts the hits; a non-nil seen drops memories already shown in
// an earlier category.
func (w wireSearchResults) toModel(seen *core.SeenSet) *models.SearchResults {
	results := make([]models.Memory, 0, len(w.Results))
	for _, r := range w.Results {
		results = append(results, r.toModel())
	}
	if seen != nil {
		results = core.FilterUnseen(seen, results, func(m models.Memory) string { return m.Memory })
	}
	return &models.SearchResults{
		Results: results,
		Total:   w.Total,
		Timing:  w.Timing,
	}
}

func (c *memoryClient) Search(ctx context.Context, query, containerTag string, opts SearchOptions) (*models.SearchResults, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultSearchLimit
	}
	if opts.SearchMode == "" {
		opts.SearchMode = defaultSearchMode
	}
	payload := map[string]any{
		"q":            query,
		"containerTag": containerTag,
		"limit":        opts.Limit,
		"searchMode":   opts.SearchMode,
	}

	var resp wireSearchResults
	if err := c.post(ctx, "/v4/search", payload, &resp); err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	results := resp.toModel(nil)
	results.Results = core.Dedupe(results.Results, func(m models.Memory) string { return m.Memory })
	return results, nil
}

// GetProfile fetches the profile for containerTag. Facts are deduplicated
// across static, dynamic and search results in that order, so a fact kept
// in one category is dropped from the later ones.
func (c *memoryClient) GetProfile(ctx context.Context, containerTag, query string) (*models.ProfileResult, error) {
	payload := map[string]any{"containerTag": containerTag}
	if query != "" {
		payload["q"] = query
	}

	var resp struct {
		Profile struct {
			Static  []string `json:"static"`
			Dynamic []string `json:"dynamic"`
		} `json:"profile"`
		SearchResults *wireSearchResults `json:"searchResults"`
	}
	if err := c.post(ctx, "/v4/profile", payload, &resp); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	seen := core.NewSeenSet()
	result := &models.ProfileResult{
		Profile: models.Profile{
			Static:  seen.FilterStrings(resp.Profile.Static),
			Dynamic: seen.FilterStrings(resp.Profile.Dynamic),
		},
	}
	if resp.SearchResults != nil {
		result.SearchResults = resp.SearchResults.toModel(seen)
	}
	return result, nil
}

func (c *memoryClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
