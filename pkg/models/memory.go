package models

// Memory is a single stored memory returned by a search.
type Memory struct {
	ID         string         `json:"id"`
	Memory     string         `json:"memory,omitempty"`
	Chunk      string         `json:"chunk,omitempty"`
	Title      string         `json:"title,omitempty"`
	Similarity float64        `json:"similarity"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Text returns the memory body, falling back to the matched chunk.
func (m Memory) Text() string {
	if m.Memory != "" {
		return m.Memory
	}
	return m.Chunk
}

// SearchResults is the response of a memory search.
type SearchResults struct {
	Results []Memory `json:"results"`
	Total   int      `json:"total"`
	Timing  float64  `json:"timing"`
}

// Profile groups durable facts about the user or project.
type Profile struct {
	Static  []string `json:"static"`
	Dynamic []string `json:"dynamic"`
}

// ProfileResult is a profile together with optional query results.
type ProfileResult struct {
	Profile       Profile        `json:"profile"`
	SearchResults *SearchResults `json:"searchResults,omitempty"`
}

// AddResult acknowledges a stored memory.
type AddResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ContainerTag string `json:"containerTag,omitempty"`
}
