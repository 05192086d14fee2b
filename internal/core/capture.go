package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gracie007-cloud/claude-supermemory/internal/transcript"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

// captureNamespace scopes the deterministic ids given to captured windows.
var captureNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://supermemory.ai/claude-code/capture"))

// CaptureOptions selects the extraction policy for one capture.
type CaptureOptions struct {
	// Signal extracts only keyword-triggered windows instead of the full delta.
	Signal      bool
	Keywords    []string
	TurnsBefore int
	// IncludeTools names the tools whose activity is rendered in full mode.
	IncludeTools []string
	// DryRun renders without advancing the watermark.
	DryRun bool
}

// CaptureResult is a rendered window ready to be stored.
type CaptureResult struct {
	SessionID   string
	Mode        models.CaptureMode
	Content     string
	LastUUID    string
	EntryCount  int
	TurnCount   int
	SignalCount int
}

// CustomID returns a stable id for the capture so that re-sending it
// replaces the stored memory instead of duplicating it.
func (r *CaptureResult) CustomID() string {
	return CaptureCustomID(r.SessionID, r.LastUUID)
}

// CaptureCustomID derives a deterministic id from a session and the last
// captured entry.
func CaptureCustomID(sessionID, lastUUID string) string {
	return uuid.NewSHA1(captureNamespace, []byte(sessionID+"/"+lastUUID)).String()
}

// Capturer turns the unseen part of a session transcript into a rendered
// memory and advances the session's watermark.
type Capturer interface {
	Capture(sessionID, transcriptPath string, opts CaptureOptions) (*CaptureResult, error)
}

type transcriptCapturer struct {
	watermarks WatermarkStore
	now        func() time.Time
}

// NewCapturer creates a Capturer that keeps its progress in watermarks.
func NewCapturer(watermarks WatermarkStore) Capturer {
	return &transcriptCapturer{watermarks: watermarks, now: time.Now}
}

// Capture renders the entries after the session's watermark. It returns a
// nil result when there is nothing worth storing; the watermark only moves
// after a successful render. A failure to persist the watermark is returned
// together with the result so the caller can still store the content.
func (c *transcriptCapturer) Capture(sessionID, transcriptPath string, opts CaptureOptions) (*CaptureResult, error) {
	entries, err := transcript.ParseFile(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	watermark, err := c.watermarks.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading watermark for %s: %w", sessionID, err)
	}

	fresh := transcript.SinceWatermark(entries, watermark)
	if len(fresh) == 0 {
		return nil, nil
	}

	result := &CaptureResult{
		SessionID:  sessionID,
		Mode:       models.CaptureModeFull,
		EntryCount: len(fresh),
		LastUUID:   lastUUID(fresh),
	}
	fresh = redactEntries(fresh)

	var (
		content string
		ok      bool
	)
	if opts.Signal {
		result.Mode = models.CaptureModeSignal
		keywords := opts.Keywords
		if len(keywords) == 0 {
			keywords = transcript.DefaultSignalKeywords
		}
		turns := transcript.Group(fresh, transcript.SignalPolicy)
		signals := transcript.FindSignals(turns, keywords)
		if len(signals) == 0 {
			return nil, nil
		}
		window := transcript.SelectWindow(turns, signals, opts.TurnsBefore)
		result.TurnCount = len(window)
		result.SignalCount = len(signals)

		renderer := &transcript.Renderer{Now: c.now}
		content, ok = renderer.RenderTurns(window)
	} else {
		// Invalid patterns degrade to literal names; the hook engine logs them.
		tools, _ := transcript.NewToolFilter(opts.IncludeTools)
		result.TurnCount = len(transcript.Group(fresh, transcript.FullPolicy))

		renderer := &transcript.Renderer{Tools: tools, Now: c.now}
		content, ok = renderer.RenderEntries(fresh)
	}
	if !ok {
		return nil, nil
	}
	result.Content = content

	if opts.DryRun || result.LastUUID == "" {
		return result, nil
	}
	if err := c.watermarks.Set(sessionID, result.LastUUID); err != nil {
		return result, fmt.Errorf("saving watermark for %s: %w", sessionID, err)
	}
	return result, nil
}

// lastUUID is the uuid of the last entry that has one, so an id-less tail
// entry does not pin the watermark.
func lastUUID(entries []transcript.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].UUID != "" {
			return entries[i].UUID
		}
	}
	return ""
}

// redactEntries returns copies of entries with private spans replaced in
// message text, tool inputs and tool results. Redaction happens before
// rendering so truncation can never cut a closing tag.
func redactEntries(entries []transcript.Entry) []transcript.Entry {
	out := make([]transcript.Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.Message == nil {
			continue
		}
		msg := *e.Message
		msg.Text = StripPrivate(msg.Text)
		if len(msg.Blocks) > 0 {
			blocks := make([]transcript.ContentBlock, len(msg.Blocks))
			for j, b := range msg.Blocks {
				b.Text = StripPrivate(b.Text)
				b.Content = StripPrivate(b.Content)
				if b.Input != nil {
					b.Input, _ = StripPrivateJSON(b.Input).(map[string]any)
				}
				blocks[j] = b
			}
			msg.Blocks = blocks
		}
		out[i].Message = &msg
	}
	return out
}
