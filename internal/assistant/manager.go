package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brainybay/assistant/internal/observe"
	"github.com/brainybay/assistant/pkg/audio"
	"github.com/brainybay/assistant/pkg/provider/records"
	"github.com/brainybay/assistant/pkg/provider/textgen"
	"github.com/brainybay/assistant/pkg/provider/voice"
	"github.com/brainybay/assistant/pkg/types"
)

const (
	// defaultRequestTimeout bounds each remote generation or tool fetch call
	// when the config does not set one. An unbounded hang would freeze the
	// thinking state indefinitely.
	defaultRequestTimeout = 30 * time.Second

	// emptyReplyFallback is shown when the backend returns an empty reply.
	emptyReplyFallback = "I'm having a little trouble connecting right now. Please try again."

	// errorFallback is shown when the generation call fails. Every accepted
	// submission gets a terminal assistant reply, error or not.
	errorFallback = "I apologize, but I'm currently unable to process your request."

	// toolSummaryFallback is shown when the second-pass summary after tool
	// execution comes back empty.
	toolSummaryFallback = "I've processed your request."

	// defaultGreeting opens the transcript when a session starts.
	defaultGreeting = "Hello! I'm BB Assistant, your instant study partner. Ask me about our Cambridge curriculum or how to log in!"

	// greetingID is the fixed id of the seeded greeting message.
	greetingID = "welcome"
)

// Tool names offered to the model when a records provider is configured.
const (
	toolAssignments     = "get_upcoming_assignments"
	toolGrades          = "get_current_grades"
	toolRecommendations = "get_study_recommendations"
)

// ErrVoiceActive is returned by StartVoice when a session is already open.
// Starting while active is disallowed; stop first.
var ErrVoiceActive = errors.New("assistant: voice session already active")

// Config holds conversation behaviour settings for a Manager.
type Config struct {
	// SystemPrompt is sent with every generation request and as the voice
	// session instructions. Empty uses DefaultSystemPrompt.
	SystemPrompt string

	// Greeting seeds the transcript. Empty uses the built-in greeting.
	Greeting string

	// Voice is the synthesised voice name for voice sessions. Empty uses the
	// provider default.
	Voice string

	// RequestTimeout bounds each remote call. Zero means 30 seconds.
	RequestTimeout time.Duration
}

// Deps are the injected collaborators for a Manager. Textgen is required;
// the rest enable optional capabilities (tool calls, voice mode).
type Deps struct {
	// Textgen produces the text replies. Required.
	Textgen textgen.Provider

	// Voice opens streaming voice sessions. Nil disables voice mode.
	Voice voice.Provider

	// Records serves the academic tool calls. Nil means no tools are offered
	// to the model.
	Records records.Provider

	// Capture is the microphone capability for voice mode.
	Capture audio.CaptureDevice

	// NewOutput opens a playback pipeline for one voice session. The session
	// owns the returned Output and closes it on teardown.
	NewOutput func() (audio.Output, error)

	// Metrics receives turn and tool instrumentation. Nil uses the global
	// default.
	Metrics *observe.Metrics
}

// Manager owns the chat transcript and mediates all communication with the
// generation backends. The transcript is mutated only by the Manager; at most
// one text request is in flight at a time, and at most one voice session is
// open at a time. Safe for concurrent use.
type Manager struct {
	cfg     Config
	tg      textgen.Provider
	voice   voice.Provider
	records records.Provider
	capture audio.CaptureDevice

	newOutput func() (audio.Output, error)
	metrics   *observe.Metrics

	newID func() string
	now   func() time.Time

	mu       sync.Mutex
	messages []ChatMessage
	thinking bool
	vs       *voiceSession
}

// NewManager creates a session manager with the given collaborators. The
// transcript starts with the greeting message.
func NewManager(deps Deps, cfg Config) (*Manager, error) {
	if deps.Textgen == nil {
		return nil, errors.New("assistant: textgen provider is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	m := &Manager{
		cfg:       cfg,
		tg:        deps.Textgen,
		voice:     deps.Voice,
		records:   deps.Records,
		capture:   deps.Capture,
		newOutput: deps.NewOutput,
		metrics:   deps.Metrics,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	m.messages = []ChatMessage{{
		ID:        greetingID,
		Role:      RoleAssistant,
		Text:      cfg.Greeting,
		Timestamp: m.now(),
	}}
	return m, nil
}

// Messages returns a snapshot of the transcript in order.
func (m *Manager) Messages() []ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Thinking reports whether a text request is currently in flight.
func (m *Manager) Thinking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thinking
}

// Submit runs one text turn. It reports false without side effects when text
// is empty/whitespace or another request is already in flight; concurrent
// submissions are rejected, not queued.
//
// On acceptance the user message is appended immediately, an active voice
// session is stopped (typing implies a mode switch), and the call blocks
// until exactly one terminal assistant reply has been appended: the model's
// text, a fallback for an empty reply, or a fixed apology on failure.
func (m *Manager) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	m.mu.Lock()
	if m.thinking {
		m.mu.Unlock()
		return false
	}
	m.thinking = true
	vs := m.vs
	m.vs = nil
	m.messages = append(m.messages, ChatMessage{
		ID:        m.newID(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: m.now(),
	})
	history := m.historyLocked()
	m.mu.Unlock()

	// Typing while voice is active stops the voice session.
	if vs != nil {
		vs.teardown()
		m.metrics.ActiveVoiceSessions.Add(ctx, -1)
	}

	start := m.now()
	reply := m.runTurn(ctx, history)
	status := "ok"
	if reply.failed {
		status = "error"
	}
	m.metrics.RecordTurn(ctx, status, m.now().Sub(start).Seconds())

	attachments := reply.attachments
	if attachments.empty() {
		attachments = nil
	}

	m.mu.Lock()
	m.messages = append(m.messages, ChatMessage{
		ID:          m.newID(),
		Role:        RoleAssistant,
		Text:        reply.text,
		Timestamp:   m.now(),
		Attachments: attachments,
		Citations:   reply.citations,
	})
	m.thinking = false
	m.mu.Unlock()
	return true
}

// turnResult is the terminal assistant reply for one accepted submission.
type turnResult struct {
	text        string
	attachments *Attachments
	citations   []textgen.Citation
	failed      bool
}

// runTurn performs the generation call(s) for one text turn and always
// produces a terminal reply. Failures are recovered here; nothing propagates.
func (m *Manager) runTurn(ctx context.Context, history []types.Message) turnResult {
	ctx, span := observe.StartSpan(ctx, "assistant.turn")
	defer span.End()
	log := observe.Logger(ctx)

	resp, err := m.generate(ctx, history)
	if err != nil {
		log.Warn("generation call failed", "err", err)
		m.metrics.RecordProviderError(ctx, "textgen", "generate")
		return turnResult{text: errorFallback, failed: true}
	}

	if len(resp.ToolCalls) == 0 {
		text := resp.Text
		if strings.TrimSpace(text) == "" {
			text = emptyReplyFallback
		}
		return turnResult{text: text, citations: resp.Citations}
	}

	attachments, toolMsgs, err := m.executeToolCalls(ctx, resp.ToolCalls)
	if err != nil {
		log.Warn("tool call failed", "err", err)
		return turnResult{text: errorFallback, failed: true}
	}

	// Second pass: seed the model with the tool outputs to get a
	// natural-language summary.
	followUp := append(append([]types.Message{}, history...), types.Message{
		Role:      string(RoleAssistant),
		ToolCalls: resp.ToolCalls,
	})
	followUp = append(followUp, toolMsgs...)

	summary, err := m.generate(ctx, followUp)
	if err != nil {
		log.Warn("tool summary call failed", "err", err)
		m.metrics.RecordProviderError(ctx, "textgen", "generate")
		return turnResult{text: errorFallback, attachments: attachments, failed: true}
	}

	text := summary.Text
	if strings.TrimSpace(text) == "" {
		text = toolSummaryFallback
	}
	return turnResult{text: text, attachments: attachments, citations: summary.Citations}
}

// generate issues one bounded generation call with the session's system
// prompt and tool declarations.
func (m *Manager) generate(ctx context.Context, history []types.Message) (*textgen.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	return m.tg.Generate(ctx, textgen.Request{
		SystemPrompt: m.cfg.SystemPrompt,
		Messages:     history,
		Tools:        m.toolDefinitions(),
	})
}

// executeToolCalls fetches the requested records concurrently. All fetches
// must complete before the summary call; the first failure aborts the rest.
func (m *Manager) executeToolCalls(ctx context.Context, calls []types.ToolCall) (*Attachments, []types.Message, error) {
	if m.records == nil {
		return nil, nil, errors.New("assistant: no records provider configured")
	}

	var (
		mu          sync.Mutex
		attachments Attachments
		toolMsgs    = make([]types.Message, len(calls))
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, m.cfg.RequestTimeout)
			defer cancel()

			start := m.now()
			payload, err := m.fetchTool(fctx, call, &mu, &attachments)
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.metrics.RecordToolCall(ctx, call.Name, status, m.now().Sub(start).Seconds())
			if err != nil {
				return fmt.Errorf("assistant: tool %s: %w", call.Name, err)
			}
			toolMsgs[i] = types.Message{
				Role:       "tool",
				Content:    payload,
				ToolCallID: call.ID,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return &attachments, toolMsgs, nil
}

// fetchTool runs one records fetch and returns its JSON payload for the
// follow-up generation call. Results are also collected into attachments for
// structured display.
func (m *Manager) fetchTool(ctx context.Context, call types.ToolCall, mu *sync.Mutex, attachments *Attachments) (string, error) {
	switch call.Name {
	case toolAssignments:
		assignments, err := m.records.UpcomingAssignments(ctx)
		if err != nil {
			return "", err
		}
		mu.Lock()
		attachments.Assignments = assignments
		mu.Unlock()
		return encodePayload(assignments)

	case toolGrades:
		grades, err := m.records.CurrentGrades(ctx)
		if err != nil {
			return "", err
		}
		mu.Lock()
		attachments.Grades = grades
		mu.Unlock()
		return encodePayload(grades)

	case toolRecommendations:
		var args struct {
			Interest string `json:"interest"`
		}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
		}
		recs, err := m.records.StudyRecommendations(ctx, args.Interest)
		if err != nil {
			return "", err
		}
		mu.Lock()
		attachments.Recommendations = recs
		mu.Unlock()
		return encodePayload(recs)

	default:
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
}

// encodePayload renders a tool result as JSON for the follow-up prompt.
func encodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// toolDefinitions returns the function declarations offered to the model.
// Empty when no records provider is configured.
func (m *Manager) toolDefinitions() []types.ToolDefinition {
	if m.records == nil {
		return nil
	}
	return []types.ToolDefinition{
		{
			Name:        toolAssignments,
			Description: "Fetch the student's upcoming assignments from the learning management system.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        toolGrades,
			Description: "Fetch the student's current grades per subject.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        toolRecommendations,
			Description: "Fetch personalised study recommendations for the student.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"interest": map[string]any{
						"type":        "string",
						"description": "A subject or topic the student expressed interest in.",
					},
				},
			},
		},
	}
}

// historyLocked converts the transcript to generation messages. Must be
// called with m.mu held.
func (m *Manager) historyLocked() []types.Message {
	out := make([]types.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, types.Message{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}
	return out
}
