package assistant_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brainybay/assistant/internal/assistant"
	"github.com/brainybay/assistant/pkg/provider/records"
	recordsmock "github.com/brainybay/assistant/pkg/provider/records/mock"
	"github.com/brainybay/assistant/pkg/provider/textgen"
	textgenmock "github.com/brainybay/assistant/pkg/provider/textgen/mock"
	"github.com/brainybay/assistant/pkg/types"
)

func newManager(t *testing.T, deps assistant.Deps, cfg assistant.Config) *assistant.Manager {
	t.Helper()
	m, err := assistant.NewManager(deps, cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManager_RequiresTextgen(t *testing.T) {
	t.Parallel()

	_, err := assistant.NewManager(assistant.Deps{}, assistant.Config{})
	if err == nil {
		t.Fatal("NewManager() with no textgen provider: want error, got nil")
	}
}

func TestNewManager_SeedsGreeting(t *testing.T) {
	t.Parallel()

	m := newManager(t, assistant.Deps{Textgen: &textgenmock.Provider{}}, assistant.Config{})

	msgs := m.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Messages() length = %d, want 1", len(msgs))
	}
	if msgs[0].ID != "welcome" {
		t.Errorf("greeting ID = %q, want %q", msgs[0].ID, "welcome")
	}
	if msgs[0].Role != assistant.RoleAssistant {
		t.Errorf("greeting Role = %q, want %q", msgs[0].Role, assistant.RoleAssistant)
	}
	if !strings.Contains(msgs[0].Text, "BB Assistant") {
		t.Errorf("greeting Text = %q, want default greeting", msgs[0].Text)
	}
}

func TestNewManager_CustomGreeting(t *testing.T) {
	t.Parallel()

	m := newManager(t, assistant.Deps{Textgen: &textgenmock.Provider{}}, assistant.Config{
		Greeting: "Karibu!",
	})

	if got := m.Messages()[0].Text; got != "Karibu!" {
		t.Errorf("greeting Text = %q, want %q", got, "Karibu!")
	}
}

func TestSubmit_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{})

	for _, text := range []string{"", "   ", "\n\t"} {
		if m.Submit(context.Background(), text) {
			t.Errorf("Submit(%q) = true, want false", text)
		}
	}
	if len(tg.Calls()) != 0 {
		t.Errorf("Generate calls = %d, want 0", len(tg.Calls()))
	}
	if len(m.Messages()) != 1 {
		t.Errorf("Messages() length = %d, want 1 (greeting only)", len(m.Messages()))
	}
}

func TestSubmit_AppendsUserAndReply(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{Response: &textgen.Response{Text: "The fee for Year 11 is KES 90,000 per term."}}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{SystemPrompt: "persona"})

	if !m.Submit(context.Background(), "  What is the tuition for Year 11?  ") {
		t.Fatal("Submit() = false, want true")
	}

	msgs := m.Messages()
	if len(msgs) != 3 {
		t.Fatalf("Messages() length = %d, want 3", len(msgs))
	}
	if msgs[1].Role != assistant.RoleUser || msgs[1].Text != "What is the tuition for Year 11?" {
		t.Errorf("user message = %+v, want trimmed text with user role", msgs[1])
	}
	if msgs[2].Role != assistant.RoleAssistant || msgs[2].Text != "The fee for Year 11 is KES 90,000 per term." {
		t.Errorf("assistant message = %+v", msgs[2])
	}
	if m.Thinking() {
		t.Error("Thinking() = true after Submit returned")
	}

	calls := tg.Calls()
	if len(calls) != 1 {
		t.Fatalf("Generate calls = %d, want 1", len(calls))
	}
	req := calls[0].Req
	if req.SystemPrompt != "persona" {
		t.Errorf("SystemPrompt = %q, want %q", req.SystemPrompt, "persona")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || last.Content != "What is the tuition for Year 11?" {
		t.Errorf("final request message = %+v", last)
	}
}

func TestSubmit_EmptyReplyFallback(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{Response: &textgen.Response{}}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{})

	m.Submit(context.Background(), "hello")

	msgs := m.Messages()
	want := "I'm having a little trouble connecting right now. Please try again."
	if got := msgs[len(msgs)-1].Text; got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestSubmit_GenerateErrorFallback(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{Err: errors.New("backend down")}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{})

	if !m.Submit(context.Background(), "hello") {
		t.Fatal("Submit() = false, want true (failure still appends a reply)")
	}

	msgs := m.Messages()
	want := "I apologize, but I'm currently unable to process your request."
	if got := msgs[len(msgs)-1].Text; got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestSubmit_RejectsConcurrentRequest(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	tg := &textgenmock.Provider{
		GenerateFunc: func(ctx context.Context, req textgen.Request) (*textgen.Response, error) {
			once.Do(func() { close(started) })
			<-release
			return &textgen.Response{Text: "done"}, nil
		},
	}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{})

	first := make(chan bool, 1)
	go func() { first <- m.Submit(context.Background(), "first") }()
	<-started

	if !m.Thinking() {
		t.Error("Thinking() = false during in-flight request")
	}
	if m.Submit(context.Background(), "second") {
		t.Error("Submit() during in-flight request = true, want false")
	}

	close(release)
	if !<-first {
		t.Error("first Submit() = false, want true")
	}

	// The rejected submission must leave no trace in the transcript.
	for _, msg := range m.Messages() {
		if msg.Text == "second" {
			t.Error("rejected submission appeared in transcript")
		}
	}
}

func TestSubmit_ToolCallsPopulateAttachments(t *testing.T) {
	t.Parallel()

	rec := &recordsmock.Provider{}
	tg := &textgenmock.Provider{
		Responses: []*textgen.Response{
			{ToolCalls: []types.ToolCall{
				{ID: "c1", Name: "get_upcoming_assignments"},
				{ID: "c2", Name: "get_current_grades"},
				{ID: "c3", Name: "get_study_recommendations", Arguments: `{"interest":"physics"}`},
			}},
			{Text: "Here is your week at a glance."},
		},
	}
	m := newManager(t, assistant.Deps{Textgen: tg, Records: rec}, assistant.Config{})

	m.Submit(context.Background(), "how am I doing?")

	msgs := m.Messages()
	reply := msgs[len(msgs)-1]
	if reply.Text != "Here is your week at a glance." {
		t.Errorf("reply = %q", reply.Text)
	}
	if reply.Attachments == nil {
		t.Fatal("reply.Attachments = nil, want populated")
	}
	if got := len(reply.Attachments.Assignments); got != 3 {
		t.Errorf("attached assignments = %d, want 3", got)
	}
	if got := len(reply.Attachments.Grades); got != 5 {
		t.Errorf("attached grades = %d, want 5", got)
	}
	if got := len(reply.Attachments.Recommendations); got != 3 {
		t.Errorf("attached recommendations = %d, want 3", got)
	}
	if calls := rec.RecommendationsCalls; len(calls) != 1 || calls[0].Interest != "physics" {
		t.Errorf("recommendations calls = %+v, want one with interest physics", calls)
	}

	// Second generation request carries the tool exchange.
	tgCalls := tg.Calls()
	if len(tgCalls) != 2 {
		t.Fatalf("Generate calls = %d, want 2", len(tgCalls))
	}
	followUp := tgCalls[1].Req.Messages
	var toolResults int
	var sawToolCalls bool
	for _, msg := range followUp {
		switch {
		case msg.Role == "assistant" && len(msg.ToolCalls) == 3:
			sawToolCalls = true
		case msg.Role == "tool":
			toolResults++
			if msg.ToolCallID == "" {
				t.Error("tool message missing ToolCallID")
			}
			if msg.Content == "" {
				t.Error("tool message missing payload")
			}
		}
	}
	if !sawToolCalls {
		t.Error("follow-up request missing the assistant tool-call message")
	}
	if toolResults != 3 {
		t.Errorf("follow-up tool messages = %d, want 3", toolResults)
	}
}

func TestSubmit_ToolSummaryFallback(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{
		Responses: []*textgen.Response{
			{ToolCalls: []types.ToolCall{{ID: "c1", Name: "get_current_grades"}}},
			{Text: ""},
		},
	}
	m := newManager(t, assistant.Deps{Textgen: tg, Records: &recordsmock.Provider{}}, assistant.Config{})

	m.Submit(context.Background(), "grades please")

	msgs := m.Messages()
	reply := msgs[len(msgs)-1]
	if reply.Text != "I've processed your request." {
		t.Errorf("reply = %q, want summary fallback", reply.Text)
	}
	if reply.Attachments == nil || len(reply.Attachments.Grades) == 0 {
		t.Error("attachments missing despite successful fetch")
	}
}

func TestSubmit_EmptyToolResultsOmitAttachments(t *testing.T) {
	t.Parallel()

	// A records backend with nothing due should not attach an empty card.
	rec := &recordsmock.Provider{Assignments: []records.Assignment{}}
	tg := &textgenmock.Provider{
		Responses: []*textgen.Response{
			{ToolCalls: []types.ToolCall{{ID: "c1", Name: "get_upcoming_assignments"}}},
			{Text: "Nothing is due this week."},
		},
	}
	m := newManager(t, assistant.Deps{Textgen: tg, Records: rec}, assistant.Config{})

	m.Submit(context.Background(), "anything due?")

	msgs := m.Messages()
	reply := msgs[len(msgs)-1]
	if reply.Text != "Nothing is due this week." {
		t.Errorf("reply = %q", reply.Text)
	}
	if reply.Attachments != nil {
		t.Errorf("reply.Attachments = %+v, want nil for an empty fetch", reply.Attachments)
	}
}

func TestSubmit_ToolFetchErrorFallback(t *testing.T) {
	t.Parallel()

	rec := &recordsmock.Provider{AssignmentsErr: errors.New("lms unreachable")}
	tg := &textgenmock.Provider{
		Response: &textgen.Response{ToolCalls: []types.ToolCall{
			{ID: "c1", Name: "get_upcoming_assignments"},
		}},
	}
	m := newManager(t, assistant.Deps{Textgen: tg, Records: rec}, assistant.Config{})

	m.Submit(context.Background(), "assignments?")

	msgs := m.Messages()
	want := "I apologize, but I'm currently unable to process your request."
	if got := msgs[len(msgs)-1].Text; got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	if got := len(tg.Calls()); got != 1 {
		t.Errorf("Generate calls = %d, want 1 (no summary pass after fetch failure)", got)
	}
}

func TestSubmit_NoRecordsOffersNoTools(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{Response: &textgen.Response{Text: "ok"}}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{})

	m.Submit(context.Background(), "hello")

	calls := tg.Calls()
	if len(calls) != 1 {
		t.Fatalf("Generate calls = %d, want 1", len(calls))
	}
	if calls[0].Req.Tools != nil {
		t.Errorf("Tools = %v, want nil", calls[0].Req.Tools)
	}
}

func TestSubmit_WithToolsOffersDeclarations(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{Response: &textgen.Response{Text: "ok"}}
	m := newManager(t, assistant.Deps{Textgen: tg, Records: &recordsmock.Provider{}}, assistant.Config{})

	m.Submit(context.Background(), "hello")

	tools := tg.Calls()[0].Req.Tools
	if len(tools) != 3 {
		t.Fatalf("Tools length = %d, want 3", len(tools))
	}
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_upcoming_assignments", "get_current_grades", "get_study_recommendations"} {
		if !names[want] {
			t.Errorf("tool %q not offered", want)
		}
	}
}

func TestSubmit_TimeoutBoundsGeneration(t *testing.T) {
	t.Parallel()

	tg := &textgenmock.Provider{
		GenerateFunc: func(ctx context.Context, req textgen.Request) (*textgen.Response, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				return nil, errors.New("no deadline on generation context")
			}
			if until := time.Until(deadline); until > time.Second {
				return nil, errors.New("deadline too far out")
			}
			return &textgen.Response{Text: "ok"}, nil
		},
	}
	m := newManager(t, assistant.Deps{Textgen: tg}, assistant.Config{RequestTimeout: 500 * time.Millisecond})

	m.Submit(context.Background(), "hello")

	msgs := m.Messages()
	if got := msgs[len(msgs)-1].Text; got != "ok" {
		t.Errorf("reply = %q, want %q (deadline checks failed)", got, "ok")
	}
}
