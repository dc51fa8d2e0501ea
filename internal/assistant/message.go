// Package assistant implements the conversational session manager: a chat
// transcript plus the turn logic that mediates between the user and the
// generation backends, in two mutually exclusive modes. Text mode dispatches
// discrete request/response turns (with tool-call handling against the
// academic records collaborator); voice mode runs a persistent bidirectional
// audio stream with live transcription, gapless playback scheduling, and
// barge-in handling.
package assistant

import (
	"time"

	"github.com/brainybay/assistant/pkg/provider/records"
	"github.com/brainybay/assistant/pkg/provider/textgen"
)

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single entry in the session transcript.
//
// Messages are immutable once their turn completes. During an active voice
// turn the manager appends transcript fragments to the newest message of the
// matching role, provided that message is still the open turn; otherwise a
// new message is started.
type ChatMessage struct {
	// ID is unique within the session.
	ID string

	// Role is the author.
	Role Role

	// Text is the message content. Grows incrementally during voice
	// transcription.
	Text string

	// Timestamp is the creation time.
	Timestamp time.Time

	// Attachments carries structured tool payloads rendered alongside the
	// text. Nil for plain messages.
	Attachments *Attachments

	// Citations holds grounding references from the generation response.
	Citations []textgen.Citation
}

// Attachments is the structured data fetched for a tool-calling turn.
type Attachments struct {
	// Assignments is the upcoming coursework list, when requested.
	Assignments []records.Assignment

	// Grades maps subject name to a display grade, when requested.
	Grades map[string]string

	// Recommendations is the personalised study list, when requested.
	Recommendations []records.Recommendation
}

// empty reports whether no tool payload was attached.
func (a *Attachments) empty() bool {
	return a == nil || (len(a.Assignments) == 0 && len(a.Grades) == 0 && len(a.Recommendations) == 0)
}
