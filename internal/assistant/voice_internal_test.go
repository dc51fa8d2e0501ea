package assistant

import (
	"testing"
	"time"

	"github.com/brainybay/assistant/pkg/audio"
	audiomock "github.com/brainybay/assistant/pkg/audio/mock"
	voicemock "github.com/brainybay/assistant/pkg/provider/voice/mock"
)

func TestInterrupt_NoOpAfterTeardown(t *testing.T) {
	t.Parallel()

	out := audiomock.NewOutput(24000)
	vs := &voiceSession{
		session: voicemock.NewSession(),
		capture: &audiomock.Capture{FramesCh: make(chan audio.Frame)},
		output:  out,
		done:    make(chan struct{}),
		sources: make(map[audio.Source]struct{}),
		cursor:  5 * time.Millisecond,
	}

	vs.teardown()
	out.Advance(77 * time.Millisecond)

	// A barge-in event can race teardown in the event loop. Once the
	// session is down the output may be closed, so the late interrupt must
	// not consult its clock or move the cursor.
	vs.interrupt()

	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.cursor != 5*time.Millisecond {
		t.Errorf("cursor = %v after late interrupt, want 5ms untouched", vs.cursor)
	}
}
