package dialog

import (
	"context"
	"strings"

	"github.com/medprev-labs/medy-bot/internal/observability/metrics"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// sequencer executes one dialog's ordered step list against a stack frame.
// It advances at most one prompt per inbound message; non-prompting steps
// cascade within the same turn.
type sequencer struct {
	registry *Registry
	logger   *logging.Logger
	metrics  *metrics.DialogMetrics
}

type outcomeKind int

const (
	outcomeSuspended outcomeKind = iota
	outcomeCompleted
	outcomeChild
	outcomeFailed
)

type frameOutcome struct {
	kind      outcomeKind
	result    StepResult
	child     string
	childOpts map[string]string
	err       error
}

// turn accumulates the outbound activities of one inbound message.
type turn struct {
	input      TurnInput
	profile    *UserProfile
	activities []OutboundActivity
	errored    bool
}

func (t *turn) emit(act OutboundActivity) {
	t.activities = append(t.activities, act)
}

// runFrame executes steps starting at the frame's current index until the
// frame suspends, completes, fails, or begins a child dialog.
func (s *sequencer) runFrame(ctx context.Context, t *turn, frame *Frame, feed StepResult) frameOutcome {
	dlg, ok := s.registry.Get(frame.DialogID)
	if !ok {
		return frameOutcome{kind: outcomeFailed, err: ErrUnknownDialog}
	}

	for {
		if frame.StepIndex >= len(dlg.Steps) {
			// Waterfall exhausted; the last result flows to the parent.
			return frameOutcome{kind: outcomeCompleted, result: feed}
		}

		sc := &StepContext{
			Input:   t.input,
			Result:  feed,
			Options: frame.ensureOptions(),
			Profile: t.profile,
		}
		sig, err := dlg.Steps[frame.StepIndex](ctx, sc)
		t.activities = append(t.activities, sc.sent...)
		if err != nil {
			return frameOutcome{kind: outcomeFailed, err: err}
		}

		switch sig.kind {
		case signalPrompt:
			t.emit(sig.activity)
			frame.Status = FrameAwaitingReply
			frame.Prompt = sig.prompt
			repeat := sig.activity
			frame.PromptRepeat = &repeat
			return frameOutcome{kind: outcomeSuspended}
		case signalNext:
			frame.StepIndex++
			feed = sig.result
			s.metrics.ObserveStepAdvance(frame.DialogID)
		case signalEnd:
			return frameOutcome{kind: outcomeCompleted, result: sig.result}
		case signalBegin:
			return frameOutcome{kind: outcomeChild, child: sig.child, childOpts: sig.childOpts}
		}
	}
}

// validateReply checks an inbound message against the expected-input predicate
// of the prompt that suspended the frame.
func validateReply(kind PromptKind, input TurnInput) (StepResult, bool) {
	switch kind {
	case PromptText, PromptLocation:
		text := strings.TrimSpace(input.Text)
		if text == "" && len(input.Attachments) == 0 {
			return StepResult{}, false
		}
		return StepResult{Text: text}, true
	case PromptImage:
		if att, ok := input.FirstImage(); ok {
			img := att
			return StepResult{Attachment: &img}, true
		}
		return StepResult{}, false
	case PromptConfirm:
		if confirmed, ok := parseConfirm(input.Text); ok {
			return StepResult{Confirmed: confirmed, Text: strings.TrimSpace(input.Text)}, true
		}
		return StepResult{}, false
	default:
		return StepResult{}, false
	}
}

// parseConfirm interprets a yes/no reply, accepting the pt-br phrasing the
// channel renders plus the raw choice values.
func parseConfirm(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "sim", "s", "yes", "y", "true", "confirmar", "1":
		return true, true
	case "não", "nao", "n", "no", "false", "2":
		return false, true
	}
	return false, false
}
