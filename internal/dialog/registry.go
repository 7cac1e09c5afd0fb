package dialog

import (
	"context"
	"fmt"
	"sync"
)

// PromptKind is the closed set of reply shapes a step may wait for. The
// sequencer validates inbound messages with an exhaustive switch over these
// tags; there is no dynamic dispatch.
type PromptKind string

const (
	// PromptText accepts any non-empty reply.
	PromptText PromptKind = "text"
	// PromptLocation accepts free text or a structured location payload.
	PromptLocation PromptKind = "location"
	// PromptImage accepts a message carrying at least one image attachment.
	PromptImage PromptKind = "image"
	// PromptConfirm accepts a yes/no reply.
	PromptConfirm PromptKind = "confirm"
)

// StepContext is handed to a waterfall step when it runs.
type StepContext struct {
	// Input is the inbound message that drove this turn.
	Input TurnInput
	// Result carries the validated value from the previous prompt, or the
	// completed child dialog's result.
	Result StepResult
	// Options is the frame's metadata bag, persisted across turns.
	Options map[string]string
	// Profile is the durable user profile; mutations are persisted after the
	// turn on a best-effort basis.
	Profile *UserProfile

	sent []OutboundActivity
}

// Send queues an outbound activity for delivery after the turn commits.
func (sc *StepContext) Send(act OutboundActivity) {
	sc.sent = append(sc.sent, act)
}

// SendText queues a plain text activity.
func (sc *StepContext) SendText(text string) {
	sc.Send(Text(text))
}

type signalKind int

const (
	signalPrompt signalKind = iota
	signalNext
	signalEnd
	signalBegin
)

// StepSignal tells the sequencer what to do after a step ran.
type StepSignal struct {
	kind      signalKind
	prompt    PromptKind
	activity  OutboundActivity
	result    StepResult
	child     string
	childOpts map[string]string
}

// Prompt issues the activity and suspends the dialog until a reply passes the
// kind's validation predicate.
func Prompt(kind PromptKind, act OutboundActivity) StepSignal {
	return StepSignal{kind: signalPrompt, prompt: kind, activity: act}
}

// Next continues with the following step in the same turn, feeding it result.
func Next(result StepResult) StepSignal {
	return StepSignal{kind: signalNext, result: result}
}

// End completes the dialog immediately, returning result to the parent frame.
func End(result StepResult) StepSignal {
	return StepSignal{kind: signalEnd, result: result}
}

// Begin suspends the dialog and starts a child dialog; the current dialog
// resumes at its next step with the child's result when the child completes.
func Begin(dialogID string, options map[string]string) StepSignal {
	return StepSignal{kind: signalBegin, child: dialogID, childOpts: options}
}

// StepFunc runs one waterfall step.
type StepFunc func(ctx context.Context, sc *StepContext) (StepSignal, error)

// Dialog is an immutable, process-wide waterfall definition.
type Dialog struct {
	ID    string
	Steps []StepFunc
}

// Registry holds dialog definitions, registered once at startup.
type Registry struct {
	mu      sync.RWMutex
	dialogs map[string]*Dialog
}

func NewRegistry() *Registry {
	return &Registry{dialogs: make(map[string]*Dialog)}
}

// Register adds a dialog definition. Duplicate ids and empty waterfalls are
// rejected.
func (r *Registry) Register(d *Dialog) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("dialog: cannot register dialog without an id")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("dialog: dialog %q has no steps", d.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.dialogs[d.ID]; exists {
		return fmt.Errorf("dialog: dialog %q already registered", d.ID)
	}
	r.dialogs[d.ID] = d
	return nil
}

// Get looks up a dialog definition by id.
func (r *Registry) Get(id string) (*Dialog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialogs[id]
	return d, ok
}
