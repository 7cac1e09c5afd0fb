package dialog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medprev-labs/medy-bot/internal/observability/metrics"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

const defaultErrorPhrase = "O bot encontrou um erro."

// Engine drives dialog turns against persisted conversation state.
//
// One inbound message is one turn: the engine loads the conversation state,
// resumes the active dialog (or starts the root dialog), drains cascading
// child pushes and pops until the stack suspends on a prompt or empties,
// persists the state, and returns the accumulated outbound activities.
// Activities are returned, not sent; delivery belongs to the caller so that a
// failed save leaves no user-visible side effects.
type Engine struct {
	registry *Registry
	store    Store
	profiles ProfileStore
	rootID   string
	maxDepth int
	errText  string
	logger   *logging.Logger
	metrics  *metrics.DialogMetrics
	seq      *sequencer

	locks sync.Map // conversationID -> *sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithMaxDepth overrides the dialog stack depth cap.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithMetrics attaches dialog metrics.
func WithMetrics(m *metrics.DialogMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithErrorPhrase overrides the single user-facing message emitted when a
// step fails unexpectedly.
func WithErrorPhrase(text string) Option {
	return func(e *Engine) {
		if text != "" {
			e.errText = text
		}
	}
}

// NewEngine wires the dialog engine. rootID names the dialog pushed when a
// conversation has no active dialog.
func NewEngine(registry *Registry, store Store, profiles ProfileStore, rootID string, logger *logging.Logger, opts ...Option) *Engine {
	if registry == nil {
		panic("dialog: registry cannot be nil")
	}
	if store == nil {
		panic("dialog: store cannot be nil")
	}
	if rootID == "" {
		panic("dialog: root dialog id cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		registry: registry,
		store:    store,
		profiles: profiles,
		rootID:   rootID,
		maxDepth: DefaultMaxDepth,
		errText:  defaultErrorPhrase,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.seq = &sequencer{registry: registry, logger: logger, metrics: e.metrics}
	return e
}

// HandleTurn processes one inbound message and returns the outbound
// activities to deliver, in emission order. Turns for the same conversation
// are serialized; turns for different conversations run independently.
func (e *Engine) HandleTurn(ctx context.Context, input TurnInput) ([]OutboundActivity, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.ActivityType != "" && input.ActivityType != ActivityTypeMessage {
		return nil, nil
	}

	mu := e.lockFor(input.ConversationID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()

	state, err := e.store.Load(ctx, input.ConversationID)
	if err != nil {
		e.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: load: %v", ErrStoreUnavailable, err)
	}
	if err := state.Validate(); err != nil {
		e.logger.Warn("discarding incompatible conversation state",
			"conversation_id", input.ConversationID,
			"error", err,
		)
		state = NewConversationState(input.ConversationID)
	}

	t := &turn{input: input, profile: e.loadProfile(ctx, input)}

	if err := e.runTurn(ctx, state, t); err != nil {
		e.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return nil, err
	}

	state.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, state); err != nil {
		e.metrics.ObserveTurn("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: save: %v", ErrStoreUnavailable, err)
	}
	e.saveProfile(ctx, t.profile)

	result := "suspended"
	if state.IsEmpty() {
		result = "completed"
	}
	e.metrics.ObserveTurn(result, time.Since(start).Seconds())

	return t.activities, nil
}

// runTurn resumes the top frame with the inbound message, then drains
// cascading pops and pushes until the stack suspends or empties.
func (e *Engine) runTurn(ctx context.Context, state *ConversationState, t *turn) error {
	if state.IsEmpty() {
		if err := state.Push(e.rootID, nil, e.maxDepth); err != nil {
			return err
		}
	}

	feed := StepResult{}
	if top := state.Top(); top.Status == FrameAwaitingReply {
		result, ok := validateReply(top.Prompt, t.input)
		if !ok {
			// Reply did not qualify: re-issue the same prompt, keep the index.
			if top.PromptRepeat != nil {
				t.emit(*top.PromptRepeat)
			}
			e.metrics.ObserveReprompt(top.DialogID, string(top.Prompt))
			return nil
		}
		top.Status = FrameRunning
		top.Prompt = ""
		top.PromptRepeat = nil
		top.StepIndex++
		e.metrics.ObserveStepAdvance(top.DialogID)
		feed = result
	}

	for !state.IsEmpty() {
		frame := state.Top()
		outcome := e.seq.runFrame(ctx, t, frame, feed)

		switch outcome.kind {
		case outcomeSuspended:
			return nil

		case outcomeChild:
			frame.Status = FrameAwaitingChild
			if err := state.Push(outcome.child, outcome.childOpts, e.maxDepth); err != nil {
				return err
			}
			feed = StepResult{}

		case outcomeCompleted:
			state.Pop()
			feed = outcome.result
			e.resumeParent(state)

		case outcomeFailed:
			e.logger.Error("dialog step failed",
				"conversation_id", t.input.ConversationID,
				"dialog_id", frame.DialogID,
				"step_index", frame.StepIndex,
				"error", outcome.err,
			)
			e.metrics.ObserveExternalFailure("step")
			if !t.errored {
				t.emit(Text(e.errText))
				t.errored = true
			}
			state.Pop()
			feed = StepResult{}
			e.resumeParent(state)
		}
	}
	return nil
}

// resumeParent advances the new top frame past the step that was waiting on
// the popped child.
func (e *Engine) resumeParent(state *ConversationState) {
	parent := state.Top()
	if parent == nil {
		return
	}
	parent.Status = FrameRunning
	parent.StepIndex++
	e.metrics.ObserveStepAdvance(parent.DialogID)
}

func (e *Engine) lockFor(conversationID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// loadProfile fetches (or lazily creates) the user profile. Profile storage
// is best effort: a failure never blocks the turn.
func (e *Engine) loadProfile(ctx context.Context, input TurnInput) *UserProfile {
	profile := &UserProfile{UserID: input.UserID}
	if e.profiles != nil {
		stored, err := e.profiles.LoadProfile(ctx, input.UserID)
		if err != nil {
			e.logger.Warn("failed to load user profile", "user_id", input.UserID, "error", err)
		} else if stored != nil {
			profile = stored
		}
	}
	if profile.Name == "" && input.UserName != "" {
		profile.Name = input.UserName
	}
	return profile
}

func (e *Engine) saveProfile(ctx context.Context, profile *UserProfile) {
	if e.profiles == nil || profile == nil {
		return
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := e.profiles.SaveProfile(ctx, profile); err != nil {
		e.logger.Warn("failed to save user profile", "user_id", profile.UserID, "error", err)
	}
}
