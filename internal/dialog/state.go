package dialog

import (
	"fmt"
	"time"
)

// StateVersion is bumped whenever the persisted shape of ConversationState
// changes incompatibly.
const StateVersion = 1

// DefaultMaxDepth bounds dialog nesting when no override is configured.
const DefaultMaxDepth = 8

// FrameStatus tracks where a stack frame is in its waterfall.
type FrameStatus string

const (
	// FrameRunning means the frame's current step may execute.
	FrameRunning FrameStatus = "running"
	// FrameAwaitingReply means a prompt was issued and the frame is suspended
	// until a qualifying inbound message arrives.
	FrameAwaitingReply FrameStatus = "awaiting_reply"
	// FrameAwaitingChild means the frame began a child dialog and resumes at
	// its next step when the child completes.
	FrameAwaitingChild FrameStatus = "awaiting_child"
)

// Frame is one dialog invocation on the stack.
type Frame struct {
	DialogID  string            `json:"dialog_id"`
	StepIndex int               `json:"step_index"`
	Status    FrameStatus       `json:"status"`
	Prompt    PromptKind        `json:"prompt,omitempty"`
	// PromptRepeat is the activity re-issued when a reply fails validation.
	PromptRepeat *OutboundActivity `json:"prompt_repeat,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
}

func (f *Frame) ensureOptions() map[string]string {
	if f.Options == nil {
		f.Options = make(map[string]string)
	}
	return f.Options
}

// ConversationState is the persisted dialog state for one conversation.
type ConversationState struct {
	Version        int       `json:"version"`
	ConversationID string    `json:"conversation_id"`
	Stack          []Frame   `json:"stack"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewConversationState returns a fresh state with an empty dialog stack.
func NewConversationState(conversationID string) *ConversationState {
	return &ConversationState{
		Version:        StateVersion,
		ConversationID: conversationID,
	}
}

// Validate rejects states persisted by an incompatible schema version.
func (s *ConversationState) Validate() error {
	if s.Version != StateVersion {
		return fmt.Errorf("dialog: unsupported state version %d (want %d)", s.Version, StateVersion)
	}
	return nil
}

// IsEmpty reports whether no dialog is running.
func (s *ConversationState) IsEmpty() bool {
	return len(s.Stack) == 0
}

// Top returns the innermost frame, or nil when the stack is empty.
func (s *ConversationState) Top() *Frame {
	if len(s.Stack) == 0 {
		return nil
	}
	return &s.Stack[len(s.Stack)-1]
}

// Push begins a new dialog. maxDepth guards against runaway nesting.
func (s *ConversationState) Push(dialogID string, options map[string]string, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if len(s.Stack) >= maxDepth {
		return fmt.Errorf("%w: depth %d", ErrDialogDepthExceeded, len(s.Stack))
	}
	s.Stack = append(s.Stack, Frame{
		DialogID: dialogID,
		Status:   FrameRunning,
		Options:  options,
	})
	return nil
}

// Pop completes the top dialog and returns its frame.
func (s *ConversationState) Pop() (Frame, bool) {
	if len(s.Stack) == 0 {
		return Frame{}, false
	}
	frame := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return frame, true
}

// UserProfile holds durable per-user preferences, independent of any
// conversation.
type UserProfile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Greeted   bool      `json:"greeted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
