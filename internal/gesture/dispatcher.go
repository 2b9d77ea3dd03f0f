// internal/gesture/dispatcher.go
//
// Maps gesture text received from the controller to engine operations.
//
// Matching rules:
//   - Tokens are matched by substring, not equality, so upstream label variants
//     ("左滑", "left-swipe-variant-xyz-左滑", JSON envelopes) still resolve.
//   - Actions are checked in a fixed order (left, right, rotate, drop) and the
//     first match wins. A payload that names two actions resolves to the earlier.
//   - Unknown text, a missing game, or a finished game is ignored.
package gesture

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Action is the engine operation a gesture resolved to.
type Action string

const (
	ActionNone   Action = "none"
	ActionLeft   Action = "left"
	ActionRight  Action = "right"
	ActionRotate Action = "rotate"
	ActionDrop   Action = "drop"
)

// Engine is the subset of the game engine a dispatcher drives.
type Engine interface {
	MoveLeft() bool
	MoveRight() bool
	MoveDown() bool
	Rotate() bool
	IsGameOver() bool
}

// Vocabulary lists the substrings that select each action.
type Vocabulary struct {
	Left   []string
	Right  []string
	Rotate []string
	Drop   []string
}

// DefaultVocabulary holds the labels emitted by the wrist gesture recognizer:
// left/right tilt or swipe, wrist rotation and tap.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Left:   []string{"左摆", "左滑"},
		Right:  []string{"右摆", "右滑"},
		Rotate: []string{"转腕"},
		Drop:   []string{"单击"},
	}
}

// WithEnglishAliases returns a copy of v that also accepts "left", "right",
// "rotate" and "tap". Substring matching makes these loose ("copyright" moves
// right), so they are opt-in.
func (v Vocabulary) WithEnglishAliases() Vocabulary {
	return Vocabulary{
		Left:   append(append([]string(nil), v.Left...), "left"),
		Right:  append(append([]string(nil), v.Right...), "right"),
		Rotate: append(append([]string(nil), v.Rotate...), "rotate"),
		Drop:   append(append([]string(nil), v.Drop...), "tap"),
	}
}

// Match returns the action selected by text, or ActionNone.
func (v Vocabulary) Match(text string) Action {
	switch {
	case containsAny(text, v.Left):
		return ActionLeft
	case containsAny(text, v.Right):
		return ActionRight
	case containsAny(text, v.Rotate):
		return ActionRotate
	case containsAny(text, v.Drop):
		return ActionDrop
	}
	return ActionNone
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Result reports what a dispatch did. Changed tells the renderer to redraw.
type Result struct {
	Action  Action `json:"action"`
	Changed bool   `json:"changed"`
}

// Dispatcher applies gestures to an engine.
type Dispatcher struct {
	vocab Vocabulary
}

// NewDispatcher constructs a dispatcher over vocab.
func NewDispatcher(vocab Vocabulary) *Dispatcher {
	return &Dispatcher{vocab: vocab}
}

// Dispatch resolves text and applies it to e. A nil engine means no game is
// running; both that and a finished game leave e untouched.
//
// Rotation always reports Changed, since an attempted rotation is feedback on
// its own. A drop repeats MoveDown until it fails and reports Changed only if at
// least one step succeeded before the piece locked.
func (d *Dispatcher) Dispatch(e Engine, text string) Result {
	if e == nil || e.IsGameOver() {
		log.Debug().Str("gesture", text).Msg("no active game, gesture ignored")
		return Result{Action: ActionNone}
	}

	action := d.vocab.Match(text)
	res := Result{Action: action}
	switch action {
	case ActionLeft:
		res.Changed = e.MoveLeft()
	case ActionRight:
		res.Changed = e.MoveRight()
	case ActionRotate:
		e.Rotate()
		res.Changed = true
	case ActionDrop:
		for e.MoveDown() {
			res.Changed = true
		}
	default:
		log.Debug().Str("gesture", text).Msg("unrecognized gesture")
	}
	return res
}
