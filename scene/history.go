package scene

import (
	"github.com/sirupsen/logrus"
)

// DefaultHistoryDepth bounds each history stack; the oldest entry is evicted
// on overflow.
const DefaultHistoryDepth = 20

// History holds bounded undo/redo stacks of full-state scene snapshots.
// Snapshots are opaque serialized payloads (see core.Scene.Snapshot); full
// state keeps restore trivially correct at this stack depth.
type History struct {
	undo  [][]byte
	redo  [][]byte
	depth int
}

// NewHistory returns a history bounded to depth entries per stack; depth <= 0
// selects DefaultHistoryDepth.
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

// Record pushes the pre-mutation snapshot onto the undo stack and clears the
// redo stack. Every committed editor action records exactly once.
func (h *History) Record(pre []byte) {
	h.undo = push(h.undo, pre, h.depth)
	h.redo = nil
}

// Undo exchanges the current snapshot for the most recent undo entry. The
// second return is false when there is nothing to undo.
func (h *History) Undo(current []byte) ([]byte, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	top := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = push(h.redo, current, h.depth)
	logrus.WithField("undo_depth", len(h.undo)).Debug("Undo applied")
	return top, true
}

// Redo exchanges the current snapshot for the most recent redo entry.
func (h *History) Redo(current []byte) ([]byte, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	top := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = push(h.undo, current, h.depth)
	logrus.WithField("redo_depth", len(h.redo)).Debug("Redo applied")
	return top, true
}

// CanUndo reports whether an undo entry is available.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether a redo entry is available.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func push(stack [][]byte, entry []byte, depth int) [][]byte {
	stack = append(stack, entry)
	if len(stack) > depth {
		stack = stack[1:]
	}
	return stack
}
