package export

import "fmt"

// BufferState is the single finite-state value tracking one preview
// surface through its edit lifecycle.
type BufferState string

const (
	// BufferClean: buffer mirrors the canonical snapshot render.
	BufferClean BufferState = "CLEAN"
	// BufferEditing: free-text edits diverge from the canonical render.
	BufferEditing BufferState = "EDITING"
	// BufferCommitted: edits were accepted; the buffer text is now what
	// export operations emit.
	BufferCommitted BufferState = "COMMITTED"
)

// PreviewBuffer holds the editable copy of a rendered preview. The
// canonical snapshot is never touched; Commit promotes the edited text,
// Discard drops it.
type PreviewBuffer struct {
	canonical string
	edited    string
	state     BufferState
}

// NewPreviewBuffer seeds a clean buffer from the canonical render.
func NewPreviewBuffer(canonical string) *PreviewBuffer {
	return &PreviewBuffer{
		canonical: canonical,
		edited:    canonical,
		state:     BufferClean,
	}
}

// State returns the current buffer state.
func (pb *PreviewBuffer) State() BufferState {
	return pb.state
}

// Text returns what the surface should display.
func (pb *PreviewBuffer) Text() string {
	return pb.edited
}

// Edit stages new text. Editing a committed buffer reopens it.
func (pb *PreviewBuffer) Edit(text string) {
	pb.edited = text
	if text == pb.canonical {
		pb.state = BufferClean
		return
	}
	pb.state = BufferEditing
}

// Commit accepts staged edits. Committing a clean buffer is a no-op error
// so surfaces cannot claim an edit happened when none did.
func (pb *PreviewBuffer) Commit() error {
	if pb.state != BufferEditing {
		return fmt.Errorf("nothing to commit in state %s", pb.state)
	}
	pb.canonical = pb.edited
	pb.state = BufferCommitted
	return nil
}

// Discard drops staged edits and restores the canonical text.
func (pb *PreviewBuffer) Discard() {
	pb.edited = pb.canonical
	pb.state = BufferClean
}
