package player

import "sync"

// Handle arbitrates ownership of the one audible element. Acquiring it
// pauses whichever element held it before, so the narration session and
// one-shot clips never sound at the same time.
type Handle struct {
	mu     sync.Mutex
	active AudioElement
}

// Acquire makes el the active element, pausing the previous holder.
func (h *Handle) Acquire(el AudioElement) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active != nil && h.active != el {
		h.active.Pause()
	}
	h.active = el
}

// Release gives up ownership. A stale release from an element that no
// longer holds the handle is a no-op.
func (h *Handle) Release(el AudioElement) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == el {
		h.active = nil
	}
}

// PlayClip plays a short one-shot element through the handle, preempting
// whatever was playing. The returned func stops the clip and releases
// ownership; the caller runs it when the clip ends.
func (h *Handle) PlayClip(el AudioElement) (func(), error) {
	h.Acquire(el)
	if err := el.Play(); err != nil {
		h.Release(el)
		return nil, err
	}
	return func() {
		el.Pause()
		h.Release(el)
	}, nil
}
