package service

import "opsdash/internal/domain"

// ─────────────────────────────────────────────────────────────
// Drag-reorder engine
// ─────────────────────────────────────────────────────────────

// MoveWidget removes the widget at source and re-inserts it at target in
// the remaining sequence, then renumbers Order as the 0-based position.
// Both indices are clamped into range. It returns moved=false, and the
// input slice itself, when the (clamped) indices are equal.
// The input is never modified.
func MoveWidget(widgets []domain.WidgetDescriptor, source, target int) ([]domain.WidgetDescriptor, bool) {
	n := len(widgets)
	if n == 0 {
		return widgets, false
	}
	source = clampIndex(source, n)
	target = clampIndex(target, n)
	if source == target {
		return widgets, false
	}

	out := make([]domain.WidgetDescriptor, 0, n)
	moved := widgets[source]
	for i, w := range widgets {
		if i != source {
			out = append(out, w)
		}
	}
	out = append(out[:target], append([]domain.WidgetDescriptor{moved}, out[target:]...)...)
	renumber(out)
	return out, true
}

// IndexOf returns the position of widget id, or -1.
func IndexOf(widgets []domain.WidgetDescriptor, id string) int {
	for i, w := range widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// renumber makes Order dense and equal to the slice position.
func renumber(widgets []domain.WidgetDescriptor) {
	for i := range widgets {
		widgets[i].Order = i
	}
}
