// Package interact tracks per-marker interaction state for the map:
// which marker is hovered (popup) and which is activated (detail panel,
// footprint). The popup and the footprint layer are one-at-a-time
// resources, enforced here by replace-before-install transitions.
package interact

// Phase is a marker's interaction state.
type Phase int

const (
	Idle Phase = iota
	Hovered
	Activated
)

// Table holds interaction state keyed by coordinate key. At most one
// marker is hovered and at most one activated at any time.
type Table struct {
	hovered   string
	activated string
}

func NewTable() *Table {
	return &Table{}
}

// Phase reports the state of one marker.
func (t *Table) Phase(key string) Phase {
	switch key {
	case t.activated:
		if key != "" {
			return Activated
		}
	case t.hovered:
		if key != "" {
			return Hovered
		}
	}
	return Idle
}

// HoverEnter replaces any existing popup with this marker's. Re-entering
// the same marker is a no-op, so popups never stack.
func (t *Table) HoverEnter(key string) {
	t.hovered = key
}

// HoverLeave removes the popup immediately.
func (t *Table) HoverLeave() {
	t.hovered = ""
}

// Hovered returns the marker currently showing a popup, "" if none.
func (t *Table) Hovered() string {
	return t.hovered
}

// Activate clears the popup and makes this marker the activated one,
// superseding any previous activation.
func (t *Table) Activate(key string) {
	t.hovered = ""
	t.activated = key
}

// Deactivate clears the activation (map background clicked or detail
// panel dismissed).
func (t *Table) Deactivate() {
	t.activated = ""
}

// Activated returns the activated marker's key, "" if none.
func (t *Table) Activated() string {
	return t.activated
}

// Accepts reports whether a footprint result computed for key should be
// installed. Late results for markers other than the currently activated
// one are stale and must be discarded.
func (t *Table) Accepts(key string) bool {
	return key != "" && key == t.activated
}
