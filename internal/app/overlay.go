package app

import (
	"stagehand/internal/events"
	"stagehand/internal/logging"
	"stagehand/internal/settings"
	"stagehand/internal/uitree"
)

// WidgetKind classifies overlay nodes.
type WidgetKind int

const (
	WidgetPanel WidgetKind = iota
	WidgetTitle
	WidgetRow
	WidgetLabel
	WidgetValue
	WidgetHint
)

// Widget is one node of the settings overlay.
type Widget struct {
	Kind WidgetKind
	Key  settings.Key
	Text string
}

// Row is a rendered settings line.
type Row struct {
	Key   settings.Key
	Label string
	Value string
}

// Overlay is the settings surface. It exists only while the phase offers
// one; each phase change tears the whole subtree down through its root.
type Overlay struct {
	tree    *uitree.Tree[Widget]
	root    uitree.NodeID
	surface settings.Surface
	values  map[settings.Key]uitree.NodeID
}

// NewOverlay returns a hidden overlay.
func NewOverlay() *Overlay {
	return &Overlay{tree: uitree.New[Widget]()}
}

// Surface returns where the overlay is currently shown.
func (o *Overlay) Surface() settings.Surface { return o.surface }

// Tree exposes the node arena for rendering.
func (o *Overlay) Tree() *uitree.Tree[Widget] { return o.tree }

// Root returns the panel node, zero while hidden.
func (o *Overlay) Root() uitree.NodeID { return o.root }

// Rebuild drops the current subtree and builds a new one for surface.
func (o *Overlay) Rebuild(surface settings.Surface, snap settings.Snapshot) {
	if !o.root.IsZero() {
		n, err := o.tree.Remove(o.root)
		if err != nil {
			logging.UIDebug("overlay root already gone: %v", err)
		} else {
			logging.UIDebug("overlay torn down (%d nodes)", n)
		}
	}
	o.root = uitree.NodeID{}
	o.values = nil
	o.surface = surface
	if !surface.Editable() {
		return
	}

	title := "Settings"
	if surface == settings.SurfacePauseOverlay {
		title = "Paused - Settings"
	}
	o.root = o.tree.AddRoot(Widget{Kind: WidgetPanel})
	o.add(o.root, Widget{Kind: WidgetTitle, Text: title})
	o.values = make(map[settings.Key]uitree.NodeID, len(settings.Keys))
	for _, k := range settings.Keys {
		row := o.add(o.root, Widget{Kind: WidgetRow, Key: k})
		o.add(row, Widget{Kind: WidgetLabel, Key: k, Text: k.Label()})
		o.values[k] = o.add(row, Widget{Kind: WidgetValue, Key: k, Text: snap.Format(k)})
	}
	o.add(o.root, Widget{Kind: WidgetHint, Text: "↑/↓ select  ←/→ adjust  r reset"})
}

func (o *Overlay) add(parent uitree.NodeID, w Widget) uitree.NodeID {
	id, err := o.tree.Add(parent, w)
	if err != nil {
		// parent was created in this build; a failure is a bug in Rebuild.
		logging.Get(logging.CategoryUI).Error("overlay add under %s: %v", parent, err)
	}
	return id
}

// Observe refreshes a value node after its setting was applied.
func (o *Overlay) Observe(e events.Event, snap settings.Snapshot) {
	applied, ok := e.(events.SettingsApplied)
	if !ok || o.values == nil {
		return
	}
	key, err := settings.ParseKey(applied.Key)
	if err != nil {
		return
	}
	if id, ok := o.values[key]; ok {
		_ = o.tree.Set(id, Widget{Kind: WidgetValue, Key: key, Text: snap.Format(key)})
	}
}

// Title returns the panel title, empty while hidden.
func (o *Overlay) Title() string {
	for _, id := range o.tree.Children(o.root) {
		if w, ok := o.tree.Get(id); ok && w.Kind == WidgetTitle {
			return w.Text
		}
	}
	return ""
}

// Rows flattens the overlay for rendering.
func (o *Overlay) Rows() []Row {
	if o.root.IsZero() {
		return nil
	}
	var rows []Row
	for _, id := range o.tree.Children(o.root) {
		w, _ := o.tree.Get(id)
		if w.Kind != WidgetRow {
			continue
		}
		row := Row{Key: w.Key}
		for _, c := range o.tree.Children(id) {
			cw, _ := o.tree.Get(c)
			switch cw.Kind {
			case WidgetLabel:
				row.Label = cw.Text
			case WidgetValue:
				row.Value = cw.Text
			}
		}
		rows = append(rows, row)
	}
	return rows
}
