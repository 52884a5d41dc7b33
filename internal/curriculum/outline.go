// Package curriculum loads the course outline: modules, their ordered
// subtopics and the navigation derived from them.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownItem is returned when a (module, item) pair is not in the outline.
var ErrUnknownItem = errors.New("unknown course item")

//go:embed outline.yaml
var defaultOutline []byte

// Outline is an immutable, validated course outline.
type Outline struct {
	title string
	items []MenuItem
}

// Load reads the outline at path. An empty path loads the built-in outline.
func Load(path string) (*Outline, error) {
	data := defaultOutline
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading course outline: %w", err)
		}
	}

	o, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading course outline %q: %w", path, err)
	}
	slog.Info("course outline loaded", "items", len(o.items), "modules", len(o.CourseModules()))
	return o, nil
}

// Default returns the built-in outline.
func Default() *Outline {
	o, err := Parse(defaultOutline)
	if err != nil {
		panic(fmt.Sprintf("built-in course outline is invalid: %v", err))
	}
	return o
}

// Parse decodes and validates an outline YAML document.
func Parse(data []byte) (*Outline, error) {
	var f outlineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	o := &Outline{title: f.Title, items: f.Items}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Outline) validate() error {
	if len(o.items) == 0 {
		return fmt.Errorf("outline has no items")
	}

	ids := make(map[string]bool, len(o.items))
	modules := make(map[string]MenuItem)
	moduleKeys := make(map[string]string)
	for _, it := range o.items {
		if it.ID == "" || it.ModuleID == "" {
			return fmt.Errorf("item %q: id and module_id are required", it.ID)
		}
		if ids[it.ID] {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		ids[it.ID] = true

		switch it.Type {
		case TypeModule:
			if it.ParentID != "" {
				return fmt.Errorf("module %q must not have a parent", it.ID)
			}
			if other, ok := moduleKeys[it.ModuleID]; ok {
				return fmt.Errorf("modules %q and %q share module_id %q", other, it.ID, it.ModuleID)
			}
			moduleKeys[it.ModuleID] = it.ID
			modules[it.ID] = it
		case TypeSubtopic:
		default:
			return fmt.Errorf("item %q has unknown type %q", it.ID, it.Type)
		}
	}

	for _, it := range o.items {
		if it.Type != TypeSubtopic {
			continue
		}
		parent, ok := modules[it.ParentID]
		if !ok {
			return fmt.Errorf("subtopic %q: parent %q is not a module", it.ID, it.ParentID)
		}
		if parent.ModuleID != it.ModuleID {
			return fmt.Errorf("subtopic %q: module_id %q differs from parent's %q", it.ID, it.ModuleID, parent.ModuleID)
		}
	}
	return nil
}

// Title returns the course title.
func (o *Outline) Title() string { return o.title }

// Items returns every outline entry in declaration order.
func (o *Outline) Items() []MenuItem {
	return append([]MenuItem(nil), o.items...)
}

// MenuFor returns the entries visible to role. Subtopics of hidden
// modules are hidden too.
func (o *Outline) MenuFor(role string) []MenuItem {
	hidden := map[string]bool{}
	out := make([]MenuItem, 0, len(o.items))
	for _, it := range o.items {
		if !it.AllowedFor(role) || hidden[it.ParentID] {
			hidden[it.ID] = true
			continue
		}
		out = append(out, it)
	}
	return out
}

// Module returns the module whose module_id is moduleID.
func (o *Outline) Module(moduleID string) (MenuItem, bool) {
	for _, it := range o.items {
		if it.Type == TypeModule && it.ModuleID == moduleID {
			return it, true
		}
	}
	return MenuItem{}, false
}

// Subtopics returns the subtopics of moduleID in outline order.
func (o *Outline) Subtopics(moduleID string) []MenuItem {
	var out []MenuItem
	for _, it := range o.items {
		if it.Type == TypeSubtopic && it.ModuleID == moduleID {
			out = append(out, it)
		}
	}
	return out
}

// CourseModules returns the modules that have at least one subtopic.
func (o *Outline) CourseModules() []MenuItem {
	var out []MenuItem
	for _, it := range o.items {
		if it.Type == TypeModule && len(o.Subtopics(it.ModuleID)) > 0 {
			out = append(out, it)
		}
	}
	return out
}

// Lookup returns the subtopic itemID of moduleID.
func (o *Outline) Lookup(moduleID, itemID string) (MenuItem, error) {
	for _, it := range o.items {
		if it.Type == TypeSubtopic && it.ModuleID == moduleID && it.ID == itemID {
			return it, nil
		}
	}
	return MenuItem{}, fmt.Errorf("%w: module %s item %s", ErrUnknownItem, moduleID, itemID)
}

// Accessible reports whether role may open the subtopic, taking the
// parent module's whitelist into account.
func (o *Outline) Accessible(item MenuItem, role string) bool {
	if !item.AllowedFor(role) {
		return false
	}
	if item.Type == TypeSubtopic {
		if parent, ok := o.Module(item.ModuleID); ok {
			return parent.AllowedFor(role)
		}
	}
	return true
}

// Neighbors returns the previous and next subtopics within the same module.
// Either is nil at the module boundaries.
func (o *Outline) Neighbors(moduleID, itemID string) (prev, next *MenuItem, err error) {
	subs := o.Subtopics(moduleID)
	for i := range subs {
		if subs[i].ID != itemID {
			continue
		}
		if i > 0 {
			p := subs[i-1]
			prev = &p
		}
		if i < len(subs)-1 {
			n := subs[i+1]
			next = &n
		}
		return prev, next, nil
	}
	return nil, nil, fmt.Errorf("%w: module %s item %s", ErrUnknownItem, moduleID, itemID)
}
