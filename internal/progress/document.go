package progress

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// UserProgress is the per-user progress root. Modules maps moduleID to
// itemID to entry and is never nil for values built by this package.
type UserProgress struct {
	Modules         map[string]map[string]Entry `json:"modularProgress"`
	FinalAIAnalysis *FinalAIAnalysis            `json:"finalAIAnalysis,omitempty"`
}

// NewUserProgress returns an empty progress root.
func NewUserProgress() UserProgress {
	return UserProgress{Modules: map[string]map[string]Entry{}}
}

// Empty reports whether the root holds nothing worth persisting.
func (u UserProgress) Empty() bool {
	return len(u.Modules) == 0 && u.FinalAIAnalysis == nil
}

// Entry returns the stored entry for (moduleID, itemID).
func (u UserProgress) Entry(moduleID, itemID string) (Entry, bool) {
	e, ok := u.Modules[moduleID][itemID]
	return e, ok
}

// ModuleIDs returns the module ids in sorted order.
func (u UserProgress) ModuleIDs() []string {
	return slices.Sorted(maps.Keys(u.Modules))
}

// ItemIDs returns the item ids recorded for moduleID in sorted order.
func (u UserProgress) ItemIDs(moduleID string) []string {
	return slices.Sorted(maps.Keys(u.Modules[moduleID]))
}

func (u *UserProgress) set(moduleID, itemID string, e Entry) {
	if u.Modules == nil {
		u.Modules = map[string]map[string]Entry{}
	}
	items, ok := u.Modules[moduleID]
	if !ok {
		items = map[string]Entry{}
		u.Modules[moduleID] = items
	}
	items[itemID] = e
}

// remove deletes the entry and prunes the module map once it is empty.
func (u *UserProgress) remove(moduleID, itemID string) {
	items, ok := u.Modules[moduleID]
	if !ok {
		return
	}
	delete(items, itemID)
	if len(items) == 0 {
		delete(u.Modules, moduleID)
	}
}

func (u *UserProgress) UnmarshalJSON(data []byte) error {
	type plain UserProgress
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Modules == nil {
		p.Modules = map[string]map[string]Entry{}
	}
	for id, items := range p.Modules {
		if len(items) == 0 {
			delete(p.Modules, id)
		}
	}
	*u = UserProgress(p)
	return nil
}

func (u UserProgress) clone() UserProgress {
	out := UserProgress{Modules: make(map[string]map[string]Entry, len(u.Modules))}
	for m, items := range u.Modules {
		out.Modules[m] = maps.Clone(items)
	}
	if u.FinalAIAnalysis != nil {
		a := *u.FinalAIAnalysis
		out.FinalAIAnalysis = &a
	}
	return out
}

func encodeDocument(u UserProgress) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode progress document: %w", err)
	}
	return data, nil
}

func decodeDocument(userID string, data []byte) (UserProgress, error) {
	var u UserProgress
	if err := json.Unmarshal(data, &u); err != nil {
		return UserProgress{}, fmt.Errorf("%w: user %s: %v", ErrCorrupt, userID, err)
	}
	return u, nil
}
