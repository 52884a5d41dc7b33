package curriculum_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/diplomado/internal/curriculum"
)

func TestDefault_MatchesCourse(t *testing.T) {
	o := curriculum.Default()

	if got := len(o.Items()); got != 11 {
		t.Fatalf("len(Items()) = %d, want 11", got)
	}

	mods := o.CourseModules()
	if len(mods) != 2 || mods[0].ID != "mod-0" || mods[1].ID != "mod-1" {
		t.Fatalf("CourseModules() = %v, want mod-0 and mod-1", mods)
	}

	subs := o.Subtopics("1")
	want := []string{"intro-1", "contenido-1", "actividad-1", "recursos-1"}
	if len(subs) != len(want) {
		t.Fatalf("Subtopics(1) len = %d, want %d", len(subs), len(want))
	}
	for i, id := range want {
		if subs[i].ID != id {
			t.Errorf("Subtopics(1)[%d] = %q, want %q", i, subs[i].ID, id)
		}
	}

	final, ok := o.Module("evaluacion")
	if !ok || final.Path != "/evaluacion" {
		t.Errorf("Module(evaluacion) = %+v, %v; want path /evaluacion", final, ok)
	}
}

func TestMenuFor(t *testing.T) {
	o := curriculum.Default()

	student := o.MenuFor("student")
	for _, it := range student {
		if it.ID == "admin-panel" {
			t.Fatal("student menu must not contain admin-panel")
		}
	}
	if len(student) != 10 {
		t.Errorf("len(student menu) = %d, want 10", len(student))
	}

	admin := o.MenuFor("administrator")
	if admin[len(admin)-1].ID != "admin-panel" {
		t.Errorf("last admin item = %q, want admin-panel", admin[len(admin)-1].ID)
	}
}

func TestNeighbors(t *testing.T) {
	o := curriculum.Default()

	tests := []struct {
		module, item string
		prev, next   string
	}{
		{"0", "intro-0", "", "contenido-0"},
		{"0", "contenido-0", "intro-0", "evaluacion-0"},
		{"0", "evaluacion-0", "contenido-0", ""},
		{"1", "recursos-1", "actividad-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			prev, next, err := o.Neighbors(tt.module, tt.item)
			if err != nil {
				t.Fatalf("Neighbors() error = %v", err)
			}
			if id(prev) != tt.prev {
				t.Errorf("prev = %q, want %q", id(prev), tt.prev)
			}
			if id(next) != tt.next {
				t.Errorf("next = %q, want %q", id(next), tt.next)
			}
		})
	}
}

func TestNeighbors_UnknownItem(t *testing.T) {
	_, _, err := curriculum.Default().Neighbors("0", "intro-1")
	if !errors.Is(err, curriculum.ErrUnknownItem) {
		t.Fatalf("Neighbors() error = %v, want ErrUnknownItem", err)
	}
}

func TestLookup(t *testing.T) {
	o := curriculum.Default()

	it, err := o.Lookup("1", "actividad-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if it.Label != "Caso Práctico: FODA" {
		t.Errorf("Label = %q", it.Label)
	}

	if _, err := o.Lookup("0", "actividad-1"); !errors.Is(err, curriculum.ErrUnknownItem) {
		t.Errorf("Lookup() error = %v, want ErrUnknownItem", err)
	}
}

func TestAccessible_InheritsModuleWhitelist(t *testing.T) {
	o, err := curriculum.Parse([]byte(`
items:
  - {id: mod-x, label: X, type: module, module_id: x, allowed_roles: [administrator]}
  - {id: intro-x, label: Intro, type: subtopic, module_id: x, parent_id: mod-x}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	it, _ := o.Lookup("x", "intro-x")
	if o.Accessible(it, "student") {
		t.Error("student should not reach a subtopic of an admin-only module")
	}
	if !o.Accessible(it, "administrator") {
		t.Error("administrator should reach the subtopic")
	}
	if got := len(o.MenuFor("student")); got != 0 {
		t.Errorf("student menu len = %d, want 0", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", `items: []`, "no items"},
		{"duplicate id", `
items:
  - {id: a, type: module, module_id: "0"}
  - {id: a, type: module, module_id: "1"}`, "duplicate"},
		{"orphan subtopic", `
items:
  - {id: intro-0, type: subtopic, module_id: "0", parent_id: mod-0}`, "not a module"},
		{"module id mismatch", `
items:
  - {id: mod-0, type: module, module_id: "0"}
  - {id: intro-0, type: subtopic, module_id: "1", parent_id: mod-0}`, "differs"},
		{"shared module key", `
items:
  - {id: mod-0, type: module, module_id: "0"}
  - {id: mod-b, type: module, module_id: "0"}`, "share module_id"},
		{"bad type", `
items:
  - {id: x, type: chapter, module_id: "0"}`, "unknown type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := curriculum.Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.yaml")
	data := `title: Curso
items:
  - {id: mod-9, label: Nueve, type: module, module_id: "9"}
  - {id: contenido-9, label: Texto, type: subtopic, module_id: "9", parent_id: mod-9}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := curriculum.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if o.Title() != "Curso" || len(o.Subtopics("9")) != 1 {
		t.Errorf("unexpected outline: %q %v", o.Title(), o.Items())
	}

	if _, err := curriculum.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func id(it *curriculum.MenuItem) string {
	if it == nil {
		return ""
	}
	return it.ID
}
