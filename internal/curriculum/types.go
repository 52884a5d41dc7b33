package curriculum

// ItemType discriminates top-level modules from their subtopics.
type ItemType string

const (
	TypeModule   ItemType = "module"
	TypeSubtopic ItemType = "subtopic"
)

// MenuItem is one entry of the course outline.
type MenuItem struct {
	ID           string   `yaml:"id" json:"id"`
	Label        string   `yaml:"label" json:"label"`
	Type         ItemType `yaml:"type" json:"type"`
	ModuleID     string   `yaml:"module_id" json:"moduleId"`
	ParentID     string   `yaml:"parent_id,omitempty" json:"parentId,omitempty"`
	Path         string   `yaml:"path,omitempty" json:"path,omitempty"`
	AllowedRoles []string `yaml:"allowed_roles,omitempty" json:"allowedRoles,omitempty"`
}

// AllowedFor reports whether role may see the item. Items without a role
// whitelist are visible to everyone.
func (m MenuItem) AllowedFor(role string) bool {
	if len(m.AllowedRoles) == 0 {
		return true
	}
	for _, r := range m.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// outlineFile is the YAML document shape.
type outlineFile struct {
	Title string     `yaml:"title"`
	Items []MenuItem `yaml:"items"`
}
