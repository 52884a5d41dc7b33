// Package report builds the administrator's progress matrix and exports it
// as a spreadsheet.
package report

import (
	"slices"

	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/curriculum"
	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/quiz"
)

// Column is one course item of the matrix.
type Column struct {
	ModuleID    string `json:"moduleId"`
	ModuleLabel string `json:"moduleLabel"`
	ItemID      string `json:"itemId"`
	ItemLabel   string `json:"itemLabel"`
}

// Cell is one user's state for one column.
type Cell struct {
	Completed bool     `json:"completed"`
	Score     *float64 `json:"score,omitempty"`
	Approved  bool     `json:"approved,omitempty"`
}

// Label renders the cell for humans.
func (c Cell) Label() string {
	switch {
	case c.Score != nil:
		return quiz.FormatScore(*c.Score) + "%"
	case c.Completed:
		return "Completado"
	default:
		return "Pendiente"
	}
}

// Row is one user's progress across every column.
type Row struct {
	UserID        string                    `json:"userId"`
	Username      string                    `json:"username,omitempty"`
	FullName      string                    `json:"fullName,omitempty"`
	Status        auth.Status               `json:"status,omitempty"`
	Cells         []Cell                    `json:"cells"`
	FinalAnalysis *progress.FinalAIAnalysis `json:"finalAnalysis,omitempty"`
}

// Matrix is the full progress table.
type Matrix struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Columns lists the subtopics of every course module in outline order.
func Columns(o *curriculum.Outline) []Column {
	var cols []Column
	for _, m := range o.CourseModules() {
		for _, it := range o.Subtopics(m.ModuleID) {
			cols = append(cols, Column{
				ModuleID:    m.ModuleID,
				ModuleLabel: m.Label,
				ItemID:      it.ID,
				ItemLabel:   it.Label,
			})
		}
	}
	return cols
}

// Build assembles the matrix. Every account gets a row in users order,
// followed by rows for progress recorded under ids with no account.
func Build(o *curriculum.Outline, users []auth.User, all map[string]progress.UserProgress) Matrix {
	m := Matrix{Columns: Columns(o), Rows: []Row{}}

	seen := make(map[string]bool, len(users))
	for _, u := range users {
		seen[u.ID] = true
		row := buildRow(m.Columns, u.ID, all[u.ID])
		row.Username = u.Credentials.Username
		row.FullName = u.PersonalData.FullName
		row.Status = u.Status
		m.Rows = append(m.Rows, row)
	}

	var orphans []string
	for id := range all {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	slices.Sort(orphans)
	for _, id := range orphans {
		m.Rows = append(m.Rows, buildRow(m.Columns, id, all[id]))
	}
	return m
}

func buildRow(cols []Column, userID string, doc progress.UserProgress) Row {
	row := Row{UserID: userID, Cells: make([]Cell, len(cols)), FinalAnalysis: doc.FinalAIAnalysis}
	for i, c := range cols {
		entry, ok := doc.Entry(c.ModuleID, c.ItemID)
		if !ok {
			continue
		}
		row.Cells[i].Completed = true
		if r, graded := entry.Result(); graded {
			score := r.Score
			row.Cells[i].Score = &score
			row.Cells[i].Approved = r.Approved()
		}
	}
	return row
}
