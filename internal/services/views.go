package services

import (
	"time"

	"github.com/diewo77/go-proposals/internal/models"
)

// Row is a proposal with the values derived at render time.
type Row struct {
	Proposal  models.Proposal
	Total     float64
	Pending   bool
	DaysSince int
}

// Column groups the proposals of one status.
type Column struct {
	Status models.ProposalStatus
	Rows   []Row
	Count  int
	Total  float64
}

// Pipeline is the management view: one column per status plus the
// proposals waiting for a follow-up.
type Pipeline struct {
	Columns []Column
	Pending []Row
}

// Rows lists the stored proposals in stored order. The pending flag is
// computed against the current time on every call.
func (c *Controller) Rows() []Row {
	proposals := c.Proposals()
	now := c.now()
	rows := make([]Row, len(proposals))
	for i, p := range proposals {
		rows[i] = newRow(p, now)
	}
	return rows
}

// Pipeline groups the proposals by status.
func (c *Controller) Pipeline() Pipeline {
	rows := c.Rows()
	byStatus := make(map[models.ProposalStatus]*Column, len(models.Statuses))
	out := Pipeline{Columns: make([]Column, len(models.Statuses)), Pending: []Row{}}
	for i, s := range models.Statuses {
		out.Columns[i] = Column{Status: s, Rows: []Row{}}
		byStatus[s] = &out.Columns[i]
	}
	for _, r := range rows {
		col := byStatus[r.Proposal.Status]
		if col == nil {
			continue
		}
		col.Rows = append(col.Rows, r)
		col.Count++
		col.Total += r.Total
		if r.Pending {
			out.Pending = append(out.Pending, r)
		}
	}
	return out
}

func newRow(p models.Proposal, now time.Time) Row {
	return Row{
		Proposal:  p,
		Total:     p.Total(),
		Pending:   p.PendingFollowUp(now),
		DaysSince: p.DaysSinceFollowUp(now),
	}
}
