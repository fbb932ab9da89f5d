// Package services holds the proposal workflow: which screen is shown, the
// proposal being edited and every operation the screens trigger.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/diewo77/go-proposals/internal/metrics"
	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/render"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/diewo77/go-proposals/internal/rewrite"
	"github.com/diewo77/go-proposals/internal/validation"
	"go.uber.org/zap"
)

// View is the screen the controller is on.
type View string

const (
	ViewDashboard  View = "dashboard"
	ViewForm       View = "form"
	ViewPreview    View = "preview"
	ViewManagement View = "management"
)

var (
	ErrNoWorkingCopy = errors.New("no proposal is being edited")
	ErrNotConfirmed  = errors.New("deletion not confirmed")
	ErrBusy          = errors.New("task already running")
)

// DefaultNoticeTTL is how long a notice stays visible.
const DefaultNoticeTTL = 3 * time.Second

// Notice kinds.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Notice is a transient message for the user. Code is an i18n key.
type Notice struct {
	Code string
	Kind string
}

// Documents renders the PDF handed to export sinks.
type Documents interface {
	Document(p models.Proposal) (render.Document, error)
}

// Options configure a Controller. Zero values get defaults.
type Options struct {
	Defaults  models.Defaults
	NoticeTTL time.Duration
	Now       func() time.Time
	Log       *zap.Logger
	Rewriter  *rewrite.Rewriter
	Documents Documents
	// Sink receives exported PDFs; nil keeps exports in memory only.
	Sink render.Sink
}

// Controller drives the single-user proposal workflow. All state is
// guarded by mu; the repository serializes storage access on its own.
type Controller struct {
	mu sync.Mutex

	repo      *repository.ProposalRepository
	defaults  models.Defaults
	noticeTTL time.Duration
	now       func() time.Time
	log       *zap.Logger
	rewriter  *rewrite.Rewriter
	documents Documents
	sink      render.Sink

	proposals []models.Proposal
	view      View
	selected  string
	working   *models.Proposal
	// generation changes on every navigation; async results carry the
	// value they started with and are dropped when it no longer matches.
	generation uint64

	rewriting map[string]bool
	exporting map[string]bool

	notice    *Notice
	noticeSeq uint64
}

func NewController(repo *repository.ProposalRepository, opts Options) *Controller {
	c := &Controller{
		repo:      repo,
		defaults:  opts.Defaults,
		noticeTTL: opts.NoticeTTL,
		now:       opts.Now,
		log:       opts.Log,
		rewriter:  opts.Rewriter,
		documents: opts.Documents,
		sink:      opts.Sink,
		proposals: []models.Proposal{},
		view:      ViewDashboard,
		rewriting: map[string]bool{},
		exporting: map[string]bool{},
	}
	if c.noticeTTL <= 0 {
		c.noticeTTL = DefaultNoticeTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.rewriter == nil {
		c.rewriter = rewrite.New(nil, "", c.log)
	}
	return c
}

// Load reads the stored collection. It is called once at startup.
func (c *Controller) Load(ctx context.Context) {
	proposals := c.repo.Load(ctx)
	c.mu.Lock()
	c.proposals = proposals
	c.mu.Unlock()
	c.log.Info("proposals loaded", zap.Int("count", len(proposals)))
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Proposals returns a copy of the collection in stored order.
func (c *Controller) Proposals() []models.Proposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Proposal, len(c.proposals))
	for i, p := range c.proposals {
		out[i] = p.Clone()
	}
	return out
}

// Find returns a copy of the stored proposal with id.
func (c *Controller) Find(id string) (models.Proposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return models.Proposal{}, false
	}
	return c.proposals[idx].Clone(), true
}

// Working returns a copy of the proposal being edited.
func (c *Controller) Working() (models.Proposal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.working == nil {
		return models.Proposal{}, false
	}
	return c.working.Clone(), true
}

// Selected returns the proposal shown in the preview.
func (c *Controller) Selected() (models.Proposal, bool) {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()
	if id == "" {
		return models.Proposal{}, false
	}
	return c.Find(id)
}

// Notice returns the visible notice, if any.
func (c *Controller) Notice() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return Notice{}, false
	}
	return *c.notice, true
}

// ItemBusy reports whether a rewrite is running for the item.
func (c *Controller) ItemBusy(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rewriting[itemID]
}

// ExportBusy reports whether an export is running for the proposal.
func (c *Controller) ExportBusy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exporting[id]
}

// RewriteEnabled reports whether description rewrites can do anything.
func (c *Controller) RewriteEnabled() bool {
	return c.rewriter.Enabled()
}

// ---------------------------------------------------------------------------
// Navigation
// ---------------------------------------------------------------------------

// New starts a fresh proposal and opens the form.
func (c *Controller) New() models.Proposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := models.NewProposal(len(c.proposals)+1, c.now(), c.defaults)
	c.working = &p
	c.navigate(ViewForm, "")
	return p.Clone()
}

// Edit opens the form on a copy of a stored proposal. Edits stay on the
// copy until Save.
func (c *Controller) Edit(id string) (models.Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return models.Proposal{}, fmt.Errorf("edit %s: %w", id, repository.ErrNotFound)
	}
	p := c.proposals[idx].Clone()
	c.working = &p
	c.navigate(ViewForm, "")
	return p.Clone(), nil
}

// Preview shows a stored proposal.
func (c *Controller) Preview(id string) (models.Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return models.Proposal{}, fmt.Errorf("preview %s: %w", id, repository.ErrNotFound)
	}
	c.working = nil
	c.navigate(ViewPreview, id)
	return c.proposals[idx].Clone(), nil
}

// Dashboard returns to the list. An unsaved working copy is discarded.
func (c *Controller) Dashboard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.working = nil
	c.navigate(ViewDashboard, "")
}

// Management opens the pipeline view.
func (c *Controller) Management() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.working = nil
	c.navigate(ViewManagement, "")
}

func (c *Controller) navigate(v View, selected string) {
	c.view = v
	c.selected = selected
	c.generation++
}

// ---------------------------------------------------------------------------
// Working copy edits
// ---------------------------------------------------------------------------

// Details are the free-text fields of the form.
type Details struct {
	Client        string
	Contact       string
	Phone         string
	Address       string
	Salesperson   string
	DeliveryTerms string
	PaymentTerms  string
}

func (c *Controller) SetDetails(d Details) error {
	return c.edit(func(p *models.Proposal) error {
		p.Client = d.Client
		p.Contact = d.Contact
		p.Phone = d.Phone
		p.Address = d.Address
		p.Salesperson = d.Salesperson
		p.DeliveryTerms = d.DeliveryTerms
		p.PaymentTerms = d.PaymentTerms
		return nil
	})
}

func (c *Controller) AddItem() (models.ProposalItem, error) {
	var item models.ProposalItem
	err := c.edit(func(p *models.Proposal) error {
		item = p.AddItem()
		return nil
	})
	return item, err
}

// RemoveItem deletes an item from the working copy; the last one stays.
func (c *Controller) RemoveItem(itemID string) error {
	err := c.edit(func(p *models.Proposal) error { return p.RemoveItem(itemID) })
	if errors.Is(err, models.ErrLastItem) {
		c.mu.Lock()
		c.notify("last_item", NoticeError)
		c.mu.Unlock()
	}
	return err
}

func (c *Controller) SetItemDescription(itemID, desc string) error {
	return c.editItem(itemID, func(it *models.ProposalItem) error {
		it.Description = desc
		return nil
	})
}

func (c *Controller) SetItemQuantity(itemID string, q float64) error {
	return c.editItem(itemID, func(it *models.ProposalItem) error { return it.SetQuantity(q) })
}

func (c *Controller) SetItemUnitPrice(itemID string, price float64) error {
	return c.editItem(itemID, func(it *models.ProposalItem) error { return it.SetUnitPrice(price) })
}

// SetStatus changes the working copy status and restarts its follow-up clock.
func (c *Controller) SetStatus(s models.ProposalStatus) error {
	now := c.now()
	return c.edit(func(p *models.Proposal) error { return p.SetStatus(s, now) })
}

func (c *Controller) edit(fn func(p *models.Proposal) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.working == nil {
		return ErrNoWorkingCopy
	}
	return fn(c.working)
}

// editItem applies fn to one item. An edit that would push the proposal
// total past the float range is rolled back.
func (c *Controller) editItem(itemID string, fn func(it *models.ProposalItem) error) error {
	return c.edit(func(p *models.Proposal) error {
		it, err := p.Item(itemID)
		if err != nil {
			return err
		}
		before := *it
		if err := fn(it); err != nil {
			return err
		}
		if total := p.Total(); math.IsInf(total, 0) || math.IsNaN(total) {
			*it = before
			return fmt.Errorf("proposal total: %w", models.ErrInvalidAmount)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Save validates and persists the working copy, then returns to the
// dashboard. A blank client is rejected with validation.Violations and
// leaves both storage and state untouched.
func (c *Controller) Save(ctx context.Context) (models.Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.working == nil {
		return models.Proposal{}, ErrNoWorkingCopy
	}
	p := c.working.Clone()

	v := validation.Violations{}
	validation.Required("client", p.Client, v)
	if !v.Empty() {
		metrics.Saves.WithLabelValues("rejected").Inc()
		c.notify("client_required", NoticeError)
		return p, v
	}

	var (
		updated []models.Proposal
		err     error
	)
	if c.indexOf(p.ID) < 0 {
		updated, err = c.repo.Add(ctx, p)
	} else {
		updated, err = c.repo.Update(ctx, p)
		if errors.Is(err, repository.ErrNotFound) {
			c.log.Warn("proposal vanished from storage, inserting it again", zap.String("id", p.ID))
			updated, err = c.repo.Add(ctx, p)
		}
	}
	if err != nil {
		metrics.Saves.WithLabelValues("error").Inc()
		c.notify("save_failed", NoticeError)
		return p, err
	}

	metrics.Saves.WithLabelValues("ok").Inc()
	c.proposals = updated
	c.working = nil
	c.navigate(ViewDashboard, "")
	c.notify("proposal_saved", NoticeSuccess)
	c.log.Info("proposal saved", zap.String("id", p.ID), zap.String("number", p.Number))
	return p, nil
}

// Delete removes a stored proposal. confirmed must be true; there is no undo.
func (c *Controller) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	updated, err := c.repo.Remove(ctx, id)
	if err != nil {
		c.notify("save_failed", NoticeError)
		return err
	}
	c.proposals = updated
	if (c.working != nil && c.working.ID == id) || c.selected == id {
		c.working = nil
		c.navigate(ViewDashboard, "")
	}
	c.notify("proposal_deleted", NoticeSuccess)
	c.log.Info("proposal deleted", zap.String("id", id))
	return nil
}

// ChangeStatus updates the status of a stored proposal from the pipeline
// view. The follow-up clock restarts with it.
func (c *Controller) ChangeStatus(ctx context.Context, id string, s models.ProposalStatus) (models.Proposal, error) {
	now := c.now()
	p, err := c.updateStored(ctx, id, func(p *models.Proposal) error { return p.SetStatus(s, now) })
	if err != nil {
		return p, err
	}
	c.mu.Lock()
	c.notify("status_changed", NoticeSuccess)
	c.mu.Unlock()
	return p, nil
}

// RecordFollowUp stamps a contact with the client and returns the
// proposal for the follow-up message.
func (c *Controller) RecordFollowUp(ctx context.Context, id string) (models.Proposal, error) {
	now := c.now()
	p, err := c.updateStored(ctx, id, func(p *models.Proposal) error {
		p.MarkFollowedUp(now)
		return nil
	})
	if err != nil {
		return p, err
	}
	c.mu.Lock()
	c.notify("follow_up_recorded", NoticeSuccess)
	c.mu.Unlock()
	return p, nil
}

func (c *Controller) updateStored(ctx context.Context, id string, fn func(p *models.Proposal) error) (models.Proposal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return models.Proposal{}, fmt.Errorf("update %s: %w", id, repository.ErrNotFound)
	}
	p := c.proposals[idx].Clone()
	if err := fn(&p); err != nil {
		return p, err
	}
	updated, err := c.repo.Update(ctx, p)
	if err != nil {
		c.notify("save_failed", NoticeError)
		return p, err
	}
	c.proposals = updated
	return p, nil
}

func (c *Controller) indexOf(id string) int {
	for i := range c.proposals {
		if c.proposals[i].ID == id {
			return i
		}
	}
	return -1
}

// notify replaces the visible notice and schedules its dismissal. A timer
// only clears the notice it was started for. Callers hold mu.
func (c *Controller) notify(code, kind string) {
	c.noticeSeq++
	seq := c.noticeSeq
	c.notice = &Notice{Code: code, Kind: kind}
	time.AfterFunc(c.noticeTTL, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.noticeSeq == seq {
			c.notice = nil
		}
	})
}
