package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProposalStatus represents where a proposal sits in the sales pipeline.
type ProposalStatus string

const (
	StatusOpen       ProposalStatus = "open"
	StatusInProgress ProposalStatus = "in_progress"
	StatusClosed     ProposalStatus = "closed"
	StatusCancelled  ProposalStatus = "cancelled"
)

// Statuses lists every status in pipeline order.
var Statuses = []ProposalStatus{StatusOpen, StatusInProgress, StatusClosed, StatusCancelled}

// FollowUpThreshold is the time without contact after which an active
// proposal is flagged for follow-up.
const FollowUpThreshold = 7 * 24 * time.Hour

const (
	DefaultNumberPrefix  = "RMX"
	DefaultDeliveryTerms = "Até 3 dias úteis"
	DefaultPaymentTerms  = "Boleto para 10 DDL"
)

var (
	ErrLastItem      = errors.New("proposal must keep at least one item")
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidAmount = errors.New("amount is not a finite number")
)

// Valid reports whether s is one of the known statuses.
func (s ProposalStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsActive returns true for statuses that still need commercial attention.
func (s ProposalStatus) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress
}

// ParseStatus converts user input into a ProposalStatus.
func ParseStatus(raw string) (ProposalStatus, error) {
	s := ProposalStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ProposalItem is a priced line of a proposal.
// LineTotal is kept equal to Quantity * UnitPrice by the setters.
type ProposalItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// NewItem returns a blank item with quantity 1.
func NewItem() ProposalItem {
	return ProposalItem{ID: uuid.NewString(), Quantity: 1}
}

// SetQuantity updates the quantity and recomputes the line total. A
// quantity whose line total is not finite leaves the item unchanged.
func (item *ProposalItem) SetQuantity(q float64) error {
	if !finite(q) || !finite(q*item.UnitPrice) {
		return fmt.Errorf("quantity %v: %w", q, ErrInvalidAmount)
	}
	item.Quantity = q
	item.Recompute()
	return nil
}

// SetUnitPrice updates the unit price and recomputes the line total.
func (item *ProposalItem) SetUnitPrice(p float64) error {
	if !finite(p) || !finite(item.Quantity*p) {
		return fmt.Errorf("unit price %v: %w", p, ErrInvalidAmount)
	}
	item.UnitPrice = p
	item.Recompute()
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Recompute derives LineTotal from quantity and unit price.
func (item *ProposalItem) Recompute() {
	item.LineTotal = item.Quantity * item.UnitPrice
}

// Proposal is a service quote addressed to a client.
type Proposal struct {
	ID             string         `json:"id"`
	Number         string         `json:"number"`
	Date           string         `json:"date"`
	Client         string         `json:"client"`
	Contact        string         `json:"contact"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	Salesperson    string         `json:"salesperson"`
	Items          []ProposalItem `json:"items"`
	DeliveryTerms  string         `json:"deliveryTerms"`
	PaymentTerms   string         `json:"paymentTerms"`
	Status         ProposalStatus `json:"status"`
	LastFollowUpAt time.Time      `json:"lastFollowUpAt"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Defaults carries the values stamped on new proposals.
type Defaults struct {
	NumberPrefix  string
	DeliveryTerms string
	PaymentTerms  string
}

// NewProposal builds a proposal with one blank item. seq is the 1-based
// position the proposal takes in the collection at creation time.
func NewProposal(seq int, now time.Time, d Defaults) Proposal {
	if d.NumberPrefix == "" {
		d.NumberPrefix = DefaultNumberPrefix
	}
	now = now.Truncate(time.Millisecond)
	return Proposal{
		ID:             uuid.NewString(),
		Number:         FormatNumber(d.NumberPrefix, seq),
		Date:           FormatDate(now),
		Items:          []ProposalItem{NewItem()},
		DeliveryTerms:  d.DeliveryTerms,
		PaymentTerms:   d.PaymentTerms,
		Status:         StatusOpen,
		LastFollowUpAt: now,
		CreatedAt:      now,
	}
}

// FormatNumber renders a display number such as RMX-00012.
func FormatNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s-%05d", prefix, seq)
}

// FormatDate renders a day the way Brazilian customers read it.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// Total sums the line totals.
func (p Proposal) Total() float64 {
	var total float64
	for _, item := range p.Items {
		total += item.LineTotal
	}
	return total
}

// PendingFollowUp reports whether the proposal is still active and has not
// been followed up for more than FollowUpThreshold.
func (p Proposal) PendingFollowUp(now time.Time) bool {
	if !p.Status.IsActive() {
		return false
	}
	return now.Sub(p.LastFollowUpAt) > FollowUpThreshold
}

// DaysSinceFollowUp returns the whole days elapsed since the last contact.
func (p Proposal) DaysSinceFollowUp(now time.Time) int {
	d := now.Sub(p.LastFollowUpAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// SetStatus changes the status and restarts the follow-up clock.
func (p *Proposal) SetStatus(s ProposalStatus, now time.Time) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	p.Status = s
	p.LastFollowUpAt = now.Truncate(time.Millisecond)
	return nil
}

// MarkFollowedUp records a contact with the client.
func (p *Proposal) MarkFollowedUp(now time.Time) {
	p.LastFollowUpAt = now.Truncate(time.Millisecond)
}

// AddItem appends a blank item and returns it.
func (p *Proposal) AddItem() ProposalItem {
	item := NewItem()
	p.Items = append(p.Items, item)
	return item
}

// RemoveItem deletes an item. The last remaining item cannot be removed.
func (p *Proposal) RemoveItem(id string) error {
	idx := p.itemIndex(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	if len(p.Items) <= 1 {
		return ErrLastItem
	}
	p.Items = append(p.Items[:idx:idx], p.Items[idx+1:]...)
	return nil
}

// Item returns a pointer to the item with the given id.
func (p *Proposal) Item(id string) (*ProposalItem, error) {
	idx := p.itemIndex(id)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	return &p.Items[idx], nil
}

func (p *Proposal) itemIndex(id string) int {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so working copies never alias stored items.
func (p Proposal) Clone() Proposal {
	out := p
	out.Items = make([]ProposalItem, len(p.Items))
	copy(out.Items, p.Items)
	return out
}
