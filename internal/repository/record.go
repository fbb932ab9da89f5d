package repository

import (
	"fmt"
	"time"

	"github.com/diewo77/go-proposals/internal/models"
	"github.com/google/uuid"
)

// Stored shape of a proposal. Timestamps are Unix milliseconds.
type proposalRecord struct {
	ID             string       `json:"id"`
	Number         string       `json:"number"`
	Date           string       `json:"date"`
	Client         string       `json:"client"`
	Contact        string       `json:"contact"`
	Phone          string       `json:"phone"`
	Address        string       `json:"address"`
	Salesperson    string       `json:"salesperson"`
	Items          []itemRecord `json:"items"`
	DeliveryTerms  string       `json:"deliveryTerms"`
	PaymentTerms   string       `json:"paymentTerms"`
	Status         string       `json:"status"`
	LastFollowUpAt int64        `json:"lastFollowUpAt"`
	CreatedAt      int64        `json:"createdAt"`
}

type itemRecord struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// storedProposal is the permissive decode target. Pointer fields tell a
// missing key apart from a zero value; legacy keys come from the first
// shape of the collection.
type storedProposal struct {
	ID             string       `json:"id"`
	Number         string       `json:"number"`
	Date           string       `json:"date"`
	Client         string       `json:"client"`
	Contact        string       `json:"contact"`
	Phone          string       `json:"phone"`
	Address        string       `json:"address"`
	Salesperson    *string      `json:"salesperson"`
	Items          []storedItem `json:"items"`
	DeliveryTerms  *string      `json:"deliveryTerms"`
	PaymentTerms   *string      `json:"paymentTerms"`
	Status         *string      `json:"status"`
	LastFollowUpAt *int64       `json:"lastFollowUpAt"`
	CreatedAt      *int64       `json:"createdAt"`

	LegacyDelivery *string `json:"delivery"`
	LegacyPayment  *string `json:"payment"`
}

type storedItem struct {
	ID          string   `json:"id"`
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`

	LegacyDesc *string  `json:"desc"`
	LegacyQty  *float64 `json:"qty"`
	LegacyUnit *float64 `json:"unit"`
}

func toRecord(p models.Proposal) proposalRecord {
	items := make([]itemRecord, len(p.Items))
	for i, it := range p.Items {
		items[i] = itemRecord{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	return proposalRecord{
		ID:             p.ID,
		Number:         p.Number,
		Date:           p.Date,
		Client:         p.Client,
		Contact:        p.Contact,
		Phone:          p.Phone,
		Address:        p.Address,
		Salesperson:    p.Salesperson,
		Items:          items,
		DeliveryTerms:  p.DeliveryTerms,
		PaymentTerms:   p.PaymentTerms,
		Status:         string(p.Status),
		LastFollowUpAt: p.LastFollowUpAt.UnixMilli(),
		CreatedAt:      p.CreatedAt.UnixMilli(),
	}
}

// migrateRecord upgrades any stored shape to the current model. Each field
// added after the first shape gets its default here and nowhere else.
func migrateRecord(s storedProposal, now time.Time) models.Proposal {
	p := models.Proposal{
		ID:      s.ID,
		Number:  s.Number,
		Date:    s.Date,
		Client:  s.Client,
		Contact: s.Contact,
		Phone:   s.Phone,
		Address: s.Address,
	}
	if s.CreatedAt != nil && *s.CreatedAt > 0 {
		p.CreatedAt = time.UnixMilli(*s.CreatedAt)
	} else {
		p.CreatedAt = time.UnixMilli(now.UnixMilli())
	}

	// Backfilled ids are derived from the record so loading twice yields
	// the same collection.
	if p.ID == "" {
		seed := fmt.Sprintf("%s|%s|%d", s.Number, s.Client, p.CreatedAt.UnixMilli())
		p.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
	}

	p.Status = models.StatusOpen
	if s.Status != nil {
		if st := models.ProposalStatus(*s.Status); st.Valid() {
			p.Status = st
		}
	}

	if s.Salesperson != nil {
		p.Salesperson = *s.Salesperson
	}

	if s.LastFollowUpAt != nil && *s.LastFollowUpAt > 0 {
		p.LastFollowUpAt = time.UnixMilli(*s.LastFollowUpAt)
	} else {
		p.LastFollowUpAt = p.CreatedAt
	}

	p.DeliveryTerms = firstString(s.DeliveryTerms, s.LegacyDelivery)
	p.PaymentTerms = firstString(s.PaymentTerms, s.LegacyPayment)

	for i, si := range s.Items {
		item := models.ProposalItem{
			ID:          si.ID,
			Description: firstString(si.Description, si.LegacyDesc),
			Quantity:    firstFloat(si.Quantity, si.LegacyQty),
			UnitPrice:   firstFloat(si.UnitPrice, si.LegacyUnit),
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("%s-item-%d", p.ID, i+1)
		}
		item.Recompute()
		p.Items = append(p.Items, item)
	}
	if len(p.Items) == 0 {
		p.Items = []models.ProposalItem{{ID: p.ID + "-item-1", Quantity: 1}}
	}
	return p
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstFloat(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
