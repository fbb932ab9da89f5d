package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestProposalItem_Recompute(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		unitPrice float64
		want      float64
	}{
		{"two at 150", 2, 150, 300},
		{"fractional quantity", 2.5, 10, 25},
		{"zero price", 3, 0, 0},
		{"zero quantity", 0, 99.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewItem()
			item.SetUnitPrice(tt.unitPrice)
			item.SetQuantity(tt.quantity)
			if item.LineTotal != tt.want {
				t.Errorf("LineTotal = %f, want %f", item.LineTotal, tt.want)
			}
			if item.LineTotal != item.Quantity*item.UnitPrice {
				t.Errorf("LineTotal drifted from quantity * unitPrice")
			}
		})
	}
}

func TestProposalItem_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		unitPrice float64
	}{
		{"NaN quantity", math.NaN(), 150},
		{"infinite price", 2, math.Inf(1)},
		{"overflowing product", 1e200, 1e200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewItem()
			errQ := item.SetQuantity(tt.quantity)
			errP := item.SetUnitPrice(tt.unitPrice)
			if !errors.Is(errQ, ErrInvalidAmount) && !errors.Is(errP, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v / %v", errQ, errP)
			}
			if math.IsNaN(item.LineTotal) || math.IsInf(item.LineTotal, 0) {
				t.Errorf("LineTotal = %v, want a finite value", item.LineTotal)
			}
			if item.LineTotal != item.Quantity*item.UnitPrice {
				t.Errorf("LineTotal drifted from quantity * unitPrice")
			}
		})
	}
}

func TestProposal_Total(t *testing.T) {
	p := NewProposal(1, time.Now(), Defaults{})
	p.Items[0].SetQuantity(2)
	p.Items[0].SetUnitPrice(150)
	second := p.AddItem()
	item, err := p.Item(second.ID)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	item.SetUnitPrice(50)

	if got := p.Total(); got != 350 {
		t.Errorf("Total() = %f, want 350", got)
	}
}

func TestNewProposal(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	p := NewProposal(12, now, Defaults{DeliveryTerms: DefaultDeliveryTerms, PaymentTerms: DefaultPaymentTerms})

	if p.ID == "" {
		t.Fatal("expected generated id")
	}
	if p.Number != "RMX-00012" {
		t.Errorf("Number = %q, want RMX-00012", p.Number)
	}
	if p.Date != "09/03/2026" {
		t.Errorf("Date = %q, want 09/03/2026", p.Date)
	}
	if len(p.Items) != 1 || p.Items[0].Quantity != 1 || p.Items[0].UnitPrice != 0 {
		t.Errorf("expected one blank item, got %+v", p.Items)
	}
	if p.Status != StatusOpen {
		t.Errorf("Status = %q, want open", p.Status)
	}
	if !p.LastFollowUpAt.Equal(p.CreatedAt) {
		t.Errorf("LastFollowUpAt should default to CreatedAt")
	}
	if p.DeliveryTerms != DefaultDeliveryTerms || p.PaymentTerms != DefaultPaymentTerms {
		t.Errorf("default terms not applied: %q / %q", p.DeliveryTerms, p.PaymentTerms)
	}
}

func TestProposal_RemoveItem(t *testing.T) {
	p := NewProposal(1, time.Now(), Defaults{})
	only := p.Items[0].ID

	if err := p.RemoveItem(only); !errors.Is(err, ErrLastItem) {
		t.Fatalf("removing last item: err = %v, want ErrLastItem", err)
	}
	if len(p.Items) != 1 {
		t.Fatalf("last item was removed")
	}

	p.Items[0].SetQuantity(2)
	p.Items[0].SetUnitPrice(10)
	extra := p.AddItem()
	e, _ := p.Item(extra.ID)
	e.SetUnitPrice(5)

	if err := p.RemoveItem(extra.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(p.Items) != 1 || p.Total() != 20 {
		t.Errorf("after remove: items=%d total=%f", len(p.Items), p.Total())
	}

	if err := p.RemoveItem("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown item: err = %v, want ErrItemNotFound", err)
	}
}

func TestProposal_RemoveItemDoesNotAliasClone(t *testing.T) {
	p := NewProposal(1, time.Now(), Defaults{})
	p.AddItem()
	p.AddItem()
	stored := p.Clone()

	if err := p.RemoveItem(p.Items[0].ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(stored.Items) != 3 || stored.Items[0].ID == p.Items[0].ID {
		t.Errorf("clone was mutated by RemoveItem")
	}
}

func TestProposal_PendingFollowUp(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name   string
		status ProposalStatus
		since  time.Duration
		want   bool
	}{
		{"open 8 days", StatusOpen, 8 * day, true},
		{"open 6 days", StatusOpen, 6 * day, false},
		{"open exactly 7 days", StatusOpen, 7 * day, false},
		{"open 7 days and 1ms", StatusOpen, 7*day + time.Millisecond, true},
		{"in progress 10 days", StatusInProgress, 10 * day, true},
		{"closed 30 days", StatusClosed, 30 * day, false},
		{"cancelled 30 days", StatusCancelled, 30 * day, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Proposal{Status: tt.status, LastFollowUpAt: now.Add(-tt.since)}
			if got := p.PendingFollowUp(now); got != tt.want {
				t.Errorf("PendingFollowUp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProposal_SetStatusResetsFollowUp(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewProposal(1, created, Defaults{})
	later := created.Add(20 * 24 * time.Hour)

	if err := p.SetStatus(StatusInProgress, later); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if p.Status != StatusInProgress || !p.LastFollowUpAt.Equal(later) {
		t.Errorf("status=%q lastFollowUpAt=%v", p.Status, p.LastFollowUpAt)
	}

	if err := p.SetStatus("won", later.Add(time.Hour)); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status: err = %v", err)
	}
	if p.Status != StatusInProgress || !p.LastFollowUpAt.Equal(later) {
		t.Errorf("invalid status must not touch the proposal")
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(" In_Progress "); err != nil || s != StatusInProgress {
		t.Errorf("ParseStatus = %q, %v", s, err)
	}
	if _, err := ParseStatus("archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestProposal_DaysSinceFollowUp(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	p := Proposal{LastFollowUpAt: now.Add(-(9*24*time.Hour + time.Hour))}
	if got := p.DaysSinceFollowUp(now); got != 9 {
		t.Errorf("DaysSinceFollowUp() = %d, want 9", got)
	}
	p.LastFollowUpAt = now.Add(time.Hour)
	if got := p.DaysSinceFollowUp(now); got != 0 {
		t.Errorf("future follow-up should count as 0, got %d", got)
	}
}
