package db

import (
	"context"
	"time"

	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/repository"
)

type seedItem struct {
	desc  string
	qty   float64
	price float64
}

var demoProposals = []struct {
	client, contact, phone, address string
	status                          models.ProposalStatus
	age                             time.Duration
	items                           []seedItem
}{
	{
		client: "Padaria Pão Quente", contact: "Sr. Almeida", phone: "(11) 98888-1234",
		address: "Rua General Francisco Glicério, 500 - Suzano/SP",
		status:  models.StatusOpen, age: 10 * 24 * time.Hour,
		items: []seedItem{
			{"Troca de quadro de distribuição monofásico para trifásico", 1, 1850},
			{"Instalação de tomadas industriais 32A", 4, 120},
		},
	},
	{
		client: "Condomínio Jardim das Flores", contact: "Síndica Marta", phone: "11 97777-4321",
		address: "Av. Mogi das Cruzes, 1200 - Suzano/SP",
		status:  models.StatusInProgress, age: 2 * 24 * time.Hour,
		items: []seedItem{
			{"Substituição de luminárias da garagem por LED", 36, 95.5},
		},
	},
}

// Seed fills an empty collection with demo proposals and reports how many
// were written. A non-empty collection is never touched.
func Seed(ctx context.Context, repo *repository.ProposalRepository, d models.Defaults, now time.Time) (int, error) {
	existing := repo.Load(ctx)
	if len(existing) > 0 {
		return 0, nil
	}
	out := make([]models.Proposal, 0, len(demoProposals))
	for i, demo := range demoProposals {
		created := now.Add(-demo.age)
		p := models.NewProposal(i+1, created, d)
		p.Client, p.Contact, p.Phone, p.Address = demo.client, demo.contact, demo.phone, demo.address
		p.Status = demo.status
		p.Items = p.Items[:0]
		for _, it := range demo.items {
			item := models.NewItem()
			item.Description = it.desc
			item.SetQuantity(it.qty)
			item.SetUnitPrice(it.price)
			p.Items = append(p.Items, item)
		}
		// newest first, the way Add leaves the collection
		out = append([]models.Proposal{p}, out...)
	}
	if err := repo.SaveAll(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}
