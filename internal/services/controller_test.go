package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/render"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/diewo77/go-proposals/internal/rewrite"
	"github.com/diewo77/go-proposals/internal/storage"
	"github.com/diewo77/go-proposals/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// gatedBackend blocks every call until release is closed.
type gatedBackend struct {
	reply   string
	release chan struct{}
}

func (g *gatedBackend) Generate(ctx context.Context, _ string) (string, error) {
	<-g.release
	return g.reply, nil
}

type fixture struct {
	ctl   *Controller
	repo  *repository.ProposalRepository
	store *storage.MemoryStore
	clock *clock
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	clk := &clock{t: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)}
	repo := repository.New(store, nil, repository.WithClock(clk.Now))
	opts.Now = clk.Now
	if opts.Defaults.DeliveryTerms == "" {
		opts.Defaults = models.Defaults{
			NumberPrefix:  models.DefaultNumberPrefix,
			DeliveryTerms: models.DefaultDeliveryTerms,
			PaymentTerms:  models.DefaultPaymentTerms,
		}
	}
	ctl := NewController(repo, opts)
	ctl.Load(context.Background())
	return fixture{ctl: ctl, repo: repo, store: store, clock: clk}
}

// saveProposal creates and saves a proposal for client with one priced item.
func (f fixture) saveProposal(t *testing.T, client string, qty, price float64) models.Proposal {
	t.Helper()
	p := f.ctl.New()
	require.NoError(t, f.ctl.SetDetails(Details{Client: client, DeliveryTerms: p.DeliveryTerms, PaymentTerms: p.PaymentTerms}))
	require.NoError(t, f.ctl.SetItemDescription(p.Items[0].ID, "Serviço"))
	require.NoError(t, f.ctl.SetItemQuantity(p.Items[0].ID, qty))
	require.NoError(t, f.ctl.SetItemUnitPrice(p.Items[0].ID, price))
	saved, err := f.ctl.Save(context.Background())
	require.NoError(t, err)
	return saved
}

func TestCreateSaveDeleteScenario(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.repo.Add(ctx, models.NewProposal(1, f.clock.Now(), models.Defaults{}))
	require.NoError(t, err)
	f.ctl.Load(ctx)

	p := f.ctl.New()
	assert.Equal(t, ViewForm, f.ctl.View())
	assert.Equal(t, "RMX-00002", p.Number)
	assert.Equal(t, "09/03/2026", p.Date)
	require.Len(t, p.Items, 1)

	require.NoError(t, f.ctl.SetDetails(Details{Client: "Padaria Central"}))
	require.NoError(t, f.ctl.SetItemQuantity(p.Items[0].ID, 2))
	require.NoError(t, f.ctl.SetItemUnitPrice(p.Items[0].ID, 150))
	w, ok := f.ctl.Working()
	require.True(t, ok)
	assert.Equal(t, 300.0, w.Items[0].LineTotal)
	assert.Equal(t, "R$ 300,00", render.Money(w.Total()))

	_, err = f.ctl.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, ViewDashboard, f.ctl.View())
	rows := f.ctl.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, p.ID, rows[0].Proposal.ID, "new proposal is listed first")
	assert.Equal(t, 300.0, rows[0].Total)
	n, _ := f.ctl.Notice()
	assert.Equal(t, "proposal_saved", n.Code)
	require.Len(t, f.repo.Load(ctx), 2)

	require.ErrorIs(t, f.ctl.Delete(ctx, p.ID, false), ErrNotConfirmed)
	assert.Len(t, f.repo.Load(ctx), 2)
	require.NoError(t, f.ctl.Delete(ctx, p.ID, true))
	assert.Len(t, f.repo.Load(ctx), 1)
	_, found := f.ctl.Find(p.ID)
	assert.False(t, found)
}

func TestSaveRejectsBlankClient(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.ctl.New()
	require.NoError(t, f.ctl.SetDetails(Details{Client: "   "}))

	_, err := f.ctl.Save(ctx)
	var v validation.Violations
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "required", v["client"])

	_, written, _ := f.store.Get(ctx, storage.ProposalsKey)
	assert.False(t, written, "storage must not be touched")
	assert.Equal(t, ViewForm, f.ctl.View())
	_, editing := f.ctl.Working()
	assert.True(t, editing)
	n, ok := f.ctl.Notice()
	require.True(t, ok)
	assert.Equal(t, Notice{Code: "client_required", Kind: NoticeError}, n)
}

func TestSaveWithoutWorkingCopy(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.ctl.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoWorkingCopy)
}

func TestRemoveLastItemRejected(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.ctl.New()
	err := f.ctl.RemoveItem(p.Items[0].ID)
	require.ErrorIs(t, err, models.ErrLastItem)
	w, _ := f.ctl.Working()
	assert.Len(t, w.Items, 1)

	item, err := f.ctl.AddItem()
	require.NoError(t, err)
	require.NoError(t, f.ctl.RemoveItem(p.Items[0].ID))
	w, _ = f.ctl.Working()
	require.Len(t, w.Items, 1)
	assert.Equal(t, item.ID, w.Items[0].ID)
}

func TestItemEditsKeepTotalFinite(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.ctl.New()
	require.NoError(t, f.ctl.SetDetails(Details{Client: "Galpão Norte"}))
	require.NoError(t, f.ctl.SetItemUnitPrice(p.Items[0].ID, 1e308))
	second, err := f.ctl.AddItem()
	require.NoError(t, err)

	err = f.ctl.SetItemUnitPrice(second.ID, 1e308)
	require.ErrorIs(t, err, models.ErrInvalidAmount)
	require.ErrorIs(t, f.ctl.SetItemQuantity(p.Items[0].ID, math.NaN()), models.ErrInvalidAmount)

	w, _ := f.ctl.Working()
	assert.Equal(t, 0.0, w.Items[1].UnitPrice, "rejected edit is rolled back")
	assert.Equal(t, 1e308, w.Total())

	_, err = f.ctl.Save(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.repo.Load(context.Background()), 1)
}

func TestEditWorksOnCopy(t *testing.T) {
	f := newFixture(t, Options{})
	saved := f.saveProposal(t, "Original", 1, 10)

	_, err := f.ctl.Edit(saved.ID)
	require.NoError(t, err)
	require.NoError(t, f.ctl.SetDetails(Details{Client: "Changed"}))
	require.NoError(t, f.ctl.SetItemUnitPrice(saved.Items[0].ID, 99))
	f.ctl.Dashboard()

	stored, ok := f.ctl.Find(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "Original", stored.Client)
	assert.Equal(t, 10.0, stored.Total())
}

func TestSaveUpdatesExisting(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	saved := f.saveProposal(t, "Before", 1, 10)

	_, err := f.ctl.Edit(saved.ID)
	require.NoError(t, err)
	require.NoError(t, f.ctl.SetDetails(Details{Client: "After"}))
	_, err = f.ctl.Save(ctx)
	require.NoError(t, err)

	stored := f.repo.Load(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, "After", stored[0].Client)
	assert.Equal(t, saved.Number, stored[0].Number)
}

func TestSaveReinsertsVanishedProposal(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	saved := f.saveProposal(t, "Ghost", 1, 10)

	_, err := f.ctl.Edit(saved.ID)
	require.NoError(t, err)
	// another writer removed it behind the controller's back
	_, err = f.repo.Remove(ctx, saved.ID)
	require.NoError(t, err)

	_, err = f.ctl.Save(ctx)
	require.NoError(t, err)
	stored := f.repo.Load(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, saved.ID, stored[0].ID)
}

func TestNumbersFollowCollectionSize(t *testing.T) {
	f := newFixture(t, Options{})
	f.saveProposal(t, "A", 1, 1)
	b := f.saveProposal(t, "B", 1, 1)
	assert.Equal(t, "RMX-00002", b.Number)
	require.NoError(t, f.ctl.Delete(context.Background(), b.ID, true))
	// the number only depends on how many proposals are stored
	assert.Equal(t, "RMX-00002", f.ctl.New().Number)
}

func TestChangeStatusRestartsFollowUp(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	saved := f.saveProposal(t, "Cliente", 1, 100)

	f.clock.Advance(8 * 24 * time.Hour)
	assert.True(t, f.ctl.Rows()[0].Pending)

	p, err := f.ctl.ChangeStatus(ctx, saved.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, p.Status)
	assert.True(t, p.LastFollowUpAt.Equal(f.clock.Now()))
	assert.False(t, f.ctl.Rows()[0].Pending)

	stored := f.repo.Load(ctx)
	assert.Equal(t, models.StatusInProgress, stored[0].Status)
	assert.Equal(t, f.clock.Now().UnixMilli(), stored[0].LastFollowUpAt.UnixMilli())

	_, err = f.ctl.ChangeStatus(ctx, saved.ID, "won")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
	_, err = f.ctl.ChangeStatus(ctx, "missing", models.StatusClosed)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecordFollowUp(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	saved := f.saveProposal(t, "Cliente", 1, 100)
	f.clock.Advance(10 * 24 * time.Hour)

	p, err := f.ctl.RecordFollowUp(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, p.Status)
	assert.False(t, p.PendingFollowUp(f.clock.Now()))
	n, _ := f.ctl.Notice()
	assert.Equal(t, "follow_up_recorded", n.Code)
}

func TestSetStatusOnWorkingCopy(t *testing.T) {
	f := newFixture(t, Options{})
	f.ctl.New()
	f.clock.Advance(time.Hour)
	require.NoError(t, f.ctl.SetStatus(models.StatusClosed))
	w, _ := f.ctl.Working()
	assert.Equal(t, models.StatusClosed, w.Status)
	assert.True(t, w.LastFollowUpAt.Equal(f.clock.Now()))
	assert.ErrorIs(t, f.ctl.SetStatus("bogus"), models.ErrInvalidStatus)
}

func TestNoticeIsDismissed(t *testing.T) {
	f := newFixture(t, Options{NoticeTTL: 20 * time.Millisecond})
	f.saveProposal(t, "Cliente", 1, 1)
	_, ok := f.ctl.Notice()
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		_, ok := f.ctl.Notice()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestRewriteApplied(t *testing.T) {
	backend := &gatedBackend{reply: "Instalação de tomada 20A padrão NBR 14136", release: make(chan struct{})}
	close(backend.release)
	f := newFixture(t, Options{Rewriter: rewrite.New(backend, "Raimundix", nil)})
	p := f.ctl.New()
	require.NoError(t, f.ctl.SetItemDescription(p.Items[0].ID, "tomada"))

	ch, err := f.ctl.RewriteItem(context.Background(), p.Items[0].ID)
	require.NoError(t, err)
	res := <-ch
	assert.True(t, res.Applied)
	assert.True(t, res.Outcome.Rewritten)

	w, _ := f.ctl.Working()
	assert.Equal(t, backend.reply, w.Items[0].Description)
	assert.False(t, f.ctl.ItemBusy(p.Items[0].ID))
	n, _ := f.ctl.Notice()
	assert.Equal(t, "description_optimized", n.Code)
}

func TestRewriteFallbackIsReported(t *testing.T) {
	f := newFixture(t, Options{})
	assert.False(t, f.ctl.RewriteEnabled())
	p := f.ctl.New()
	require.NoError(t, f.ctl.SetItemDescription(p.Items[0].ID, "tomada"))

	ch, err := f.ctl.RewriteItem(context.Background(), p.Items[0].ID)
	require.NoError(t, err)
	res := <-ch
	assert.False(t, res.Outcome.Rewritten)
	assert.Equal(t, rewrite.ReasonDisabled, res.Outcome.Reason)

	w, _ := f.ctl.Working()
	assert.Equal(t, "tomada", w.Items[0].Description)
	n, _ := f.ctl.Notice()
	assert.Equal(t, "description_unchanged", n.Code)
}

func TestLateRewriteIsIgnored(t *testing.T) {
	backend := &gatedBackend{reply: "texto novo", release: make(chan struct{})}
	f := newFixture(t, Options{Rewriter: rewrite.New(backend, "", nil)})
	saved := f.saveProposal(t, "Cliente", 1, 1)

	_, err := f.ctl.Edit(saved.ID)
	require.NoError(t, err)
	itemID := saved.Items[0].ID
	ch, err := f.ctl.RewriteItem(context.Background(), itemID)
	require.NoError(t, err)
	assert.True(t, f.ctl.ItemBusy(itemID))

	_, err = f.ctl.RewriteItem(context.Background(), itemID)
	assert.ErrorIs(t, err, ErrBusy)

	// leave and come back: the pending result belongs to the old form
	f.ctl.Dashboard()
	_, err = f.ctl.Edit(saved.ID)
	require.NoError(t, err)
	close(backend.release)

	res := <-ch
	assert.False(t, res.Applied)
	assert.False(t, f.ctl.ItemBusy(itemID))
	w, _ := f.ctl.Working()
	assert.Equal(t, "Serviço", w.Items[0].Description)
	stored, _ := f.ctl.Find(saved.ID)
	assert.Equal(t, "Serviço", stored.Items[0].Description)
}

type fakeDocs struct{ err error }

func (d fakeDocs) Document(p models.Proposal) (render.Document, error) {
	if d.err != nil {
		return render.Document{}, d.err
	}
	return render.Document{Filename: p.Number + ".pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil
}

type recordingSink struct {
	mu   sync.Mutex
	docs []render.Document
}

func (s *recordingSink) Deliver(_ context.Context, doc render.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return "/exports/" + doc.Filename, nil
}

func TestExport(t *testing.T) {
	sink := &recordingSink{}
	f := newFixture(t, Options{Documents: fakeDocs{}, Sink: sink})
	saved := f.saveProposal(t, "Cliente", 1, 1)

	ch, err := f.ctl.Export(context.Background(), saved.ID)
	require.NoError(t, err)
	res := <-ch
	require.NoError(t, res.Err)
	assert.Equal(t, "/exports/RMX-00001.pdf", res.Path)
	assert.Len(t, sink.docs, 1)
	assert.False(t, f.ctl.ExportBusy(saved.ID))
	n, _ := f.ctl.Notice()
	assert.Equal(t, "export_done", n.Code)

	_, err = f.ctl.Export(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExportFailure(t *testing.T) {
	f := newFixture(t, Options{Documents: fakeDocs{err: errors.New("font missing")}})
	saved := f.saveProposal(t, "Cliente", 1, 1)
	ch, err := f.ctl.Export(context.Background(), saved.ID)
	require.NoError(t, err)
	res := <-ch
	assert.Error(t, res.Err)
	n, _ := f.ctl.Notice()
	assert.Equal(t, "export_failed", n.Code)
}

func TestPipeline(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	a := f.saveProposal(t, "A", 2, 100)
	b := f.saveProposal(t, "B", 1, 50)
	c := f.saveProposal(t, "C", 1, 25)
	_, err := f.ctl.ChangeStatus(ctx, b.ID, models.StatusClosed)
	require.NoError(t, err)
	_, err = f.ctl.ChangeStatus(ctx, c.ID, models.StatusCancelled)
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)

	pl := f.ctl.Pipeline()
	require.Len(t, pl.Columns, 4)
	assert.Equal(t, models.StatusOpen, pl.Columns[0].Status)
	assert.Equal(t, 1, pl.Columns[0].Count)
	assert.Equal(t, 200.0, pl.Columns[0].Total)
	assert.Equal(t, 0, pl.Columns[1].Count)
	assert.Equal(t, 50.0, pl.Columns[2].Total)
	assert.Equal(t, 1, pl.Columns[3].Count)
	require.Len(t, pl.Pending, 1, "closed and cancelled proposals never need a follow-up")
	assert.Equal(t, a.ID, pl.Pending[0].Proposal.ID)
	assert.Equal(t, 8, pl.Pending[0].DaysSince)
}

func TestNavigation(t *testing.T) {
	f := newFixture(t, Options{})
	saved := f.saveProposal(t, "A", 1, 1)

	_, err := f.ctl.Preview(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, ViewPreview, f.ctl.View())
	sel, ok := f.ctl.Selected()
	require.True(t, ok)
	assert.Equal(t, saved.ID, sel.ID)

	f.ctl.Management()
	assert.Equal(t, ViewManagement, f.ctl.View())
	_, err = f.ctl.Preview("nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.ctl.Edit("nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.ctl.SetDetails(Details{}), ErrNoWorkingCopy)
}
