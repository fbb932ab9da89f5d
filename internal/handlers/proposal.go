package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-proposals/internal/httpx"
	"github.com/diewo77/go-proposals/internal/middleware"
	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/render"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/diewo77/go-proposals/internal/services"
	"github.com/diewo77/go-proposals/internal/share"
	"github.com/diewo77/go-proposals/internal/validation"
	"github.com/diewo77/go-proposals/internal/view"
	"go.uber.org/zap"
)

// DefaultRewriteWait bounds how long a rewrite request blocks before the
// form is shown again with the item still marked busy.
const DefaultRewriteWait = 15 * time.Second

// ProposalHandler serves every proposal screen. Each route answers HTML or
// JSON depending on the Accept header.
type ProposalHandler struct {
	ctl         *services.Controller
	company     models.Company
	printer     *render.HTMLRenderer
	composer    share.Composer
	log         *zap.Logger
	now         func() time.Time
	rewriteWait time.Duration
}

func NewProposalHandler(ctl *services.Controller, company models.Company, log *zap.Logger) *ProposalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProposalHandler{
		ctl:         ctl,
		company:     company,
		printer:     render.NewHTMLRenderer(company, render.HTMLOptions{AutoPrint: true, WebFont: true}),
		composer:    share.NewComposer(company.Name),
		log:         log,
		now:         time.Now,
		rewriteWait: DefaultRewriteWait,
	}
}

// SetRewriteWait overrides DefaultRewriteWait.
func (h *ProposalHandler) SetRewriteWait(d time.Duration) {
	h.rewriteWait = d
}

// Register mounts the proposal routes on mux.
func (h *ProposalHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /proposals", h.Dashboard)
	mux.HandleFunc("GET /proposals/new", h.New)
	mux.HandleFunc("GET /proposals/{id}", h.Preview)
	mux.HandleFunc("GET /proposals/{id}/edit", h.Edit)
	mux.HandleFunc("GET /proposals/{id}/print", h.Print)
	mux.HandleFunc("GET /proposals/{id}/pdf", h.PDF)
	mux.HandleFunc("GET /proposals/{id}/share", h.Share)
	mux.HandleFunc("POST /proposals/{id}/follow-up", h.FollowUp)
	mux.HandleFunc("POST /proposals/{id}/status", h.Status)
	mux.HandleFunc("POST /proposals/{id}/delete", h.Delete)

	mux.HandleFunc("GET /form", h.Form)
	mux.HandleFunc("POST /form", h.Apply)
	mux.HandleFunc("POST /form/save", h.Save)
	mux.HandleFunc("POST /form/items", h.AddItem)
	mux.HandleFunc("POST /form/items/{item_id}/delete", h.RemoveItem)
	mux.HandleFunc("POST /form/items/{item_id}/rewrite", h.RewriteItem)

	mux.HandleFunc("GET /pipeline", h.Pipeline)
}

// proposalJSON is the API shape of a proposal with its derived values.
type proposalJSON struct {
	models.Proposal
	Total             float64 `json:"total"`
	PendingFollowUp   bool    `json:"pendingFollowUp"`
	DaysSinceFollowUp int     `json:"daysSinceFollowUp"`
}

type columnJSON struct {
	Status models.ProposalStatus `json:"status"`
	Count  int                   `json:"count"`
	Total  float64               `json:"total"`
	Items  []proposalJSON        `json:"items"`
}

func toJSON(r services.Row) proposalJSON {
	return proposalJSON{Proposal: r.Proposal, Total: r.Total, PendingFollowUp: r.Pending, DaysSinceFollowUp: r.DaysSince}
}

func rowsJSON(rows []services.Row) []proposalJSON {
	out := make([]proposalJSON, len(rows))
	for i, r := range rows {
		out[i] = toJSON(r)
	}
	return out
}

func (h *ProposalHandler) row(p models.Proposal) services.Row {
	now := h.now()
	return services.Row{Proposal: p, Total: p.Total(), Pending: p.PendingFollowUp(now), DaysSince: p.DaysSinceFollowUp(now)}
}

// Root: GET /
func (h *ProposalHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/proposals", http.StatusFound)
}

// Dashboard: GET /proposals
func (h *ProposalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.ctl.Dashboard()
	rows := h.ctl.Rows()
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": rowsJSON(rows), "total": len(rows)})
		return
	}
	h.render(w, r, http.StatusOK, "dashboard.html", map[string]any{"Rows": rows})
}

// New: GET /proposals/new
func (h *ProposalHandler) New(w http.ResponseWriter, r *http.Request) {
	p := h.ctl.New()
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.workingJSON(p))
		return
	}
	http.Redirect(w, r, "/form", http.StatusSeeOther)
}

// Edit: GET /proposals/{id}/edit
func (h *ProposalHandler) Edit(w http.ResponseWriter, r *http.Request) {
	p, err := h.ctl.Edit(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.workingJSON(p))
		return
	}
	http.Redirect(w, r, "/form", http.StatusSeeOther)
}

// Form: GET /form
func (h *ProposalHandler) Form(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ctl.Working()
	if !ok {
		h.fail(w, r, services.ErrNoWorkingCopy, "/proposals")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.workingJSON(p))
		return
	}
	h.renderForm(w, r, http.StatusOK, p, validation.Violations{})
}

// Apply: POST /form
func (h *ProposalHandler) Apply(w http.ResponseWriter, r *http.Request) {
	v, err := h.applyForm(r)
	if err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	h.afterEdit(w, r, v, "/form")
}

// Save: POST /form/save
func (h *ProposalHandler) Save(w http.ResponseWriter, r *http.Request) {
	v, err := h.applyForm(r)
	if err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	if !v.Empty() {
		h.afterEdit(w, r, v, "/form")
		return
	}
	p, err := h.ctl.Save(r.Context())
	var violations validation.Violations
	if errors.As(err, &violations) {
		h.afterEdit(w, r, violations, "/form")
		return
	}
	if err != nil {
		h.fail(w, r, err, "/form")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, toJSON(h.row(p)))
		return
	}
	http.Redirect(w, r, "/proposals", http.StatusSeeOther)
}

// AddItem: POST /form/items
func (h *ProposalHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.applyForm(r); err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	item, err := h.ctl.AddItem()
	if err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, item)
		return
	}
	http.Redirect(w, r, "/form#item-"+item.ID, http.StatusSeeOther)
}

// RemoveItem: POST /form/items/{item_id}/delete
func (h *ProposalHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.applyForm(r); err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	if err := h.ctl.RemoveItem(r.PathValue("item_id")); err != nil {
		// The controller already posted the last_item notice.
		if errors.Is(err, models.ErrLastItem) && !httpx.WantsJSON(r) {
			http.Redirect(w, r, "/form", http.StatusSeeOther)
			return
		}
		h.fail(w, r, err, "/form")
		return
	}
	h.afterEdit(w, r, nil, "/form")
}

// RewriteItem: POST /form/items/{item_id}/rewrite
//
// The rewrite keeps running when the wait expires or the client leaves; the
// form then shows the item as busy until the result lands.
func (h *ProposalHandler) RewriteItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.applyForm(r); err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	itemID := r.PathValue("item_id")
	ch, err := h.ctl.RewriteItem(r.Context(), itemID)
	if err != nil {
		h.fail(w, r, err, "/form")
		return
	}

	timer := time.NewTimer(h.rewriteWait)
	defer timer.Stop()
	select {
	case res := <-ch:
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"itemId":    res.ItemID,
				"text":      res.Outcome.Text,
				"rewritten": res.Outcome.Rewritten,
				"reason":    res.Outcome.Reason,
				"applied":   res.Applied,
			})
			return
		}
	case <-timer.C:
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusAccepted, map[string]any{"itemId": itemID, "status": "pending"})
			return
		}
		middleware.Flash(w, r, "rewrite_pending")
	case <-r.Context().Done():
		return
	}
	http.Redirect(w, r, "/form#item-"+itemID, http.StatusSeeOther)
}

// Preview: GET /proposals/{id}
func (h *ProposalHandler) Preview(w http.ResponseWriter, r *http.Request) {
	p, err := h.ctl.Preview(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	row := h.row(p)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, toJSON(row))
		return
	}
	h.render(w, r, http.StatusOK, "preview.html", map[string]any{"Row": row})
}

// Print: GET /proposals/{id}/print serves the standalone printable document.
func (h *ProposalHandler) Print(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ctl.Find(r.PathValue("id"))
	if !ok {
		h.fail(w, r, repository.ErrNotFound, "/proposals")
		return
	}
	doc, err := h.printer.Render(p)
	if err != nil {
		h.log.Error("print render failed", zap.String("id", p.ID), zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "render_failed", nil)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	_, _ = w.Write(doc.Body)
}

// PDF: GET /proposals/{id}/pdf downloads the PDF. When an export sink is
// configured the file is also stored there.
func (h *ProposalHandler) PDF(w http.ResponseWriter, r *http.Request) {
	ch, err := h.ctl.Export(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	var res services.ExportResult
	select {
	case res = <-ch:
	case <-r.Context().Done():
		return
	}
	if len(res.Document.Body) == 0 {
		httpx.JSONError(w, http.StatusInternalServerError, "export_failed", nil)
		return
	}
	if res.Err != nil {
		// rendering worked; only the local copy failed
		h.log.Warn("serving pdf without local copy", zap.String("id", res.ProposalID), zap.Error(res.Err))
	}
	w.Header().Set("Content-Type", res.Document.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Document.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Document.Body)))
	_, _ = w.Write(res.Document.Body)
}

// Share: GET /proposals/{id}/share redirects to the WhatsApp share link.
func (h *ProposalHandler) Share(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ctl.Find(r.PathValue("id"))
	if !ok {
		h.fail(w, r, repository.ErrNotFound, "/proposals")
		return
	}
	link := share.Link(p.Phone, h.composer.ShareMessage(p))
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"url": link})
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

// FollowUp: POST /proposals/{id}/follow-up records the contact and opens
// the follow-up message. The message counts the days up to this contact.
func (h *ProposalHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	before, ok := h.ctl.Find(id)
	if !ok {
		h.fail(w, r, repository.ErrNotFound, "/proposals")
		return
	}
	msg := h.composer.FollowUpMessage(before, h.now())
	p, err := h.ctl.RecordFollowUp(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/proposals/"+id)
		return
	}
	link := share.Link(p.Phone, msg)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"url": link, "proposal": toJSON(h.row(p))})
		return
	}
	http.Redirect(w, r, link, http.StatusSeeOther)
}

// Status: POST /proposals/{id}/status
func (h *ProposalHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s, err := models.ParseStatus(r.FormValue("status"))
	if err != nil {
		h.fail(w, r, err, "/proposals/"+id)
		return
	}
	p, err := h.ctl.ChangeStatus(r.Context(), id, s)
	if err != nil {
		h.fail(w, r, err, "/proposals/"+id)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, toJSON(h.row(p)))
		return
	}
	http.Redirect(w, r, "/proposals/"+id, http.StatusSeeOther)
}

// Delete: POST /proposals/{id}/delete requires confirm=yes.
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.ctl.Find(id); !ok {
		h.fail(w, r, repository.ErrNotFound, "/proposals")
		return
	}
	if err := h.ctl.Delete(r.Context(), id, r.FormValue("confirm") == "yes"); err != nil {
		h.fail(w, r, err, "/proposals")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		return
	}
	http.Redirect(w, r, "/proposals", http.StatusSeeOther)
}

// Pipeline: GET /pipeline
func (h *ProposalHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	h.ctl.Management()
	pl := h.ctl.Pipeline()
	if httpx.WantsJSON(r) {
		cols := make([]columnJSON, len(pl.Columns))
		for i, c := range pl.Columns {
			cols[i] = columnJSON{Status: c.Status, Count: c.Count, Total: c.Total, Items: rowsJSON(c.Rows)}
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"columns": cols, "pending": rowsJSON(pl.Pending)})
		return
	}
	h.render(w, r, http.StatusOK, "pipeline.html", map[string]any{"Pipeline": pl})
}

// applyForm copies the submitted fields onto the working copy. Fields that
// are absent keep their value; numbers that do not parse are reported and
// left unchanged.
func (h *ProposalHandler) applyForm(r *http.Request) (validation.Violations, error) {
	v := validation.Violations{}
	if err := r.ParseForm(); err != nil {
		return v, err
	}
	p, ok := h.ctl.Working()
	if !ok {
		return v, services.ErrNoWorkingCopy
	}
	form := r.PostForm
	field := func(name, current string) string {
		if vals, ok := form[name]; ok && len(vals) > 0 {
			return vals[0]
		}
		return current
	}
	d := services.Details{
		Client:        field("client", p.Client),
		Contact:       field("contact", p.Contact),
		Phone:         field("phone", p.Phone),
		Address:       field("address", p.Address),
		Salesperson:   field("salesperson", p.Salesperson),
		DeliveryTerms: field("delivery_terms", p.DeliveryTerms),
		PaymentTerms:  field("payment_terms", p.PaymentTerms),
	}
	if err := h.ctl.SetDetails(d); err != nil {
		return v, err
	}

	if raw := strings.TrimSpace(form.Get("status")); raw != "" {
		s, err := models.ParseStatus(raw)
		if err != nil {
			v["status"] = "invalid_status"
		} else if s != p.Status {
			if err := h.ctl.SetStatus(s); err != nil {
				return v, err
			}
		}
	}

	for _, it := range p.Items {
		prefix := "items." + it.ID + "."
		if desc, ok := form[prefix+"description"]; ok && len(desc) > 0 {
			if err := h.ctl.SetItemDescription(it.ID, desc[0]); err != nil {
				return v, err
			}
		}
		if raw, ok := form[prefix+"quantity"]; ok && len(raw) > 0 {
			before := len(v)
			q := validation.ParseFloat(prefix+"quantity", raw[0], v)
			validation.NonNegativeFloat(prefix+"quantity", q, v)
			if len(v) == before {
				err := h.ctl.SetItemQuantity(it.ID, q)
				if errors.Is(err, models.ErrInvalidAmount) {
					v[prefix+"quantity"] = "invalid_number"
				} else if err != nil {
					return v, err
				}
			}
		}
		if raw, ok := form[prefix+"unit_price"]; ok && len(raw) > 0 {
			before := len(v)
			price := validation.ParseFloat(prefix+"unit_price", raw[0], v)
			validation.NonNegativeFloat(prefix+"unit_price", price, v)
			if len(v) == before {
				err := h.ctl.SetItemUnitPrice(it.ID, price)
				if errors.Is(err, models.ErrInvalidAmount) {
					v[prefix+"unit_price"] = "invalid_number"
				} else if err != nil {
					return v, err
				}
			}
		}
	}
	return v, nil
}

// afterEdit answers a form post: the form again with violations, or a
// redirect back to it.
func (h *ProposalHandler) afterEdit(w http.ResponseWriter, r *http.Request, v validation.Violations, back string) {
	p, ok := h.ctl.Working()
	if !ok {
		h.fail(w, r, services.ErrNoWorkingCopy, "/proposals")
		return
	}
	if !v.Empty() {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
			return
		}
		h.renderForm(w, r, http.StatusUnprocessableEntity, p, v)
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.workingJSON(p))
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *ProposalHandler) workingJSON(p models.Proposal) map[string]any {
	busy := map[string]bool{}
	for _, it := range p.Items {
		if h.ctl.ItemBusy(it.ID) {
			busy[it.ID] = true
		}
	}
	return map[string]any{"proposal": toJSON(h.row(p)), "busyItems": busy, "rewriteEnabled": h.ctl.RewriteEnabled()}
}

func (h *ProposalHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, p models.Proposal, v validation.Violations) {
	busy := map[string]bool{}
	for _, it := range p.Items {
		busy[it.ID] = h.ctl.ItemBusy(it.ID)
	}
	h.render(w, r, status, "form.html", map[string]any{
		"Proposal":       p,
		"Errors":         v,
		"Busy":           busy,
		"RewriteEnabled": h.ctl.RewriteEnabled(),
	})
}

// render executes a page into memory first so a template error never
// leaves a half-written response.
func (h *ProposalHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	data["Company"] = h.company
	data["Flash"] = middleware.ConsumeFlash(w, r)
	if n, ok := h.ctl.Notice(); ok {
		data["Notice"] = &n
	}
	var buf strings.Builder
	if err := view.Execute(&buf, r, name, data); err != nil {
		h.log.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// fail maps domain errors to responses. HTML clients get a flash message
// and a redirect to back; unknown proposals get a plain 404.
func (h *ProposalHandler) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, code, nil)
		return
	}
	if status == http.StatusNotFound {
		http.NotFound(w, r)
		return
	}
	middleware.Flash(w, r, code)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, models.ErrItemNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrNoWorkingCopy):
		return http.StatusConflict, "no_working_copy"
	case errors.Is(err, services.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, models.ErrLastItem):
		return http.StatusConflict, "last_item"
	case errors.Is(err, services.ErrNotConfirmed):
		return http.StatusBadRequest, "confirmation_required"
	case errors.Is(err, models.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, "invalid_status"
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "invalid_number"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "save_failed"
	}
}
