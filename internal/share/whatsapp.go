// Package share composes the chat messages sent to clients and the
// WhatsApp deep links that carry them.
package share

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diewo77/go-proposals/internal/models"
	"github.com/diewo77/go-proposals/internal/render"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	sendURL       = "https://api.whatsapp.com/send"
	countryCode   = "55"
	summaryLength = 50
)

// Composer writes messages signed with the company brand.
type Composer struct {
	brand string
}

// NewComposer title-cases the company name: "RAIMUNDIX" reads "Raimundix".
func NewComposer(companyName string) Composer {
	if companyName == "" {
		companyName = "Raimundix"
	}
	return Composer{brand: cases.Title(language.BrazilianPortuguese).String(companyName)}
}

// ShareMessage summarizes the proposal for the client.
func (c Composer) ShareMessage(p models.Proposal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Orçamento %s: %s*\n\n", c.brand, p.Number)
	fmt.Fprintf(&b, "*Cliente:* %s\n", p.Client)
	fmt.Fprintf(&b, "*Data:* %s\n", p.Date)
	fmt.Fprintf(&b, "*Total:* %s\n\n", render.Money(p.Total()))
	b.WriteString("*Resumo dos Serviços:*\n")
	for i, item := range p.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %sx %s", formatQty(item.Quantity), truncate(item.Description, summaryLength))
	}
	b.WriteString("\n\n*Condições:*\n")
	fmt.Fprintf(&b, "- Entrega: %s\n", p.DeliveryTerms)
	fmt.Fprintf(&b, "- Pagamento: %s\n\n", p.PaymentTerms)
	b.WriteString("_Obrigado pela preferência!_")
	return b.String()
}

// FollowUpMessage asks the client about a proposal still waiting for an answer.
func (c Composer) FollowUpMessage(p models.Proposal, now time.Time) string {
	name := p.Contact
	if name == "" {
		name = p.Client
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s! Tudo bem?\n\n", name)
	fmt.Fprintf(&b, "Aqui é da *%s*. Estou passando para saber se conseguiu avaliar o orçamento *%s*", c.brand, p.Number)
	if p.Client != "" && p.Client != name {
		fmt.Fprintf(&b, " para *%s*", p.Client)
	}
	fmt.Fprintf(&b, ", no valor de *%s*.\n", render.Money(p.Total()))
	if days := p.DaysSinceFollowUp(now); days > 0 {
		fmt.Fprintf(&b, "Já faz %d %s desde o nosso último contato.\n", days, plural(days, "dia", "dias"))
	}
	b.WriteString("\nFico à disposição para ajustar o que for preciso!")
	return b.String()
}

// NormalizePhone keeps the digits of raw and prefixes the Brazilian country
// code when missing. Empty or malformed input is not rejected.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	// national numbers have 10 or 11 digits; anything longer already
	// carries a country code
	if strings.HasPrefix(d, countryCode) && len(d) > 11 {
		return d
	}
	return countryCode + d
}

// Link builds the deep link that opens a chat with text prefilled. Without
// a phone the user picks the recipient in the app.
func Link(phone, text string) string {
	q := url.Values{}
	if p := NormalizePhone(phone); p != "" {
		q.Set("phone", p)
	}
	q.Set("text", text)
	return sendURL + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
