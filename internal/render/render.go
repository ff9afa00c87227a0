package render

import (
	"embed"
	"html/template"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"donationBoard/internal/model"
	"donationBoard/internal/stats"
)

const (
	PageTemplate = "index.html"
	EmptyMessage = "Nenhum evento encontrado. 😕"
)

//go:embed templates/*.html
var templates embed.FS

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Card is one event as shown in the list. Controls refer to the event by ID.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"nome"`
	Goal      string `json:"meta"`
	Raised    string `json:"arrecadado"`
	Progress  int    `json:"progresso"`
	Donations int    `json:"doacoes"`
	CanEdit   bool   `json:"editar"`
	CanDelete bool   `json:"excluir"`
}

type Summary struct {
	Events          int    `json:"eventos"`
	TotalRaised     string `json:"arrecadado"`
	Donations       int    `json:"doacoes"`
	AverageDonation string `json:"media"`
}

type Page struct {
	Query       string  `json:"busca"`
	Admin       bool    `json:"admin"`
	Cards       []Card  `json:"cards"`
	Placeholder string  `json:"placeholder,omitempty"`
	Summary     Summary `json:"estatisticas"`
	Notice      string  `json:"aviso,omitempty"`
}

// Currency formats an amount as Brazilian reais with two decimals.
func Currency(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}

// Cards projects events into cards. Edit and delete controls only appear in admin
// mode; the data shown is the same either way.
func Cards(events []model.Event, admin bool) []Card {
	cards := make([]Card, 0, len(events))
	for _, e := range events {
		cards = append(cards, Card{
			ID:        e.ID,
			Name:      e.Name,
			Goal:      Currency(e.Goal),
			Raised:    Currency(e.Raised),
			Progress:  progress(e.Raised, e.Goal),
			Donations: len(e.Donations),
			CanEdit:   admin,
			CanDelete: admin,
		})
	}
	return cards
}

func SummaryOf(s stats.Stats) Summary {
	return Summary{
		Events:          s.Events,
		TotalRaised:     Currency(s.TotalRaised),
		Donations:       s.Donations,
		AverageDonation: Currency(s.AverageDonation),
	}
}

// NewPage builds the list view. Statistics always cover the whole collection, not
// just the filtered events. An empty list gets the placeholder instead of cards.
func NewPage(events []model.Event, all stats.Stats, query string, admin bool, notice string) Page {
	p := Page{
		Query:   query,
		Admin:   admin,
		Cards:   Cards(events, admin),
		Summary: SummaryOf(all),
		Notice:  notice,
	}
	if len(p.Cards) == 0 {
		p.Placeholder = EmptyMessage
	}
	return p
}

func Template() (*template.Template, error) {
	return template.New(PageTemplate).ParseFS(templates, "templates/*.html")
}

func progress(raised, goal float64) int {
	if goal <= 0 {
		return 0
	}
	pct := math.Floor(raised / goal * 100)
	if pct > 100 {
		return 100
	}
	return int(pct)
}
