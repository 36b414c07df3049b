package http

import (
	"net/http"
	"strconv"
	"strings"

	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/services"
)

// formLabels are the update form captions per balance key.
var formLabels = map[string]string{
	"cash":        "Cash & Checking",
	"savings":     "Savings Accounts",
	"investments": "Investments (Stocks, 401k)",
	"realEstate":  "Real Estate / Vehicle Value",
	"creditCards": "Credit Card Debt",
	"loans":       "Personal Loans",
	"mortgage":    "Mortgage Balance",
}

type balanceInput struct {
	Key   string
	Label string
	Value float64
}

type balanceFormView struct {
	Assets      []balanceInput
	Liabilities []balanceInput
	Totals      core.Totals
	AIEnabled   bool
	MagicText   string
	Notice      string
	Error       string
}

type updatePageView struct {
	layout
	Form balanceFormView
}

func newBalanceForm(s core.BalanceSnapshot, aiEnabled bool) balanceFormView {
	v := balanceFormView{Totals: s.Totals(), AIEnabled: aiEnabled}
	for _, f := range core.BalanceFields {
		in := balanceInput{Key: f.Key, Label: formLabels[f.Key], Value: s.Get(f.Key)}
		if f.Liability {
			v.Liabilities = append(v.Liabilities, in)
		} else {
			v.Assets = append(v.Assets, in)
		}
	}
	return v
}

// handleUpdateForm renders the balance form prefilled with the latest snapshot.
func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := s.networth.CurrentBalances(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Loading latest balances failed", log.FieldError, err)
		InternalServerError("Could not load your latest balances").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "update_page", updatePageView{
		layout: s.layout(r, "Update Balances", "update"),
		Form:   newBalanceForm(current, s.networth.AIEnabled()),
	})
}

// handleMagicFill overlays balances extracted from free text onto the posted
// form values and re-renders the form.
func (s *Server) handleMagicFill(w http.ResponseWriter, r *http.Request) {
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()
	current := BalancesFrom(p)
	text := p.Get("magic")

	if strings.TrimSpace(text) == "" {
		form := newBalanceForm(current, s.networth.AIEnabled())
		form.Notice = "Type or paste your monthly update first."
		s.render(w, r, http.StatusOK, "balance_form", form)
		return
	}

	parsed := s.networth.ParseText(ctx, text)
	form := newBalanceForm(services.MergeParsed(current, parsed), s.networth.AIEnabled())
	form.MagicText = text
	if n := countParsed(parsed); n > 0 {
		form.Notice = "Filled " + strconv.Itoa(n) + " field" + plural(n) + " from your notes. Review and save."
	} else {
		form.Notice = "Couldn't find any balances in that text."
	}
	s.render(w, r, http.StatusOK, "balance_form", form)
}

// handleProjectedTotals re-renders the live totals for the posted values.
func (s *Server) handleProjectedTotals(w http.ResponseWriter, r *http.Request) {
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "projected_totals", newBalanceForm(BalancesFrom(p), false))
}

// handleSaveSnapshot records the posted balances as a new history entry.
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()
	entry, err := s.networth.RecordSnapshot(ctx, BalancesFrom(p))
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			if p.IsJSON() {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
				return
			}
			UnprocessableEntityError(msg).Write(w)
			return
		}
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Saving snapshot failed", err, log.OpAppend, nil)
		if p.IsJSON() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not save snapshot"})
			return
		}
		InternalServerError("Could not save your snapshot. Please try again.").Write(w)
		return
	}

	switch {
	case p.IsJSON():
		writeJSON(w, http.StatusCreated, entry)
	case isHTMX(r):
		NewHTMXResponse().
			Redirect("/").
			TriggerSnapshotRecorded(entry.ID).
			Write(w)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func countParsed(p core.ParsedBalances) int {
	n := 0
	for _, v := range []*float64{p.Cash, p.Savings, p.Investments, p.RealEstate, p.CreditCards, p.Loans, p.Mortgage} {
		if v != nil {
			n++
		}
	}
	return n
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
