package http

import (
	"errors"
	"net/http"

	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/services"

	"github.com/go-chi/chi/v5"
)

type billsView struct {
	layout
	Bills   []core.Bill
	Summary core.BillSummary
	Error   string
	Form    services.BillInput
}

func (s *Server) billsView(r *http.Request) (billsView, error) {
	bills, err := s.bills.List(r.Context())
	if err != nil {
		return billsView{}, err
	}
	return billsView{
		layout:  s.layout(r, "Monthly Bills", "bills"),
		Bills:   bills,
		Summary: core.SummarizeBills(bills),
	}, nil
}

// handleBills renders the checklist page.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	view, err := s.billsView(r)
	if err != nil {
		s.billsFailed(w, r, "Loading bills failed", log.OpList, err)
		return
	}
	s.render(w, r, http.StatusOK, "bills_page", view)
}

func (s *Server) handleAddBill(w http.ResponseWriter, r *http.Request) {
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	ctx := r.Context()
	in := BillInputFrom(p)
	bill, err := s.bills.Add(ctx, in)
	if err != nil {
		msg, ok := validationMessage(err)
		if !ok {
			s.billsFailed(w, r, "Adding bill failed", log.OpCreate, err)
			return
		}
		if p.IsJSON() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
			return
		}
		view, lerr := s.billsView(r)
		if lerr != nil {
			s.billsFailed(w, r, "Loading bills failed", log.OpList, lerr)
			return
		}
		view.Error = msg
		view.Form = in
		s.renderBills(w, r, http.StatusUnprocessableEntity, view, nil)
		return
	}

	if p.IsJSON() {
		writeJSON(w, http.StatusCreated, bill)
		return
	}
	s.billsChanged(w, r, "Added "+bill.Name)
}

func (s *Server) handleToggleBill(w http.ResponseWriter, r *http.Request) {
	if _, err := s.bills.Toggle(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.billsFailed(w, r, "Toggling bill failed", log.OpToggle, err)
		return
	}
	s.billsChanged(w, r, "")
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.bills.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.billsFailed(w, r, "Deleting bill failed", log.OpDelete, err)
		return
	}
	s.billsChanged(w, r, "Bill removed")
}

func (s *Server) handleResetBills(w http.ResponseWriter, r *http.Request) {
	if err := s.bills.ResetMonth(r.Context()); err != nil {
		s.billsFailed(w, r, "Resetting bills failed", log.OpReset, err)
		return
	}
	s.billsChanged(w, r, "All bills marked unpaid for the new month")
}

// billsChanged answers a successful mutation: HTMX clients get the refreshed
// list fragment, plain form posts are redirected back to the page.
func (s *Server) billsChanged(w http.ResponseWriter, r *http.Request, notice string) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/bills", http.StatusSeeOther)
		return
	}
	view, err := s.billsView(r)
	if err != nil {
		s.billsFailed(w, r, "Loading bills failed", log.OpList, err)
		return
	}
	b := NewHTMXResponse().TriggerBillsChanged()
	if notice != "" {
		b.TriggerSuccessNotification(notice)
	}
	s.renderBills(w, r, http.StatusOK, view, b)
}

func (s *Server) renderBills(w http.ResponseWriter, r *http.Request, status int, view billsView, b *HTMXResponseBuilder) {
	if b == nil {
		b = NewHTMXResponse()
	}
	b.Status(status)
	name := "bills_page"
	if isHTMX(r) {
		name = "bill_list"
	}
	s.renderResponse(w, r, b, name, view)
}

func (s *Server) billsFailed(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	if errors.Is(err, core.ErrBillNotFound) {
		NotFoundError("That bill no longer exists").Write(w)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, op, nil)
	InternalServerError("Could not update your bills. Please try again.").Write(w)
}
