package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"go.uber.org/zap"
)

const (
	lookupGetHint  = "Please provide a phone number in the query parameter: ?phone=+391234567890"
	lookupPostHint = `Please provide a phone number in request body: {"phone": "+391234567890"}`
)

type lookupPatient struct {
	Name      string  `json:"name"`
	Phone     *string `json:"phone"`
	HomePhone *string `json:"home_phone"`
	CellPhone *string `json:"cell_phone"`
	Email     *string `json:"email"`
}

type lookupCase struct {
	Status       domain.CaseStatus `json:"status"`
	Clinic       string            `json:"clinic"`
	Treatment    *string           `json:"treatment"`
	Disposition  *string           `json:"disposition"`
	Outcome      *string           `json:"outcome"`
	CreatedAt    time.Time         `json:"created_at"`
	FollowUpDate *time.Time        `json:"follow_up_date"`
}

type lookupResponse struct {
	Found         bool          `json:"found"`
	CaseID        int64         `json:"case_id"`
	Patient       lookupPatient `json:"patient"`
	Case          lookupCase    `json:"case"`
	ScreenPopURL  string        `json:"screen_pop_url"`
	PhoneSearched string        `json:"phone_searched"`
}

type lookupMiss struct {
	Found   bool   `json:"found"`
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

func (h *APIHandler) LookupGet(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, r.URL.Query().Get("phone"), lookupGetHint)
}

func (h *APIHandler) LookupPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.lookup(w, r, body.Phone, lookupPostHint)
}

func (h *APIHandler) lookup(w http.ResponseWriter, r *http.Request, raw, hint string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, errorBody{Error: "Phone number is required", Message: hint})
		return
	}

	res, err := h.svc.Lookup.Lookup(r.Context(), raw)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, h.logger, http.StatusNotFound, lookupMiss{
			Found:   false,
			Message: "No case found for phone number: " + raw,
			Phone:   raw,
		})
		return
	case domain.IsValidation(err):
		writeJSON(w, h.logger, http.StatusBadRequest, errorBody{Error: "Phone number is required", Message: hint})
		return
	case err != nil:
		writeError(w, h.logger, err)
		return
	}

	c := res.Case
	writeJSON(w, h.logger, http.StatusOK, lookupResponse{
		Found:  true,
		CaseID: c.ID,
		Patient: lookupPatient{
			Name:      strings.TrimSpace(c.FirstName + " " + c.LastName),
			Phone:     c.Phone,
			HomePhone: c.HomePhone,
			CellPhone: c.CellPhone,
			Email:     c.Email,
		},
		Case: lookupCase{
			Status:       c.Status,
			Clinic:       c.Clinic,
			Treatment:    c.Treatment,
			Disposition:  c.Disposition,
			Outcome:      c.Outcome,
			CreatedAt:    c.CreatedAt,
			FollowUpDate: c.FollowUpDate,
		},
		ScreenPopURL:  res.ScreenPopURL,
		PhoneSearched: raw,
	})
}

func (h *APIHandler) ExportGet(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.export(w, r, filters)
}

func (h *APIHandler) ExportPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filters filtersBody `json:"filters"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	filters, err := body.Filters.toFilters()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.export(w, r, filters)
}

// export renders into a buffer so a failing query still yields a JSON error
// instead of a truncated file.
func (h *APIHandler) export(w http.ResponseWriter, r *http.Request, filters domain.CaseFilters) {
	var buf bytes.Buffer
	n, err := h.svc.Export.ExportCSV(r.Context(), filters, &buf)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	name := "cases-export-" + h.now().UTC().Format(dateLayout) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("X-Export-Rows", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write export", zap.Error(err))
	}
}

type dialerResponse struct {
	Success bool                `json:"success"`
	Leads   []domain.DialerLead `json:"leads"`
	Count   int                 `json:"count"`
}

func (h *APIHandler) DialerLeads(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CampaignTag string `json:"campaign_tag_filter"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	leads, err := h.svc.Dialer.Leads(r.Context(), body.CampaignTag)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if leads == nil {
		leads = []domain.DialerLead{}
	}
	writeJSON(w, h.logger, http.StatusOK, dialerResponse{Success: true, Leads: leads, Count: len(leads)})
}

// Logout revokes the caller's session cookie.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	if p == nil || p.Mode != domain.AuthModeSession {
		writeError(w, h.logger, domain.Forbidden("logout requires a session"))
		return
	}
	c, err := r.Cookie(h.auth.CookieName())
	if err == nil && h.sessions != nil {
		if err := h.sessions.Revoke(r.Context(), c.Value); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
