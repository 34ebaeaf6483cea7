package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
)

const dateLayout = "2006-01-02"

// parseDate accepts RFC3339 or a plain calendar date.
func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be RFC3339 or YYYY-MM-DD")
	}
	return &t, nil
}

func filtersFromQuery(q url.Values) (domain.CaseFilters, error) {
	f := domain.CaseFilters{
		Search:     q.Get("search"),
		Status:     q.Get("status"),
		Channel:    q.Get("channel"),
		AssignedTo: q.Get("assigned_to"),
	}
	var err error
	if f.DateFrom, err = parseDate("date_from", q.Get("date_from")); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate("date_to", q.Get("date_to")); err != nil {
		return f, err
	}
	return f, nil
}

type filtersBody struct {
	Search     string `json:"search"`
	Status     string `json:"status"`
	Channel    string `json:"channel"`
	AssignedTo string `json:"assigned_to"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
}

func (b filtersBody) toFilters() (domain.CaseFilters, error) {
	return filtersFromQuery(url.Values{
		"search":      {b.Search},
		"status":      {b.Status},
		"channel":     {b.Channel},
		"assigned_to": {b.AssignedTo},
		"date_from":   {b.DateFrom},
		"date_to":     {b.DateTo},
	})
}

func (h *APIHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	cases, err := h.svc.Cases.ListCases(r.Context(), filters)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if cases == nil {
		cases = []domain.Case{}
	}
	writeJSON(w, h.logger, http.StatusOK, cases)
}

func (h *APIHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.svc.Cases.GetCase(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

func (h *APIHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var c domain.Case
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c.ID = 0
	if err := h.svc.Cases.CreateCase(r.Context(), &c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, c)
}

// caseUpdateBody carries the id for clients that send it in the body instead
// of the path.
type caseUpdateBody struct {
	ID int64 `json:"id"`
	domain.CaseUpdate
}

func (h *APIHandler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	var body caseUpdateBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := body.ID
	if raw := r.PathValue("id"); raw != "" {
		var err error
		if id, err = int64Param(r, "id", "id"); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	if id <= 0 {
		writeError(w, h.logger, domain.NewValidationError("id", "Case ID is required"))
		return
	}

	c, err := h.svc.Cases.UpdateCase(r.Context(), id, body.CaseUpdate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, c)
}

func (h *APIHandler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.Cases.DeleteCase(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("case_id")
	caseID, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil {
		writeError(w, h.logger, domain.NewValidationError("case_id", "Case ID is required"))
		return
	}
	notes, err := h.svc.Notes.ListNotes(r.Context(), caseID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	writeJSON(w, h.logger, http.StatusOK, notes)
}

type noteBody struct {
	ID      int64  `json:"id"`
	CaseID  int64  `json:"case_id"`
	Content string `json:"content"`
}

func (h *APIHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var body noteBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	note, err := h.svc.Notes.CreateNote(r.Context(), body.CaseID, callerID(r), body.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, note)
}

func (h *APIHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var body noteBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := body.ID
	if r.PathValue("id") != "" {
		var err error
		if id, err = int64Param(r, "id", "id"); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	if id <= 0 {
		writeError(w, h.logger, domain.NewValidationError("id", "Note ID is required"))
		return
	}
	note, err := h.svc.Notes.UpdateNote(r.Context(), id, callerID(r), body.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, note)
}

func (h *APIHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.Notes.DeleteNote(r.Context(), id, callerID(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
