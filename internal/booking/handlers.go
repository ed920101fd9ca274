package booking

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"receiving/internal/api"
)

type Handlers struct {
	Service *Service
	Log     *logrus.Logger
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Service.ListBookings(r.Context(), Filter{
		Status:    strings.TrimSpace(q.Get("status")),
		ClientRef: strings.TrimSpace(q.Get("client")),
		Date:      strings.TrimSpace(q.Get("date")),
		Month:     strings.TrimSpace(q.Get("month")),
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.SearchBookings(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.Service.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, res)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInput
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.Service.UpdateBooking(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := h.Service.SetStatus(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.Status))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) History(w http.ResponseWriter, r *http.Request) {
	v, err := h.Service.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, v)
}

func (h Handlers) AppendEntry(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryInput
	if !decodeBody(w, r, &req) {
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	e, err := h.Service.AppendHistoryEntry(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"entry": e})
}

func (h Handlers) EditEntry(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(chi.URLParam(r, "index"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	var req EntryEditInput
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.Service.EditHistoryEntry(r.Context(), chi.URLParam(r, "id"), idx, req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"entry": e})
}

func (h Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(chi.URLParam(r, "index"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	e, err := h.Service.DeleteHistoryEntry(r.Context(), chi.URLParam(r, "id"), idx)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"removedEntry": e})
}

func (h Handlers) ResetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ResetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h Handlers) Audit(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.AuditTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ValidationError{Code: CodeInvalidIndex, Message: "history index must be an integer: " + s}
	}
	return idx, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		api.WriteError(w, http.StatusBadRequest, CodeValidationFailed, "invalid json")
		return false
	}
	return true
}

func (h Handlers) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		api.WriteError(w, http.StatusBadRequest, verr.Code, verr.Message)
	case errors.Is(err, ErrNotFound):
		api.WriteError(w, http.StatusNotFound, api.CodeNotFound, err.Error())
	default:
		if h.Log != nil {
			fields := logrus.Fields{
				"module":    "booking",
				"method":    r.Method,
				"path":      r.URL.Path,
				"requestId": api.RequestIDFromContext(r.Context()),
			}
			if id := api.IdentityFromContext(r.Context()); id != nil {
				fields["subject"] = id.Subject
			}
			h.Log.WithFields(fields).WithError(err).Error("request failed")
		}
		api.WriteError(w, http.StatusInternalServerError, api.CodeInternal, "internal error")
	}
}
