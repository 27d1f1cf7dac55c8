package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/debtwiser/internal/export"
	"github.com/mmynk/debtwiser/internal/middleware"
	"github.com/mmynk/debtwiser/internal/models"
	"github.com/mmynk/debtwiser/internal/service"
)

type exportBody struct {
	Message string          `json:"message"`
	Format  export.Format   `json:"format"`
	Data    []export.Record `json:"data"`
}

func statusFilter(r *http.Request) (models.StatusFilter, error) {
	f, err := models.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		return "", wrapBadRequest(err)
	}
	return f, nil
}

func (h *handler) listDebts(w http.ResponseWriter, r *http.Request) {
	filter, err := statusFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	debts, err := h.debts.ListByUser(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.debts.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) exportDebts(w http.ResponseWriter, r *http.Request) {
	filter, err := statusFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out, err := h.debts.Export(r.Context(), middleware.GetUserID(r.Context()), filter, r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if out.Format == export.FormatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="debts.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.CSV)
		return
	}
	writeJSON(w, http.StatusOK, exportBody{
		Message: "export completed",
		Format:  out.Format,
		Data:    out.Records,
	})
}

func (h *handler) getDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.GetOne(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (h *handler) createDebt(w http.ResponseWriter, r *http.Request) {
	var in service.CreateDebtInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	debt, err := h.debts.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageBody{Message: "debt created", Debt: debt})
}

func (h *handler) updateDebt(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateDebtInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	debt, err := h.debts.Update(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "debt updated", Debt: debt})
}

func (h *handler) payDebt(w http.ResponseWriter, r *http.Request) {
	debt, err := h.debts.Pay(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "debt paid", Debt: debt})
}

func (h *handler) deleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.debts.Remove(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "debt deleted"})
}
