package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/phone"
)

const maxLeadBody = 16 << 10

type leadsHandler struct {
	store lead.Store
}

type createLeadRequest struct {
	Name     *string `json:"name"`
	LastName *string `json:"last_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

func (h *leadsHandler) list(w http.ResponseWriter, r *http.Request) {
	leads, err := h.store.List(r.Context())
	if err != nil {
		logger.Error(r.Context(), "http", "leads.list_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		writeError(w, http.StatusInternalServerError, "No se pudieron leer los leads.")
		return
	}
	if leads == nil {
		leads = []lead.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *leadsHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createLeadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLeadBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Cuerpo JSON inválido.")
		return
	}
	if missing := missingFields(req); len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "Faltan campos: "+strings.Join(missing, ", "))
		return
	}

	normalized, err := phone.Validate(*req.Phone)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := h.store.Commit(ctx, lead.Candidate{
		Name:     *req.Name,
		LastName: *req.LastName,
		Phone:    normalized,
		Address:  *req.Address,
	})
	switch {
	case errors.Is(err, lead.ErrDuplicatePhone):
		writeError(w, http.StatusConflict, "Ya existe un lead con ese teléfono.")
		return
	case err != nil:
		attrs := []slog.Attr{slog.String("err", logger.SanitizeLimit(err.Error(), 256))}
		var pe *lead.PersistenceError
		if errors.As(err, &pe) {
			attrs = append(attrs, slog.String("op", pe.Op))
		}
		logger.Error(ctx, "http", "leads.commit_failed", attrs...)
		writeError(w, http.StatusInternalServerError, "No se pudo guardar el lead.")
		return
	}

	logger.Info(ctx, "http", "leads.created",
		slog.String("status", "ok"),
		slog.String("lead_id", saved.ID),
	)
	writeJSON(w, http.StatusCreated, saved)
}

func missingFields(req createLeadRequest) []string {
	var missing []string
	if req.Name == nil {
		missing = append(missing, "name")
	}
	if req.LastName == nil {
		missing = append(missing, "last_name")
	}
	if req.Phone == nil {
		missing = append(missing, "phone")
	}
	if req.Address == nil {
		missing = append(missing, "address")
	}
	return missing
}
