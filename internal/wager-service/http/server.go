package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/wager-pipeline-poc/internal/wager-service/dto"
	"github.com/radieske/wager-pipeline-poc/internal/wager-service/ledger"
)

type WagerService interface {
	PlaceWager(ctx context.Context, req dto.PlaceWagerRequest) (*ledger.Outcome, error)
	GetAccount(ctx context.Context, accountID string) (*ledger.Account, error)
	History(ctx context.Context, q ledger.BetHistoryQuery) ([]ledger.Wager, error)
}

// API expõe POST /wagers e as consultas de conta
type API struct {
	Service WagerService
	Log     *zap.Logger
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/wagers", a.placeWager)              // Debita saldo e registra aposta
	r.Get("/accounts/{id}", a.getAccount)        // Saldo e versão
	r.Get("/accounts/{id}/wagers", a.listWagers) // Histórico paginado
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) placeWager(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.CorrelationID == "" {
		req.CorrelationID = middleware.GetReqID(r.Context())
	}

	out, err := a.Service.PlaceWager(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if out.Rejected != nil {
		writeJSON(w, http.StatusConflict, dto.FromRejected(out.Rejected))
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromAccepted(out.Accepted))
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := accountParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	acc, err := a.Service.GetAccount(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountResponse{AccountID: acc.ID, Balance: acc.Balance, Version: acc.Version})
}

func (a *API) listWagers(w http.ResponseWriter, r *http.Request) {
	id, err := accountParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	q := ledger.BetHistoryQuery{AccountID: id}
	if q.Limit, err = intParam(r, "limit", ledger.DefaultHistoryLimit); err != nil || q.Limit < 1 || q.Limit > ledger.MaxHistoryLimit {
		a.writeError(w, &dto.ValidationError{Field: "limit", Reason: "must be between 1 and 1000"})
		return
	}
	if q.Offset, err = intParam(r, "offset", 0); err != nil || q.Offset < 0 {
		a.writeError(w, &dto.ValidationError{Field: "offset", Reason: "must be zero or positive"})
		return
	}

	ws, err := a.Service.History(r.Context(), q)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromWagers(ws))
}

// accountParam valida o {id} da rota antes de chegar ao banco (coluna UUID no Postgres)
func accountParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", &dto.ValidationError{Field: "account_id", Reason: "must be a UUID"}
	}
	return id, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// writeError traduz a taxonomia de erros do core para status HTTP
func (a *API) writeError(w http.ResponseWriter, err error) {
	var ve *dto.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: "validation failed", Details: ve})
	case errors.Is(err, ledger.ErrInvalidParams):
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "account not found"})
	case ledger.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "ledger temporarily unavailable", Retryable: true})
	default:
		a.Log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
