// Account handlers: create, list, get, and per-account transaction history.
package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sehyunkim/finbook/internal/service/account"
)

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyPostAccount)
	in, ok := v.(account.CreateInput)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated request missing"})
		return
	}
	acc, err := s.accountSvc.Create(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err, "could not create account")
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// listAccounts handles GET /accounts?user_id=
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyListAccounts)
	q, ok := v.(userQuery)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated query missing"})
		return
	}
	accs, err := s.accountSvc.List(r.Context(), q.UserID)
	if err != nil {
		writeDomainErr(w, err, "could not fetch accounts")
		return
	}
	out := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

// getAccount handles GET /accounts/{id}?user_id=...
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.pathIDAndUser(w, r, "invalid account id")
	if !ok {
		return
	}
	acc, err := s.accountSvc.Get(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err, "failed to load account")
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// listAccountTransactions handles GET /accounts/{id}/transactions?user_id=...
func (s *Server) listAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.pathIDAndUser(w, r, "invalid account id")
	if !ok {
		return
	}
	txs, err := s.ledgerSvc.ListForAccount(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err, "failed to load transactions")
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

// pathIDAndUser parses the {id} path param and the user_id query param.
func (s *Server) pathIDAndUser(w http.ResponseWriter, r *http.Request, badID string) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: badID})
		return uuid.Nil, uuid.Nil, false
	}
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
		return uuid.Nil, uuid.Nil, false
	}
	if !subjectMayAccess(r, userID) {
		writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
		return uuid.Nil, uuid.Nil, false
	}
	return id, userID, true
}
