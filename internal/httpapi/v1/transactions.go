// Transaction handlers: create with idempotency replay, list, get.
package v1

import (
	"net/http"

	"github.com/sehyunkim/finbook/internal/service/ledger"
)

func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyPostTransaction)
	in, ok := v.(ledger.CreateInput)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated request missing"})
		return
	}

	// Idempotency-Key replay: the original transaction is returned verbatim.
	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		if prev, found, err := s.idemStore.GetTransactionByIdempotencyKey(r.Context(), in.UserID, key); err == nil && found {
			toJSON(w, http.StatusOK, toTransactionResponse(prev))
			return
		}
	}

	tx, err := s.ledgerSvc.Create(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err, "could not persist transaction")
		return
	}
	if key != "" {
		if err := s.idemStore.SaveIdempotencyKey(r.Context(), in.UserID, key, tx.ID); err != nil {
			s.log.Error("save idempotency key", "err", err, "key", key)
		}
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// listTransactions handles GET /transactions?user_id=
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyListTransactions)
	q, ok := v.(userQuery)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated query missing"})
		return
	}
	txs, err := s.ledgerSvc.List(r.Context(), q.UserID)
	if err != nil {
		writeDomainErr(w, err, "could not fetch transactions")
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

// getTransaction handles GET /transactions/{id}?user_id=
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.pathIDAndUser(w, r, "invalid transaction id")
	if !ok {
		return
	}
	tx, err := s.ledgerSvc.Get(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err, "failed to load transaction")
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(tx))
}
