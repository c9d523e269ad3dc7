// Sentiment handlers: analyze a transaction note and read stored verdicts.
package v1

import (
	"net/http"

	"github.com/sehyunkim/finbook/internal/service/sentiment"
)

func (s *Server) analyzeSentiment(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyAnalyzeSentiment)
	in, ok := v.(sentiment.AnalyzeInput)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated request missing"})
		return
	}
	sa, err := s.sentimentSvc.Analyze(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err, "could not analyze sentiment")
		return
	}
	toJSON(w, http.StatusCreated, toSentimentResponse(sa))
}

// listSentiments handles GET /sentiment?user_id=
func (s *Server) listSentiments(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyListSentiments)
	q, ok := v.(userQuery)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated query missing"})
		return
	}
	verdicts, err := s.sentimentSvc.List(r.Context(), q.UserID)
	if err != nil {
		writeDomainErr(w, err, "could not fetch sentiments")
		return
	}
	out := make([]sentimentResponse, 0, len(verdicts))
	for _, sa := range verdicts {
		out = append(out, toSentimentResponse(sa))
	}
	toJSON(w, http.StatusOK, out)
}

// getTransactionSentiment handles GET /transactions/{id}/sentiment?user_id=
func (s *Server) getTransactionSentiment(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := s.pathIDAndUser(w, r, "invalid transaction id")
	if !ok {
		return
	}
	sa, err := s.sentimentSvc.Get(r.Context(), userID, id)
	if err != nil {
		writeDomainErr(w, err, "failed to load sentiment")
		return
	}
	toJSON(w, http.StatusOK, toSentimentResponse(sa))
}
