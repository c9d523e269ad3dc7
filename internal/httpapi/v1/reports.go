// Report handlers: async generation and listing of stored reports.
package v1

import (
	"net/http"
	"time"

	"github.com/sehyunkim/finbook/internal/finance"
)

// generateReport handles POST /reports/generate. The report is built by a
// worker; the handler only enqueues the job and answers 202.
func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyGenerateReport)
	req, ok := v.(generateReportRequest)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated request missing"})
		return
	}

	job, err := s.reportSvc.Enqueue(r.Context(), req.UserID, finance.PeriodKind(req.Period), time.Now())
	if err != nil {
		writeDomainErr(w, err, "could not enqueue report job")
		return
	}
	toJSON(w, http.StatusAccepted, generateReportResponse{
		UserID: req.UserID,
		Period: req.Period,
		JobID:  job.JobID,
		Status: string(job.Status),
	})
}

// listReports handles GET /reports?user_id=
func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyListReports)
	q, ok := v.(userQuery)
	if !ok {
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "validated query missing"})
		return
	}
	reports, err := s.reportSvc.List(r.Context(), q.UserID)
	if err != nil {
		writeDomainErr(w, err, "could not fetch reports")
		return
	}
	out := make([]reportResponse, 0, len(reports))
	for _, rp := range reports {
		out = append(out, toReportResponse(rp))
	}
	toJSON(w, http.StatusOK, out)
}
