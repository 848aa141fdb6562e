package api

import "net/http"

// ─── GET /health ──────────────────────────────────────────────────────────────

type healthResponse struct {
	Status       string `json:"status"`         // "ok" | "degraded"
	ConnectToFNS string `json:"connect_to_fns"` // "ok" | "error"
	SMTP         string `json:"smtp"`           // "ok" | "error"
}

// handleHealth probes the mail transport and the tax-service credentials and
// reports aggregate status. Probe failures are logged and reflected in the
// body — this endpoint always answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:       "ok",
		ConnectToFNS: "ok",
		SMTP:         "ok",
	}

	if _, err := s.prober.GetUserInfo(r.Context()); err != nil {
		s.logger.Warn("health: tax service probe failed", "error", err)
		resp.ConnectToFNS = "error"
		resp.Status = "degraded"
	}

	if err := s.mailer.Verify(r.Context()); err != nil {
		s.logger.Warn("health: smtp probe failed", "error", err)
		resp.SMTP = "error"
		resp.Status = "degraded"
	}

	respond(w, http.StatusOK, resp)
}
