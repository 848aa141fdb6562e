package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vzubenko/npd-receipt-backend/internal/failstore"
	"github.com/vzubenko/npd-receipt-backend/internal/mail"
	"github.com/vzubenko/npd-receipt-backend/internal/observability/metrics"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

// ─── POST /api/v1/create-receipt ──────────────────────────────────────────────

type createReceiptRequest struct {
	APIPass string             `json:"api_pass"`
	Email   string             `json:"email"`
	Items   []receipt.LineItem `json:"items"`
}

type createReceiptResponse struct {
	Success   bool   `json:"success"`
	ReceiptID string `json:"receiptId"`
	PrintLink string `json:"printLink"`
	// EmailSent is false when the receipt was registered but the customer
	// email could not be delivered. The receipt itself is valid either way.
	EmailSent bool `json:"email_sent"`
}

// handleCreateReceipt runs the receipt pipeline: authorize, validate, compute
// the total, register the income with the tax service, email the customer.
//
// Registration failure (after retries) is the unrecoverable path: the request
// is persisted to the failure file and the admin notified, both best-effort,
// before the 500 goes out. Email failure after a successful registration is a
// softer outcome — the receipt exists, so the response is still a 200 with
// email_sent=false rather than a false alarm on the failure path.
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if !decode(w, r, &req) {
		return
	}

	// ── Authorize ─────────────────────────────────────────────────────────────
	if subtle.ConstantTimeCompare([]byte(req.APIPass), []byte(s.cfg.APIPass)) != 1 {
		respondErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// ── Validate ──────────────────────────────────────────────────────────────
	if req.Email == "" || len(req.Items) == 0 {
		respondErr(w, http.StatusBadRequest, "Неверные данные")
		return
	}

	// ── Compute total & register ──────────────────────────────────────────────
	decl := receipt.NewDeclaration(s.cfg.AppName, req.Items)

	receiptID, err := s.registrar.RegisterIncome(r.Context(), decl)
	if err != nil {
		s.logger.Error("create-receipt: registration failed after retries",
			"email", req.Email,
			"amount", decl.Amount,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		metrics.IncReceiptCreated(metrics.ResultError)

		s.recordFailure(r, req, decl, err)
		s.notifyAdmin(r, req, decl, err)

		respond(w, http.StatusInternalServerError, map[string]any{
			"error":               "Не удалось зарегистрировать чек, данные сохранены для повторной обработки",
			"saved_to_error_file": true,
		})
		return
	}

	// ── Notify customer ───────────────────────────────────────────────────────
	printLink := receipt.PrintLink(s.cfg.INN, receiptID)

	emailSent := true
	sendErr := s.mailer.Send(r.Context(), mail.Message{
		To:      req.Email,
		Subject: mail.ReceiptSubject(s.cfg.AppName),
		HTML:    mail.ReceiptHTML(req.Items, decl.Amount, printLink, s.cfg.AppName),
	})
	if sendErr != nil {
		// The receipt is registered; a lost email must not turn a real receipt
		// into a reported failure.
		emailSent = false
		s.logger.Error("create-receipt: receipt registered but email failed",
			"email", req.Email,
			"receipt_id", receiptID,
			"error", sendErr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	metrics.IncEmailSent("receipt", emailResult(sendErr))
	metrics.IncReceiptCreated(metrics.ResultSuccess)

	respond(w, http.StatusOK, createReceiptResponse{
		Success:   true,
		ReceiptID: receiptID,
		PrintLink: printLink,
		EmailSent: emailSent,
	})
}

// ─── BEST-EFFORT FAILURE SIDE CHANNELS ────────────────────────────────────────

// recordFailure appends the failed request to the failure file. Logged only;
// the caller proceeds regardless.
func (s *Server) recordFailure(r *http.Request, req createReceiptRequest, decl receipt.Declaration, cause error) {
	err := s.recorder.Record(failstore.Record{
		Email:   req.Email,
		Items:   req.Items,
		Amount:  decl.Amount,
		Error:   cause.Error(),
		APIPass: req.APIPass,
	})
	if err != nil {
		s.logger.Error("create-receipt: failed to record failure",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
}

// notifyAdmin emails the failure context to the administrator. Logged only;
// the caller proceeds regardless.
func (s *Server) notifyAdmin(r *http.Request, req createReceiptRequest, decl receipt.Declaration, cause error) {
	err := s.mailer.Send(r.Context(), mail.Message{
		To:      s.cfg.AdminEmail,
		Subject: mail.AdminAlertSubject(s.cfg.AppName),
		HTML: mail.AdminAlertHTML(mail.AdminAlertParams{
			CustomerEmail: req.Email,
			Items:         req.Items,
			Amount:        decl.Amount,
			ErrMessage:    cause.Error(),
			OccurredAt:    time.Now(),
		}),
	})
	metrics.IncEmailSent("admin_alert", emailResult(err))
	if err != nil {
		s.logger.Error("create-receipt: failed to notify admin",
			"admin", s.cfg.AdminEmail,
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
}

func emailResult(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
