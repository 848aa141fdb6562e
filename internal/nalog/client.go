// Package nalog talks to the self-employed tax service (lknpd.nalog.ru):
// income registration and the authenticated profile call used by the health
// probe. The HTTP layer never imports the concrete client — it holds the
// narrow interfaces below and tests inject stubs.
package nalog

import (
	"context"
	"errors"

	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

// ErrUnauthorized is returned when the tax service rejects the stored
// credentials. Retrying does not help; the refresh token must be re-issued.
var ErrUnauthorized = errors.New("nalog: unauthorized")

// Registrar registers declared income and returns the receipt identifier
// assigned by the tax service.
type Registrar interface {
	RegisterIncome(ctx context.Context, d receipt.Declaration) (string, error)
}

// Prober is the authenticated "who am I" call. Used only by the health
// endpoint; a failure means credentials or connectivity are broken.
type Prober interface {
	GetUserInfo(ctx context.Context) (UserInfo, error)
}

// UserInfo is the subset of the tax-service profile the service cares about.
type UserInfo struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	INN         string `json:"inn"`
}
