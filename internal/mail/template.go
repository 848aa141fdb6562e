package mail

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

// ─── CUSTOMER RECEIPT ─────────────────────────────────────────────────────────

// ReceiptHTML renders the customer receipt email: a table of line items, the
// grand total, and a button linking to the official printable receipt.
// Deterministic for identical inputs.
func ReceiptHTML(items []receipt.LineItem, total decimal.Decimal, printLink, appName string) string {
	var rows strings.Builder
	for _, li := range items {
		fmt.Fprintf(&rows, `      <tr>
        <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb; color: #6b7280;">%s</td>
        <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb;">%s</td>
        <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb; text-align: right;">%s</td>
        <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb; text-align: center;">%d</td>
        <td style="padding: 8px 12px; border-bottom: 1px solid #e5e7eb; text-align: right;">%s</td>
      </tr>
`,
			html.EscapeString(string(li.ID)),
			html.EscapeString(li.Name),
			li.Price.StringFixed(2),
			li.EffectiveQuantity(),
			li.Subtotal().StringFixed(2),
		)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">%s — чек об оплате</h2>
  <p>Спасибо за покупку! Ваш чек зарегистрирован в налоговой службе.</p>
  <table style="width: 100%%; border-collapse: collapse; font-size: 14px;">
    <thead>
      <tr>
        <th style="padding: 8px 12px; border-bottom: 2px solid #0f172a; text-align: left;">№</th>
        <th style="padding: 8px 12px; border-bottom: 2px solid #0f172a; text-align: left;">Наименование</th>
        <th style="padding: 8px 12px; border-bottom: 2px solid #0f172a; text-align: right;">Цена</th>
        <th style="padding: 8px 12px; border-bottom: 2px solid #0f172a; text-align: center;">Кол-во</th>
        <th style="padding: 8px 12px; border-bottom: 2px solid #0f172a; text-align: right;">Сумма</th>
      </tr>
    </thead>
    <tbody>
%s    </tbody>
  </table>
  <p style="text-align: right; font-size: 16px; margin: 16px 12px;">
    Итого: <strong>%s ₽</strong>
  </p>
  <p style="margin: 32px 0;">
    <a href="%s"
       style="background: #0f172a; color: #ffffff; padding: 12px 24px;
              border-radius: 6px; text-decoration: none; font-weight: 600;">
      Открыть официальный чек
    </a>
  </p>
  <p style="color: #6b7280; font-size: 14px;">
    Если кнопка не работает, скопируйте ссылку:<br>
    <a href="%s" style="color: #6b7280;">%s</a>
  </p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    %s · чек сформирован автоматически
  </p>
</body>
</html>`,
		html.EscapeString(appName),
		rows.String(),
		total.StringFixed(2),
		printLink, printLink, printLink,
		html.EscapeString(appName),
	)
}

// ReceiptSubject is the customer email subject line.
func ReceiptSubject(appName string) string {
	return fmt.Sprintf("%s — ваш чек", appName)
}

// ─── ADMIN ALERT ──────────────────────────────────────────────────────────────

// AdminAlertParams is the failure context included in the admin notification.
type AdminAlertParams struct {
	CustomerEmail string
	Items         []receipt.LineItem
	Amount        decimal.Decimal
	ErrMessage    string
	OccurredAt    time.Time
}

// AdminAlertHTML renders the "registration failed, data saved" notification
// sent to the administrator.
func AdminAlertHTML(p AdminAlertParams) string {
	var rows strings.Builder
	for _, li := range p.Items {
		fmt.Fprintf(&rows, "      <li>%s — %s × %d</li>\n",
			html.EscapeString(li.Name),
			li.Price.StringFixed(2),
			li.EffectiveQuantity(),
		)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px; color: #b91c1c;">Не удалось зарегистрировать чек</h2>
  <p>Регистрация дохода в налоговой завершилась ошибкой после всех попыток.
  Данные сохранены в файл ошибок для ручной обработки.</p>
  <table style="font-size: 14px;">
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7280;">Покупатель</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7280;">Сумма</td><td>%s ₽</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7280;">Время</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #6b7280;">Ошибка</td><td>%s</td></tr>
  </table>
  <p style="margin-bottom: 4px;">Позиции:</p>
  <ul style="margin-top: 0;">
%s  </ul>
</body>
</html>`,
		html.EscapeString(p.CustomerEmail),
		p.Amount.StringFixed(2),
		p.OccurredAt.Format(time.RFC3339),
		html.EscapeString(p.ErrMessage),
		rows.String(),
	)
}

// AdminAlertSubject is the admin notification subject line.
func AdminAlertSubject(appName string) string {
	return fmt.Sprintf("%s — ошибка регистрации чека", appName)
}
