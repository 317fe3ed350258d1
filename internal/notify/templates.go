package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ternarybob/printflow/internal/models"
)

// All user-supplied text is escaped before interpolation so customer names,
// notes and descriptions can never inject markup into the email body.
func esc(s string) string {
	return html.EscapeString(s)
}

// orderConfirmationHTML builds the customer-facing order confirmation body
func orderConfirmationHTML(customer *models.Customer, order *models.Order) string {
	var rows strings.Builder
	for _, item := range order.Items {
		rows.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td>%d</td><td>$%.2f</td><td>$%.2f</td></tr>",
			esc(item.Description), item.Quantity, item.UnitPrice, item.Total))
	}

	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Order Confirmation</h2>
<p>Hi %s,</p>
<p>Thanks for approving your quote. Your order <strong>%s</strong> has been created and is now in our production queue.</p>
<table border="0" cellpadding="6" style="border-collapse: collapse; width: 100%%;">
<tr style="background: #f4f4f4;"><th align="left">Item</th><th align="left">Qty</th><th align="left">Unit</th><th align="left">Total</th></tr>
%s
</table>
<p><strong>Order total: $%.2f</strong></p>
<p>We'll be in touch when your job moves into production.</p>
</body></html>`,
		esc(customer.Name), esc(order.OrderNumber), rows.String(), order.TotalAmount)
}

// productionNotificationHTML builds the production-team alert body
func productionNotificationHTML(job *models.Job) string {
	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>New Production Job</h2>
<p>Job <strong>%s</strong> is ready for artwork.</p>
<ul>
<li>Title: %s</li>
<li>Due: %s</li>
<li>Total: $%.2f</li>
</ul>
<p>Notes: %s</p>
</body></html>`,
		esc(job.JobNumber), esc(job.Title),
		job.DueDate.Format("Mon 2 Jan 2006"), job.TotalAmount,
		esc(job.ProductionNotes))
}

// productionTeamAlertHTML renders an ad-hoc detail map for the combined
// production-team alert.
func productionTeamAlertHTML(jobNumber string, details map[string]any) string {
	var rows strings.Builder
	for key, value := range details {
		rows.WriteString(fmt.Sprintf("<li>%s: %s</li>", esc(key), esc(fmt.Sprintf("%v", value))))
	}

	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>New Production Job</h2>
<p>Job <strong>%s</strong> has entered the queue.</p>
<ul>%s</ul>
</body></html>`,
		esc(jobNumber), rows.String())
}

// quoteApprovedTicketHTML builds the internal ticket-update body recording a
// quote approval for the sales trail.
func quoteApprovedTicketHTML(quote *models.Quote, order *models.Order, approvedAt time.Time) string {
	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Quote Approved</h2>
<p>Quote <strong>%s</strong> was approved at %s and converted to order <strong>%s</strong>.</p>
<p>Amount: $%.2f</p>
</body></html>`,
		esc(quote.QuoteNumber), approvedAt.Format(time.RFC1123),
		esc(order.OrderNumber), quote.TotalAmount)
}
