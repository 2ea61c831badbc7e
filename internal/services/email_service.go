package services

import (
	"fmt"
	"log"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/example/lentil-life/internal/models"
)

// EmailResult reports a send attempt. Sends never fail the caller's primary
// operation; errors come back as data.
type EmailResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EmailService renders and sends transactional email through the SMTP relay.
type EmailService struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

// NewEmailService constructs an EmailService. With an empty host the service
// logs and drops every send instead of erroring.
func NewEmailService(host string, port int, user, password, from string) *EmailService {
	svc := &EmailService{from: from}
	if host == "" {
		log.Println("[Email] SMTP host not configured, email delivery disabled")
		return svc
	}
	svc.dialer = gomail.NewDialer(host, port, user, password)
	svc.enabled = true
	return svc
}

func (s *EmailService) send(to, subject, html string) EmailResult {
	if !s.enabled {
		return EmailResult{Success: false, Error: "email delivery disabled"}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Printf("[Email] failed to send %q to %s: %v", subject, to, err)
		return EmailResult{Success: false, Error: err.Error()}
	}
	return EmailResult{Success: true}
}

// SendOrderConfirmation emails the customer after order creation.
// pointsToEarn is the preview computed at creation time; zero hides the
// loyalty section.
func (s *EmailService) SendOrderConfirmation(order *models.Order, pointsToEarn int) EmailResult {
	if order.CustomerEmail == "" {
		return EmailResult{Success: false, Error: "order has no customer email"}
	}
	subject := fmt.Sprintf("Order Confirmation - Lentil Life #%s", shortID(order))
	return s.send(order.CustomerEmail, subject, renderOrderConfirmation(order, pointsToEarn))
}

// SendStatusUpdate emails the customer about a status change. outcome is the
// loyalty side effect of the transition, when one fired.
func (s *EmailService) SendStatusUpdate(order *models.Order, newStatus models.OrderStatus, outcome *PointsOutcome) EmailResult {
	if order.CustomerEmail == "" {
		return EmailResult{Success: false, Error: "order has no customer email"}
	}
	subject := fmt.Sprintf("Order Update - Lentil Life #%s", shortID(order))
	return s.send(order.CustomerEmail, subject, renderStatusUpdate(order, newStatus, outcome))
}

// SendPickupReminder emails the customer ahead of their pickup window.
func (s *EmailService) SendPickupReminder(order *models.Order) EmailResult {
	if order.CustomerEmail == "" {
		return EmailResult{Success: false, Error: "order has no customer email"}
	}
	subject := fmt.Sprintf("Pickup Reminder - Lentil Life #%s", shortID(order))
	return s.send(order.CustomerEmail, subject, renderPickupReminder(order))
}

func shortID(order *models.Order) string {
	id := order.ID.String()
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func renderItemList(order *models.Order) string {
	var b strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&b, "&bull; %s x%d - $%.2f<br>", item.Name, item.Quantity, item.LineTotal())
	}
	return b.String()
}

func renderOrderConfirmation(order *models.Order, pointsToEarn int) string {
	var b strings.Builder

	b.WriteString(`<h1>🌱 Order Confirmation - Lentil Life</h1>`)
	fmt.Fprintf(&b, "<h2>Thank you for your order, %s!</h2>", order.CustomerName)
	b.WriteString("<p>Your order has been successfully placed and is being prepared.</p>")

	b.WriteString("<h3>Order Details</h3>")
	fmt.Fprintf(&b, "<p><strong>Order ID:</strong> %s</p>", order.ID)
	b.WriteString("<h4>Items Ordered:</h4><p>")
	b.WriteString(renderItemList(order))
	b.WriteString("</p>")
	if order.SpecialInstructions != "" {
		fmt.Fprintf(&b, "<p><strong>Special Instructions:</strong> %s</p>", order.SpecialInstructions)
	}
	fmt.Fprintf(&b, "<p><strong>Total: $%.2f</strong></p>", order.Total)

	b.WriteString("<h3>Pickup Information</h3>")
	fmt.Fprintf(&b, "<p><strong>Date:</strong> %s<br><strong>Time:</strong> %s<br><strong>Location:</strong> Lentil Life Kitchen</p>",
		order.PickupDate, order.PickupTime)

	switch order.Status {
	case models.OrderStatusPendingPayment:
		b.WriteString("<p><strong>⚠️ Payment Required:</strong> your order is pending payment. Please complete your payment to confirm it.</p>")
	case models.OrderStatusPendingVenmoPayment:
		b.WriteString("<p><strong>⚠️ Venmo Payment:</strong> please send your Venmo payment to confirm the order.</p>")
	case models.OrderStatusPendingCashPayment:
		b.WriteString("<p><strong>💵 Cash Payment:</strong> please bring exact cash at pickup.</p>")
	}

	if pointsToEarn > 0 {
		fmt.Fprintf(&b, "<p>🎉 You will earn <strong>%d points</strong> when this order is completed!</p>", pointsToEarn)
	}

	b.WriteString("<p>We'll send you another email when your order is ready for pickup!</p>")
	return b.String()
}

func statusCopy(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusPaid:
		return "Your payment has been received. Thank you!"
	case models.OrderStatusPreparing:
		return "Your order is being prepared."
	case models.OrderStatusReady:
		return "Your order is ready for pickup!"
	case models.OrderStatusCompleted:
		return "Your order is complete. Thank you for choosing Lentil Life!"
	case models.OrderStatusCancelled:
		return "Your order has been cancelled."
	case models.OrderStatusPaymentFailed:
		return "Your payment could not be processed. Please retry your payment."
	case models.OrderStatusRefunded:
		return "Your payment has been refunded."
	default:
		return fmt.Sprintf("Your order status is now: %s", status)
	}
}

func renderStatusUpdate(order *models.Order, newStatus models.OrderStatus, outcome *PointsOutcome) string {
	var b strings.Builder

	b.WriteString(`<h1>🌱 Order Update - Lentil Life</h1>`)
	fmt.Fprintf(&b, "<h2>Hi %s,</h2>", order.CustomerName)
	fmt.Fprintf(&b, "<p>%s</p>", statusCopy(newStatus))
	fmt.Fprintf(&b, "<p><strong>Order ID:</strong> %s<br><strong>Status:</strong> %s</p>", order.ID, newStatus)
	fmt.Fprintf(&b, "<p><strong>Pickup:</strong> %s at %s</p>", order.PickupDate, order.PickupTime)

	if outcome != nil {
		if outcome.PointsAwarded > 0 {
			fmt.Fprintf(&b, "<p>🎉 You earned <strong>%d points</strong> on this order!</p>", outcome.PointsAwarded)
		}
		if outcome.PointsRefunded > 0 {
			fmt.Fprintf(&b, "<p>%d points from this order have been reversed.</p>", outcome.PointsRefunded)
		}
	}

	return b.String()
}

func renderPickupReminder(order *models.Order) string {
	var b strings.Builder

	b.WriteString(`<h1>🌱 Pickup Reminder - Lentil Life</h1>`)
	fmt.Fprintf(&b, "<h2>Hi %s,</h2>", order.CustomerName)
	fmt.Fprintf(&b, "<p>Just a reminder that your order is scheduled for pickup on <strong>%s</strong> at <strong>%s</strong>.</p>",
		order.PickupDate, order.PickupTime)
	b.WriteString("<h4>Your order:</h4><p>")
	b.WriteString(renderItemList(order))
	b.WriteString("</p>")
	fmt.Fprintf(&b, "<p><strong>Total: $%.2f</strong></p>", order.Total)
	b.WriteString("<p>See you soon at Lentil Life Kitchen!</p>")
	return b.String()
}
