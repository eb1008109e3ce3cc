package domain

import "time"

type NotificationTemplate string

const (
	TemplateRiskHigh      NotificationTemplate = "risk_high"
	TemplateOverdueNotice NotificationTemplate = "overdue_notice"
	TemplateAuctionWinner NotificationTemplate = "auction_winner"
	TemplateLoanRequested NotificationTemplate = "loan_requested"
)

// Notification is the payload handed to the messaging collaborator.
type Notification struct {
	ID          int32                `json:"id"`
	RecipientID int32                `json:"recipient_id"`
	Template    NotificationTemplate `json:"template"`
	Message     string               `json:"message"`
	Attributes  map[string]string    `json:"attributes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}
