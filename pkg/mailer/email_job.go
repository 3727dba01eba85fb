package mailer

// Template names understood by the worker.
const (
	TemplateVerifyEmail     = "verify_email"
	TemplateWelcome         = "welcome"
	TemplateInvitation      = "invitation"
	TemplatePaymentReceipt  = "payment_receipt"
	TemplatePackageActivate = "package_activated"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// HTML is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
