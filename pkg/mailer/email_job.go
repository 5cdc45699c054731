package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending an OTP email.
// The worker renders the body from Template ("signup_otp" or "login_otp") and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}
