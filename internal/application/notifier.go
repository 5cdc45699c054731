package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-realtime-relay/pkg/helpers"
	"github.com/oksasatya/go-realtime-relay/pkg/mailer"
)

// OTPNotifier dispatches one-time codes to their owner. Delivery is
// best-effort: a failure is logged by the caller and never aborts the
// issuing flow.
type OTPNotifier interface {
	SendOTP(ctx context.Context, email, name, code string, isNewUser bool) error
}

// QueueNotifier publishes OTP email jobs to the RabbitMQ queue consumed by
// cmd/email_worker.
type QueueNotifier struct {
	Pub        *helpers.RabbitPublisher
	AppName    string
	TTLMinutes int
	Enabled    bool
	Logger     *logrus.Logger
}

func (n *QueueNotifier) SendOTP(ctx context.Context, email, name, code string, isNewUser bool) error {
	if !n.Enabled || n.Pub == nil {
		if n.Logger != nil {
			n.Logger.WithField("email", email).Debug("mail sending disabled, dropping otp job")
		}
		return nil
	}
	tplName := "login_otp"
	if isNewUser {
		tplName = "signup_otp"
	}
	job := mailer.EmailJob{
		To:       email,
		Template: tplName,
		Data: map[string]any{
			"Name":             name,
			"Code":             code,
			"ExpiresInMinutes": n.TTLMinutes,
			"AppName":          n.AppName,
		},
	}
	return n.Pub.PublishJSON(ctx, job)
}
