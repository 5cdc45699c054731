package router

import (
	"github.com/oksasatya/go-realtime-relay/internal/application"
	"github.com/oksasatya/go-realtime-relay/internal/container"
	"github.com/oksasatya/go-realtime-relay/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-realtime-relay/internal/interface/http"
	"github.com/oksasatya/go-realtime-relay/internal/relay"
	"github.com/oksasatya/go-realtime-relay/internal/router/modules"
)

type RelayDeps struct {
	Auth *application.AuthService
	Chat *application.ChatService
	Hub  *relay.Hub
}

func buildRelayDeps() RelayDeps {
	cfg := container.GetConfig()

	users := postgres.NewUserRepository(container.GetPGPool())
	messages := postgres.NewMessageRepository(container.GetPGPool())

	notifier := &application.QueueNotifier{
		Pub:        container.GetRabbitPub(),
		AppName:    cfg.AppName,
		TTLMinutes: int(cfg.OTPTTL.Minutes()),
		Enabled:    cfg.MailSendEnabled,
		Logger:     container.GetLogger(),
	}

	auth := application.NewAuthService(
		users,
		container.GetJWT(),
		notifier,
		container.GetRedis(),
		container.GetLogger(),
		cfg.OTPTTL,
		cfg.OTPSendMax,
		cfg.OTPSendWindow,
	)

	chat := application.NewChatService(
		messages,
		container.GetLogger(),
		container.GetES(),
		cfg.ESMessagesIndex,
	)

	hub := relay.NewHub(auth, chat, container.GetLogger(), relay.Options{
		HistoryLimit: cfg.HistoryLimit,
		WriteTimeout: cfg.WriteTimeout,
		PongTimeout:  cfg.PongTimeout,
		SendBuffer:   cfg.SendBuffer,
	})

	return RelayDeps{Auth: auth, Chat: chat, Hub: hub}
}

// InitModules wires up all application modules and registers them with the
// router registry. Call once during startup; the returned hub still needs its
// Run loop started by the caller.
func InitModules(r *Registry) *relay.Hub {
	deps := buildRelayDeps()
	ws := handlers.NewWSHandler(deps.Hub, container.GetLogger(), container.GetConfig().Origins())
	messages := handlers.NewMessageHandler(deps.Chat, container.GetLogger())
	r.Add(modules.NewRelayModule(ws, messages))
	return deps.Hub
}
