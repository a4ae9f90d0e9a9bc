package bootstrap

import (
	"assessment-sync-be/internal/config"
	"assessment-sync-be/internal/controller"
	"assessment-sync-be/internal/handler"
	"assessment-sync-be/internal/notifier"
	"assessment-sync-be/internal/pkg/logger"
	"assessment-sync-be/internal/repository/implementation"
	"assessment-sync-be/internal/service"
	internalWS "assessment-sync-be/internal/websocket"
	"assessment-sync-be/pkg/integration"
	pktNats "assessment-sync-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container wires the whole application graph. Everything realtime hangs off
// the in-process change bus: the listener publishes onto it, the fan-out
// service consumes it.
type Container struct {
	Logger     logger.ILogger
	SyncLogger logger.ILogger

	Hub      *internalWS.Hub
	Notifier *notifier.Listener

	AssessmentService service.IAssessmentService
	ChangeFanout      service.IChangeFanoutService

	AssessmentController controller.IAssessmentController
	SyncHandler          *handler.SyncHandler

	NatsPublisher *pktNats.Publisher
}

func NewContainer(cfg *config.Config, db *gorm.DB) *Container {
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	// Heartbeats and presence churn are chatty; keep them out of the console.
	syncLogger := logger.NewIsolatedLogger("sync.log")

	// Repositories
	assessmentRepo := implementation.NewAssessmentRepository(db)
	scoreRepo := implementation.NewScoreRepository(db)
	overallRepo := implementation.NewOverallFeedbackRepository(db)
	participantRepo := implementation.NewParticipantRepository(db)

	// Services
	assessmentService := service.NewAssessmentService(assessmentRepo, scoreRepo, overallRepo, participantRepo)

	// In-process change bus. gochannel delivers each message to every
	// subscriber, but the fan-out service is the only consumer so ordering
	// within the topic is preserved end to end.
	bus := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NopLogger{})

	// Realtime
	hub := internalWS.NewHub(cfg.Sync, syncLogger)
	changeListener := notifier.NewListener(
		cfg.Database.Connection,
		cfg.Database.ChangeChannel,
		cfg.Sync.ReconnectBase,
		cfg.Sync.ReconnectMax,
		bus,
		syncLogger,
	)

	// Downstream republish is optional infrastructure. A missing NATS server
	// degrades to websocket-only delivery.
	var natsPublisher *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			appLogger.Warn("Bootstrap", "NATS unavailable, republish disabled", map[string]interface{}{"error": err.Error()})
		} else {
			natsPublisher = pub
		}
	}

	var webhook *integration.WebhookPublisher
	if cfg.Integration.WebhookURL != "" {
		webhook = integration.NewWebhookPublisher(
			cfg.Integration.WebhookURL,
			cfg.Integration.RequestTimeout,
			cfg.Integration.MaxAttempts,
			appLogger,
		)
	}

	changeFanout := service.NewChangeFanoutService(bus, hub, natsPublisher, webhook, syncLogger)

	// Optional token denylist store for the handshake.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		if opts, err := redis.ParseURL(cfg.App.RedisURL); err != nil {
			appLogger.Warn("Bootstrap", "Invalid redis URL, denylist disabled", map[string]interface{}{"error": err.Error()})
		} else {
			rdb = redis.NewClient(opts)
		}
	}

	return &Container{
		Logger:               appLogger,
		SyncLogger:           syncLogger,
		Hub:                  hub,
		Notifier:             changeListener,
		AssessmentService:    assessmentService,
		ChangeFanout:         changeFanout,
		AssessmentController: controller.NewAssessmentController(assessmentService),
		SyncHandler:          handler.NewSyncHandler(hub, rdb, syncLogger),
		NatsPublisher:        natsPublisher,
	}
}
