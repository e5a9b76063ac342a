package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/counsel_backend/config"
	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/repo"
	"github.com/Alijeyrad/counsel_backend/internal/service/booking"
	"github.com/Alijeyrad/counsel_backend/internal/service/notification"
	"github.com/Alijeyrad/counsel_backend/internal/service/payment"
	"github.com/Alijeyrad/counsel_backend/internal/service/psychtest"
	"github.com/Alijeyrad/counsel_backend/internal/service/scheduling"
	"github.com/Alijeyrad/counsel_backend/internal/service/user"
	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
	"github.com/Alijeyrad/counsel_backend/pkg/crypto"
	"github.com/Alijeyrad/counsel_backend/pkg/email"
	pasetotoken "github.com/Alijeyrad/counsel_backend/pkg/paseto"
	"github.com/Alijeyrad/counsel_backend/pkg/sms"
	zarinpalpkg "github.com/Alijeyrad/counsel_backend/pkg/zarinpal"
)

// Field names bound into the AES-GCM additional data, one per encrypted
// column.
const (
	fieldSessionConcerns      = "sessions.concerns"
	fieldQuestionnaireAnswers = "questionnaire.answers"
)

const (
	localNotifyWorkers = 4
	localNotifyBuffer  = 256
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideAvailabilityCache,
		ProvideDispatcher,
		ProvidePublisher,
		ProvideUserService,
		ProvideSchedulingService,
		ProvideBookingService,
		ProvideNotificationService,
		ProvidePaymentService,
		ProvidePsychTestService,
		ProvidePasetoManager,
	),
)

func ProvideAvailabilityCache(rdb *redis.Client, cfg *config.Config) *scheduling.RedisCache {
	ttl := time.Duration(cfg.Booking.AvailabilityCacheSeconds) * time.Second
	return scheduling.NewRedisCache(rdb, ttl)
}

func ProvideNotificationService(db *repo.Client) notification.Service {
	return notification.New(db)
}

func ProvideDispatcher(svc notification.Service, db *repo.Client, mailer *email.Client, smsCli *sms.Client) *notification.Dispatcher {
	return notification.NewDispatcher(svc, db, mailer, smsCli, mailer.AppName())
}

// ProvidePublisher publishes to NATS when connected, otherwise queues events
// for in-process dispatch and drains the queue on stop.
func ProvidePublisher(lc fx.Lifecycle, nc *nats.Conn, d *notification.Dispatcher) events.Publisher {
	if nc != nil {
		return events.NewNatsPublisher(nc)
	}
	p := events.NewLocalPublisher(d, localNotifyWorkers, localNotifyBuffer)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining local event queue")
			return p.Close(ctx)
		},
	})
	return p
}

func ProvideUserService(db *repo.Client, authz authorize.IAuthorization) user.Service {
	return user.New(db, authz)
}

func ProvideSchedulingService(db *repo.Client, cache *scheduling.RedisCache, cfg *config.Config) (scheduling.Service, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, err
	}
	return scheduling.New(db, cache, scheduling.Config{
		Location:     loc,
		DayStartHour: cfg.Booking.DayStartHour,
		DayEndHour:   cfg.Booking.DayEndHour,
	}), nil
}

func ProvideBookingService(
	db *repo.Client,
	publisher events.Publisher,
	cache *scheduling.RedisCache,
	cfg *config.Config,
) (booking.Service, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewFieldCipher(cfg.Authentication.EncryptionKey, fieldSessionConcerns)
	if err != nil {
		return nil, err
	}
	return booking.New(db, publisher, cache, cipher, booking.Config{
		Location:               loc,
		FreeSessionsPerMonth:   cfg.Booking.FreeSessionsPerMonth,
		StudentDiscountPercent: cfg.Booking.StudentDiscountPercent,
		CancellationNotice:     time.Duration(cfg.Booking.CancellationNoticeHours) * time.Hour,
	}), nil
}

func ProvidePaymentService(db *repo.Client, zp *zarinpalpkg.Client, publisher events.Publisher, cfg *config.Config) payment.Service {
	return payment.New(db, zp, publisher, payment.Config{
		Amount: cfg.Booking.PlatformFeeAmount,
		Period: time.Duration(cfg.Booking.PlatformFeeDays) * 24 * time.Hour,
	})
}

func ProvidePsychTestService(db *repo.Client, cfg *config.Config) (psychtest.Service, error) {
	cipher, err := crypto.NewFieldCipher(cfg.Authentication.EncryptionKey, fieldQuestionnaireAnswers)
	if err != nil {
		return nil, err
	}
	return psychtest.New(db, cipher), nil
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}
