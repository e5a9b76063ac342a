package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/counsel_backend/internal/events"
	"github.com/Alijeyrad/counsel_backend/internal/service/notification"
)

// notifierQueue lets several API replicas share event delivery so each
// event is notified once.
const notifierQueue = "counsel-notifier"

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc         fx.Lifecycle
	NC         *nats.Conn `optional:"true"`
	Dispatcher *notification.Dispatcher
}

func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		return
	}
	var sub *nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			sub, err = startNotificationWorker(p.NC, p.Dispatcher)
			return err
		},
		OnStop: func(ctx context.Context) error {
			// connection drain is handled by ProvideNatsClient
			if sub == nil {
				return nil
			}
			return sub.Unsubscribe()
		},
	})
}

// ---------------------------------------------------------------------------
// notification_worker
// ---------------------------------------------------------------------------

func startNotificationWorker(nc *nats.Conn, d *notification.Dispatcher) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(events.SubjectAll, notifierQueue, func(msg *nats.Msg) {
		ev, err := events.Decode(msg.Subject, msg.Data)
		if err != nil {
			slog.Warn("notification_worker: decode event failed", "subject", msg.Subject, "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := d.Handle(ctx, ev); err != nil {
			slog.Error("notification_worker: handle event failed", "subject", msg.Subject, "err", err)
		}
	})
	if err != nil {
		slog.Error("notification_worker: subscribe failed", "subject", events.SubjectAll, "err", err)
		return nil, err
	}
	slog.Info("notification_worker: subscribed", "subject", events.SubjectAll, "queue", notifierQueue)
	return sub, nil
}
