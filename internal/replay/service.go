// Package replay re-processes notifications that the webhook could not
// finish, reading them back from Kafka.
package replay

import (
	"context"

	kafkax "github.com/ariefcatur/midtrans-ledger/internal/kafka"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type NotificationProcessor interface {
	Handle(ctx context.Context, n settlement.Notification) (settlement.Result, error)
}

type Service struct {
	Processor NotificationProcessor
	Log       *zap.Logger
}

// HandleMessage dipasang sebagai handler consumer. Pesan rusak di-skip
// (commit). Error lain dikembalikan; consumer mengulang pesan yang sama
// sampai sukses sebelum lanjut ke offset berikutnya.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		log.Warn("skip undecodable message", zap.Error(err))
		return nil
	}
	if env.EventType != settlement.EventNotificationDeferred {
		return nil
	}

	n, err := kafkax.UnwrapPayload[settlement.Notification](env.Payload)
	if err != nil {
		log.Warn("skip undecodable notification", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	res, err := s.Processor.Handle(ctx, n)
	if err != nil {
		if settlement.IsValidation(err) {
			log.Warn("skip invalid notification", zap.String("order_id", string(n.OrderID)), zap.Error(err))
			return nil
		}
		return err
	}
	log.Info("notification replayed",
		zap.Int64("order_id", res.OrderID),
		zap.String("status", string(res.Status)),
		zap.Bool("journal_recorded", res.JournalRecorded))
	return nil
}
