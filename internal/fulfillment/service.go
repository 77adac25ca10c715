// Package fulfillment menerapkan keputusan sistem fulfillment eksternal
// (confirmed/processing/shipped/delivered) ke state machine order.
// Core ini tidak memodelkan proses fulfillment-nya sendiri.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
	kafkax "github.com/shubhamkumar-dianapps/Ecommerce/internal/kafka"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/redisx"
)

type Service struct {
	Orders      *orders.Service
	Redis       *redis.Client
	ServiceName string
}

// HandleShipmentUpdate: dipasang sebagai handler consumer.
func (s *Service) HandleShipmentUpdate(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventShipmentUpdate {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[events.ShipmentUpdatePayload](env.Payload)
	if err != nil {
		return err
	}

	to := orders.Status(p.Status)
	if err := s.Orders.AdvanceStatus(ctx, p.OrderID, to); err != nil {
		// transisi duplikat/terlambat bukan alasan retry — log lalu commit
		var ite *orders.InvalidTransitionError
		if errors.As(err, &ite) || errors.Is(err, orders.ErrNotFound) {
			log.Printf("fulfillment: skip order=%s -> %s: %v", p.OrderID, to, err)
			s.markProcessed(ctx, dkey)
			return nil
		}
		// error infra: key dedup sengaja BELUM ditulis supaya redelivery
		// masih ngejalanin update ini
		return err
	}

	s.markProcessed(ctx, dkey)
	return nil
}

func (s *Service) markProcessed(ctx context.Context, key string) {
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
	}
}
