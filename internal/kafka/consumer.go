package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler return nil = sukses, offset boleh di-commit. Error = pesan akan
// dibaca ulang setelah rebalance/restart (at-least-once; handler wajib
// idempotent, dedup by event_id).
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        group,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // commit manual per pesan
		}),
		workers: workers,
	}
}

// Start blok sampai ctx selesai atau reader error. Worker pool habisin
// backlog dulu sebelum return.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 4*c.workers)
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					log.Printf("kafka handler topic=%s offset=%d: %v", m.Topic, m.Offset, err)
					time.Sleep(200 * time.Millisecond)
					continue // tanpa commit: pesan diproses ulang nanti
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					log.Printf("kafka commit topic=%s offset=%d: %v", m.Topic, m.Offset, err)
				}
			}
		}()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			close(jobs)
			wg.Wait()
			if ctx.Err() != nil {
				return nil // shutdown normal
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil
		}
	}
}
