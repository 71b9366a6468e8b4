package services

import (
	"context"
	"log"
	"time"
)

type overdueExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiryWorker periodically sweeps pending booking requests whose expiry
// horizon has passed. The database guard makes the sweep safe to run from
// several replicas at once.
type ExpiryWorker struct {
	service  overdueExpirer
	interval time.Duration
}

func NewExpiryWorker(service overdueExpirer, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{service: service, interval: interval}
}

func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := w.service.ExpireOverdue(ctx)
			if err != nil {
				log.Printf("expiry sweep failed: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("expired %d overdue booking requests", count)
			}
		}
	}
}
