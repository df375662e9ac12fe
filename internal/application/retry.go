package application

import (
	"context"

	"go.uber.org/zap"
)

// LeadRetrier drains the pending leads from the queue back into the CRM.
// Run after CRM connectivity is restored; delivery is at-least-once.
type LeadRetrier struct {
	queue LeadQueue
	crm   LeadSender
	clock Clock
	log   *zap.Logger
}

func NewLeadRetrier(queue LeadQueue, crm LeadSender, log *zap.Logger) *LeadRetrier {
	return &LeadRetrier{queue: queue, crm: crm, clock: realClock{}, log: log}
}

func (r *LeadRetrier) Run(ctx context.Context) (submitted, failed int, err error) {
	pending, err := r.queue.ListPending(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, lead := range pending {
		if err := r.crm.SendLead(ctx, lead); err != nil {
			r.log.Error("lead retry failed", zap.String("lead_id", lead.ID), zap.Error(err))
			failed++
			continue
		}
		if err := r.queue.MarkCompleted(ctx, lead.ID, r.clock.Now()); err != nil {
			r.log.Error("mark completed failed", zap.String("lead_id", lead.ID), zap.Error(err))
		}
		submitted++
	}
	r.log.Info("retry pass finished", zap.Int("submitted", submitted), zap.Int("failed", failed))
	return submitted, failed, nil
}
