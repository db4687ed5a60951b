// Package notify delivers committed ledger events to the outside world.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"group-savings-engine/internal/domain/event"

	"go.uber.org/zap"
)

// Log writes every event to the structured log.
type Log struct{ log *zap.Logger }

func NewLog(l *zap.Logger) *Log { return &Log{log: l} }

func (s *Log) Notify(_ context.Context, e event.Event) error {
	fields := []zap.Field{
		zap.String("type", string(e.Type)),
		zap.String("group_id", e.GroupID),
		zap.Time("at", e.At),
	}
	if e.MemberID != "" {
		fields = append(fields, zap.String("member_id", e.MemberID))
	}
	if e.LoanID != "" {
		fields = append(fields, zap.String("loan_id", e.LoanID))
	}
	if e.ContributionID != "" {
		fields = append(fields, zap.String("contribution_id", e.ContributionID))
	}
	if e.Amount != nil {
		fields = append(fields, zap.String("amount", e.Amount.String()))
	}
	s.log.Info("ledger event", fields...)
	return nil
}

// Multi fans an event out to every sink and joins their errors.
type Multi []event.Sink

func (m Multi) Notify(ctx context.Context, e event.Event) error {
	var errList []error
	for _, s := range m {
		if err := s.Notify(ctx, e); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

func encode(e event.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", e.Type, err)
	}
	return b, nil
}
