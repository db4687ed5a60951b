package contribution

import "context"

type Repository interface {
	Create(ctx context.Context, c *Contribution) error
	GetByContributionID(ctx context.Context, contributionID string) (*Contribution, error)
	GetByPeriod(ctx context.Context, groupID, memberID string, period int) (*Contribution, error)
	Save(ctx context.Context, c *Contribution) error
	ListByGroup(ctx context.Context, groupID string) ([]Contribution, error)
	ListByMember(ctx context.Context, groupID, memberID string) ([]Contribution, error)
	ListByStatus(ctx context.Context, groupID string, statuses ...Status) ([]Contribution, error)
}
