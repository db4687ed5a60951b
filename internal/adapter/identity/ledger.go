// Package identity resolves members from the memberships kept in the ledger.
package identity

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"

	"gorm.io/gorm"
)

type Ledger struct{ members group.MemberRepository }

func NewLedger(members group.MemberRepository) *Ledger { return &Ledger{members: members} }

var _ group.IdentityProvider = (*Ledger)(nil)

func (l *Ledger) ResolveMember(ctx context.Context, groupID, memberID string) (*group.Membership, error) {
	m, err := l.members.Get(ctx, groupID, memberID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrNotMember.Withf("%s in group %s", memberID, groupID)
	}
	if err != nil {
		return nil, errs.Infra(err)
	}
	return m, nil
}
