package aggregate

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
)

// Authorize resolves memberID in groupID and requires every capability in want.
func Authorize(ctx context.Context, idp group.IdentityProvider, groupID, memberID string, want group.Capability) (*group.Membership, error) {
	if memberID == "" {
		return nil, errs.Invalid("member id is required")
	}
	m, err := idp.ResolveMember(ctx, groupID, memberID)
	if err != nil {
		var typed *errs.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, Lookup(err, errs.ErrNotMember, memberID)
	}
	if !m.Active() {
		return nil, errs.ErrNotMember.Withf("%s is inactive", memberID)
	}
	if !m.Capabilities().Has(want) {
		return nil, errs.ErrForbidden.Withf("%s (%s)", memberID, m.Role)
	}
	return m, nil
}

// RequireActive rejects commands on groups that are not active.
func RequireActive(g *group.Group) error {
	if !g.Active() {
		return errs.ErrGroupNotActive.Withf("%s is %s", g.GroupID, g.Status)
	}
	return nil
}
