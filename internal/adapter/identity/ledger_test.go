package identity

import (
	"context"
	"errors"
	"testing"

	"group-savings-engine/internal/adapter/repository/memory"
	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
)

func TestLedger_ResolveMember(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	members := store.Repos().Members
	if err := members.Add(ctx, &group.Membership{
		GroupID: "g1", MemberID: "m1", Role: group.RoleManager, Status: group.MemberActive,
	}); err != nil {
		t.Fatal(err)
	}

	idp := NewLedger(members)
	m, err := idp.ResolveMember(ctx, "g1", "m1")
	if err != nil {
		t.Fatalf("ResolveMember: %v", err)
	}
	if m.Role != group.RoleManager {
		t.Fatalf("role = %s", m.Role)
	}

	if _, err := idp.ResolveMember(ctx, "g1", "stranger"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("want ErrNotMember, got %v", err)
	}
	if _, err := idp.ResolveMember(ctx, "g2", "m1"); !errors.Is(err, errs.ErrNotMember) {
		t.Fatalf("membership must be scoped to the group, got %v", err)
	}
}
