package store

import (
	"context"
	"testing"
)

func TestGetEntitlement(t *testing.T) {
	conn := setupStoreDB(t)
	ctx := context.Background()
	if errSeed := SeedTiers(ctx, conn); errSeed != nil {
		t.Fatalf("seed tiers: %v", errSeed)
	}

	members := NewMemberStore(conn)

	if errExec := conn.Exec(
		"INSERT INTO members (email, name, password, tier_id, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, datetime('now'), datetime('now'))",
		"ada@example.com", "Ada", "x", 3, true,
	).Error; errExec != nil {
		t.Fatalf("insert member: %v", errExec)
	}

	ent, errGet := members.GetEntitlement(ctx, 1)
	if errGet != nil {
		t.Fatalf("get entitlement: %v", errGet)
	}
	if ent == nil || !ent.IsActive {
		t.Fatalf("entitlement inactive: %+v", ent)
	}
	if ent.TierName != "black" || !ent.IsUnlimited {
		t.Fatalf("unexpected tier: %+v", ent)
	}

	missing, errMissing := members.GetEntitlement(ctx, 999)
	if errMissing != nil {
		t.Fatalf("missing member: %v", errMissing)
	}
	if missing != nil {
		t.Fatal("nonexistent member produced an entitlement")
	}
}

func TestGetEntitlementTierlessMemberInactive(t *testing.T) {
	conn := setupStoreDB(t)
	ctx := context.Background()
	members := NewMemberStore(conn)

	if errExec := conn.Exec(
		"INSERT INTO members (email, name, password, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, datetime('now'), datetime('now'))",
		"bob@example.com", "Bob", "x", true,
	).Error; errExec != nil {
		t.Fatalf("insert member: %v", errExec)
	}

	ent, errGet := members.GetEntitlement(ctx, 1)
	if errGet != nil {
		t.Fatalf("get entitlement: %v", errGet)
	}
	if ent == nil || ent.IsActive {
		t.Fatalf("tierless member should be inactive: %+v", ent)
	}
}
