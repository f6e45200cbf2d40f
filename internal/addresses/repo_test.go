package addresses

import (
	"context"
	"testing"

	"github.com/angelmondragon/shopfront-backend/pkg/db"
	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/google/uuid"
)

func TestFindForUserEnforcesOwnership(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	owner := uuid.New()
	addr := dbtest.SeedAddress(t, client, owner)

	got, err := repo.FindForUser(context.Background(), owner, addr.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.City != "Jakarta" {
		t.Fatalf("unexpected address %+v", got)
	}

	_, err = repo.FindForUser(context.Background(), uuid.New(), addr.ID)
	if !db.IsNotFound(err) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
}
