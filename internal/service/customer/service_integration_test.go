package customer

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/migrate"
	customerrepo "storefront/internal/repository/customer"
)

func TestSignupAndLogin_Integration(t *testing.T) {
	ctx := context.Background()
	pool := integrationPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE customers`); err != nil {
		t.Fatalf("truncate customers: %v", err)
	}

	svc := New(customerrepo.NewPostgres(pool, nil), nil)

	password := "Abcdefg1"
	acct, err := svc.Signup(ctx, SignupInput{
		Email:     "integration@example.com",
		Password:  password,
		FirstName: "Int",
		LastName:  "User",
		Phone:     "+1 555 0100",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if acct == nil || acct.ID == "" {
		t.Fatalf("expected created account, got %+v", acct)
	}

	got, err := svc.Login(ctx, "Integration@Example.com", password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != acct.ID {
		t.Fatalf("login returned %s, want %s", got.ID, acct.ID)
	}

	byID, err := svc.Get(ctx, acct.ID)
	if err != nil || byID.Phone != "+1 555 0100" {
		t.Fatalf("get by id: %+v %v", byID, err)
	}
}

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}
