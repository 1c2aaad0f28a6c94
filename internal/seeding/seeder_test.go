package seeding

import (
	"context"
	"errors"
	"testing"

	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/auth"
	"github.com/bengobox/church-admin/internal/services/churches"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/google/uuid"
)

type fakeRegistrar struct {
	calls []auth.RegisterInput
}

func (f *fakeRegistrar) Register(_ context.Context, in auth.RegisterInput) (*auth.Result, error) {
	f.calls = append(f.calls, in)
	return &auth.Result{
		User:   &users.User{ID: uuid.New(), Email: in.Email},
		Igreja: &churches.Church{ID: uuid.New(), Name: in.ChurchName, Slug: "sede"},
	}, nil
}

type fakeLookup struct {
	existing map[string]bool
	err      error
}

func (f *fakeLookup) GetByEmail(_ context.Context, email string) (*users.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.existing[email] {
		return &users.User{ID: uuid.New(), Email: email}, nil
	}
	return nil, errs.NotFound("user")
}

var defaults = Defaults{
	ChurchName:    "Igreja Sede",
	AdminName:     "Administrador",
	AdminEmail:    "Admin@Example.com",
	AdminPassword: "change-me-now",
	AdminCPF:      "52998224725",
	AdminPhone:    "11999990000",
}

func TestSeedDefaultsCreatesOnce(t *testing.T) {
	registrar := &fakeRegistrar{}
	lookup := &fakeLookup{existing: map[string]bool{}}
	seeder := New(registrar, lookup, nil)

	created, err := seeder.SeedDefaults(context.Background(), defaults)
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	if len(registrar.calls) != 1 || registrar.calls[0].Email != "admin@example.com" {
		t.Fatalf("unexpected register calls %+v", registrar.calls)
	}

	lookup.existing["admin@example.com"] = true
	created, err = seeder.SeedDefaults(context.Background(), defaults)
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}
	if len(registrar.calls) != 1 {
		t.Fatalf("seed must be idempotent, got %d register calls", len(registrar.calls))
	}
}

func TestSeedDefaultsLookupFailure(t *testing.T) {
	seeder := New(&fakeRegistrar{}, &fakeLookup{err: errors.New("db down")}, nil)
	if _, err := seeder.SeedDefaults(context.Background(), defaults); err == nil {
		t.Fatalf("expected lookup failure to surface")
	}
}

func TestSeedDefaultsRejectsBadEmail(t *testing.T) {
	bad := defaults
	bad.AdminEmail = "not-an-email"
	_, err := New(&fakeRegistrar{}, &fakeLookup{}, nil).SeedDefaults(context.Background(), bad)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
