package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	goRecover "github.com/MrEthical07/goRecover"
)

func TestRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	r := New(
		goRecover.Account{Name: "forrest2", Email: "Forrest@Example.com"},
		goRecover.Account{Name: "forrest", Email: "forrest@example.com"},
		goRecover.Account{Name: "forrestnoemail"},
	)

	got, err := r.FindByName(ctx, "forrest")
	if err != nil || got.ID == "" || got.Email != "forrest@example.com" {
		t.Fatalf("FindByName = %+v, %v", got, err)
	}
	if _, err := r.FindByName(ctx, "mr-perdido"); !errors.Is(err, goRecover.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	matches, err := r.FindByEmail(ctx, "FORREST@example.COM")
	if err != nil || len(matches) != 2 || matches[0].Name != "forrest" || matches[1].Name != "forrest2" {
		t.Fatalf("FindByEmail = %+v, %v", matches, err)
	}
	if matches, err := r.FindByEmail(ctx, "nobody@example.com"); err != nil || len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v %v", matches, err)
	}
	if matches, _ := r.FindByEmail(ctx, ""); len(matches) != 0 {
		t.Fatal("empty email must not match accounts without one")
	}
}

func TestRepositoryCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	r := New()

	if err := r.Create(ctx, goRecover.Account{Name: "fakeuser", Email: "fakeuser@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, goRecover.Account{Name: "fakeuser"}); !errors.Is(err, goRecover.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if err := r.Create(ctx, goRecover.Account{Name: " "}); err == nil {
		t.Fatal("expected error for blank name")
	}

	if err := r.UpdatePasswordHash(ctx, "fakeuser", "$argon2id$new"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	if got, _ := r.FindByName(ctx, "fakeuser"); got.PasswordHash != "$argon2id$new" {
		t.Fatalf("hash not updated: %+v", got)
	}
	if err := r.UpdatePasswordHash(ctx, "ghost", "x"); !errors.Is(err, goRecover.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRepositoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	r := New(goRecover.Account{Name: "fakeuser", Email: "fakeuser@example.com"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.UpdatePasswordHash(ctx, "fakeuser", "h")
		}()
		go func() {
			defer wg.Done()
			_, _ = r.FindByEmail(ctx, "fakeuser@example.com")
		}()
	}
	wg.Wait()
}

func TestNewPanicsOnBadSeed(t *testing.T) {
	cases := map[string][]goRecover.Account{
		"duplicate": {{Name: "fakeuser"}, {Name: "fakeuser"}},
		"unnamed":   {{Name: "fakeuser"}, {Email: "nobody@example.com"}},
	}
	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected New to panic")
				}
				if msg, _ := r.(string); !strings.Contains(msg, "seed account 1") {
					t.Fatalf("unexpected panic value: %v", r)
				}
			}()
			New(seed...)
		})
	}
}
