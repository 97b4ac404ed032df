package mongostore

import (
	"context"
	"errors"
	"testing"

	goRecover "github.com/MrEthical07/goRecover"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func accountBSON(id, name, email, hash string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "email", Value: email},
		{Key: "email_lower", Value: email},
		{Key: "password_hash", Value: hash},
	}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find by name", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			accountBSON("1", "fakeuser", "fakeuser@example.com", "$argon2id$h")))

		got, err := New(mt.Coll).FindByName(context.Background(), "fakeuser")
		if err != nil {
			t.Fatalf("FindByName: %v", err)
		}
		if got.ID != "1" || got.Email != "fakeuser@example.com" || got.PasswordHash != "$argon2id$h" {
			t.Fatalf("unexpected account %+v", got)
		}
	})

	mt.Run("find by name missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := New(mt.Coll).FindByName(context.Background(), "mr-perdido")
		if !errors.Is(err, goRecover.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	mt.Run("find by email", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			accountBSON("5", "forrest", "forrest@example.com", "h"))
		second := mtest.CreateCursorResponse(1, ns, mtest.NextBatch,
			accountBSON("6", "forrest2", "forrest@example.com", "h"))
		done := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, second, done)

		got, err := New(mt.Coll).FindByEmail(context.Background(), "Forrest@Example.com")
		if err != nil {
			t.Fatalf("FindByEmail: %v", err)
		}
		if len(got) != 2 || got[0].Name != "forrest" || got[1].Name != "forrest2" {
			t.Fatalf("unexpected matches %+v", got)
		}
	})

	mt.Run("find by empty email", func(mt *mtest.T) {
		got, err := New(mt.Coll).FindByEmail(context.Background(), "  ")
		if err != nil || len(got) != 0 {
			t.Fatalf("expected no lookup, got %+v %v", got, err)
		}
	})

	mt.Run("update password hash", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))
		if err := New(mt.Coll).UpdatePasswordHash(context.Background(), "fakeuser", "new"); err != nil {
			t.Fatalf("UpdatePasswordHash: %v", err)
		}
	})

	mt.Run("update missing account", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))
		err := New(mt.Coll).UpdatePasswordHash(context.Background(), "ghost", "new")
		if !errors.Is(err, goRecover.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		err := New(mt.Coll).Create(context.Background(), goRecover.Account{Name: "fakeuser"})
		if !errors.Is(err, goRecover.ErrAccountExists) {
			t.Fatalf("expected ErrAccountExists, got %v", err)
		}
	})

	mt.Run("backend failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))
		_, err := New(mt.Coll).FindByName(context.Background(), "fakeuser")
		if err == nil || errors.Is(err, goRecover.ErrAccountNotFound) {
			t.Fatalf("expected dependency failure, got %v", err)
		}
	})
}
