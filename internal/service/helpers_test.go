package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/internal/repository"
)

type fakeTx struct {
	calls int
	err   error
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type notifierCall struct {
	StudentID string
	Type      models.NotificationType
	Title     string
	Body      string
	Email     bool
}

type fakeNotifier struct {
	calls []notifierCall
	err   error
}

func (f *fakeNotifier) NotifyStudent(ctx context.Context, studentID string, typ models.NotificationType, title, body string, email bool) error {
	f.calls = append(f.calls, notifierCall{StudentID: studentID, Type: typ, Title: title, Body: body, Email: email})
	return f.err
}

type fakeCache struct {
	data    map[string][]byte
	deleted []string
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.data[key]
	if !ok {
		return repository.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.sets++
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		f.deleted = append(f.deleted, key)
		delete(f.data, key)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
