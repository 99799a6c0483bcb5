package services

import (
	"context"
	"errors"
	"testing"

	"skledger/internal/core"
	"skledger/internal/sheets/memory"
)

type fakeNotifier struct {
	published []core.PeriodKey
	err       error
	closed    bool
}

func (f *fakeNotifier) PublishPeriodSaved(_ context.Context, key core.PeriodKey) error {
	f.published = append(f.published, key)
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

type failingStore struct{ *memory.Store }

func (failingStore) Save(context.Context, core.PeriodKey, core.PeriodRecord) error {
	return errors.New("disk full")
}

func TestPeriodServiceSavePublishes(t *testing.T) {
	n := &fakeNotifier{}
	store := memory.New()
	svc := NewPeriodService(store, n)
	key := core.PeriodKey{Year: 2025, Quarter: core.Q2}

	if err := svc.Save(context.Background(), key, core.NewPeriodRecord()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(n.published) != 1 || n.published[0] != key {
		t.Fatalf("expected one publish for %v, got %v", key, n.published)
	}
	if _, found, _ := svc.Load(context.Background(), key); !found {
		t.Fatalf("period not stored")
	}
	keys, err := svc.ListPeriods(context.Background())
	if err != nil || len(keys) != 1 {
		t.Fatalf("list: %v %v", keys, err)
	}
}

func TestPeriodServicePublishFailureIsNotFatal(t *testing.T) {
	n := &fakeNotifier{err: errors.New("broker down")}
	svc := NewPeriodService(memory.New(), n)
	if err := svc.Save(context.Background(), core.PeriodKey{Year: 2025, Quarter: core.Q1}, core.NewPeriodRecord()); err != nil {
		t.Fatalf("publish failure should not fail save: %v", err)
	}
}

func TestPeriodServiceStorageFailureSkipsPublish(t *testing.T) {
	n := &fakeNotifier{}
	svc := NewPeriodService(failingStore{memory.New()}, n)
	err := svc.Save(context.Background(), core.PeriodKey{Year: 2025, Quarter: core.Q1}, core.NewPeriodRecord())
	if err == nil {
		t.Fatalf("expected save error")
	}
	if len(n.published) != 0 {
		t.Fatalf("nothing should be published when storage fails")
	}
}

func TestPeriodServiceWithoutNotifier(t *testing.T) {
	svc := NewPeriodService(memory.New(), nil)
	if err := svc.Save(context.Background(), core.PeriodKey{Year: 2025, Quarter: core.Q1}, core.NewPeriodRecord()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPeriodServiceCloseClosesNotifier(t *testing.T) {
	n := &fakeNotifier{}
	svc := NewPeriodService(memory.New(), n)
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !n.closed {
		t.Fatalf("notifier not closed")
	}
}
