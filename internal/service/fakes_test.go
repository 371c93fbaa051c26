package service_test

import (
	"context"
	"sync"

	"data-manager-service/internal/entity"
)

type fakePublisher struct {
	mu     sync.Mutex
	orders []entity.Order
	err    error
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, order *entity.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orders = append(p.orders, *order)
	return nil
}

func (p *fakePublisher) published() []entity.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.Order(nil), p.orders...)
}

type fakeStore struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (s *fakeStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key]
}
