package infra

import (
	"context"
	"testing"
	"time"
)

func TestSlotPool_BlocksWhenFull(t *testing.T) {
	p := NewSlotPool(1)

	release, ok := p.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if p.InFlight() != 1 || p.Capacity() != 1 {
		t.Fatalf("unexpected occupancy %d/%d", p.InFlight(), p.Capacity())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := p.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail while slot is held")
	}

	release()
	release() // segunda chamada não libera vaga de outro
	if p.InFlight() != 0 {
		t.Fatalf("expected no slot in use, got %d", p.InFlight())
	}

	release2, ok := p.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected acquire to succeed after release")
	}
	release2()
}

func TestNewSlotPool_MinimumCapacity(t *testing.T) {
	if got := NewSlotPool(0).Capacity(); got != 1 {
		t.Fatalf("expected capacity 1, got %d", got)
	}
}
