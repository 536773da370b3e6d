// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/gameroom-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	reservations []schedule.Reservation // ordered by start
	byID         map[schedule.ReservationID]int
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[schedule.ReservationID]int)}
}

func (m *Memory) Append(_ context.Context, r schedule.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(r)
}

func (m *Memory) appendLocked(r schedule.Reservation) error {
	if _, exists := m.byID[r.ID]; exists {
		return fmt.Errorf("reservation %s already exists", r.ID)
	}

	// Binary search for insertion point keeps the slice ordered by start
	i := sort.Search(len(m.reservations), func(i int) bool {
		return m.reservations[i].Interval.Start.After(r.Interval.Start)
	})
	m.reservations = append(m.reservations, schedule.Reservation{})
	copy(m.reservations[i+1:], m.reservations[i:])
	m.reservations[i] = r
	m.reindexLocked()
	return nil
}

func (m *Memory) reindexLocked() {
	for i, r := range m.reservations {
		m.byID[r.ID] = i
	}
}

func (m *Memory) Get(_ context.Context, id schedule.ReservationID) (schedule.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id schedule.ReservationID) (schedule.Reservation, error) {
	i, ok := m.byID[id]
	if !ok {
		return schedule.Reservation{}, schedule.ErrNotFound
	}
	return m.reservations[i], nil
}

func (m *Memory) QueryOverlapping(_ context.Context, iv schedule.Interval, statuses []schedule.Status) ([]schedule.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryLocked(iv, statuses), nil
}

func (m *Memory) queryLocked(iv schedule.Interval, statuses []schedule.Status) []schedule.Reservation {
	filter := schedule.ListFilter{Statuses: statuses}
	var result []schedule.Reservation
	for _, r := range m.reservations {
		if !r.Interval.Start.Before(iv.End) {
			break
		}
		if r.Interval.Overlaps(iv) && filter.Match(r) {
			result = append(result, r)
		}
	}
	return result
}

func (m *Memory) List(_ context.Context, filter schedule.ListFilter) ([]schedule.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(filter), nil
}

func (m *Memory) listLocked(filter schedule.ListFilter) []schedule.Reservation {
	var result []schedule.Reservation
	for _, r := range m.reservations {
		if filter.Match(r) {
			result = append(result, r)
		}
	}
	if filter.Newest {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

func (m *Memory) SetStatus(_ context.Context, id schedule.ReservationID, status schedule.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatusLocked(id, status)
}

func (m *Memory) setStatusLocked(id schedule.ReservationID, status schedule.Status) error {
	i, ok := m.byID[id]
	if !ok {
		return schedule.ErrNotFound
	}
	m.reservations[i].Status = status
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole of fn, which serializes transactions.
func (tm *TxMemory) WithTx(_ context.Context, fn func(schedule.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := append([]schedule.Reservation(nil), tm.reservations...)

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.reservations = snapshot
		tm.byID = make(map[schedule.ReservationID]int, len(snapshot))
		tm.reindexLocked()
		return err
	}
	return nil
}

type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Append(_ context.Context, r schedule.Reservation) error {
	return tv.parent.appendLocked(r)
}

func (tv *txMemoryView) Get(_ context.Context, id schedule.ReservationID) (schedule.Reservation, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) QueryOverlapping(_ context.Context, iv schedule.Interval, statuses []schedule.Status) ([]schedule.Reservation, error) {
	return tv.parent.queryLocked(iv, statuses), nil
}

func (tv *txMemoryView) List(_ context.Context, filter schedule.ListFilter) ([]schedule.Reservation, error) {
	return tv.parent.listLocked(filter), nil
}

func (tv *txMemoryView) SetStatus(_ context.Context, id schedule.ReservationID, status schedule.Status) error {
	return tv.parent.setStatusLocked(id, status)
}
