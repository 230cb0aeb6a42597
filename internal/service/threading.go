package service

import (
	"strconv"
	"time"

	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
)

// Decide picks the threading action for a customer's tickets.
//
// Only SMS tickets are considered. The most recently active open ticket
// wins; otherwise the most recently trashed ticket is restored; otherwise a
// new ticket is created. Closed tickets are never reused. Activity is
// LastMessageAt, then UpdatedAt, then CreatedAt, then the ticket id, all
// descending, so the result does not depend on input order.
func Decide(tickets []domain.Ticket) domain.ThreadingDecision {
	var open, trashed *domain.Ticket
	for i := range tickets {
		t := &tickets[i]
		if !t.IsSMS() {
			continue
		}
		switch t.State {
		case domain.LifecycleOpen:
			if open == nil || moreRecentlyActive(t, open) {
				open = t
			}
		case domain.LifecycleTrashed:
			if trashed == nil || moreRecentlyTrashed(t, trashed) {
				trashed = t
			}
		}
	}
	if open != nil {
		return domain.AppendToOpen{TicketID: open.ID}
	}
	if trashed != nil {
		return domain.RestoreAndAppend{TicketID: trashed.ID}
	}
	return domain.CreateNew{}
}

func moreRecentlyActive(a, b *domain.Ticket) bool {
	if la, lb := a.LastActivity(), b.LastActivity(); !la.Equal(lb) {
		return la.After(lb)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return idGreater(a.ID, b.ID)
}

func moreRecentlyTrashed(a, b *domain.Ticket) bool {
	ta, tb := trashedAt(a), trashedAt(b)
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return idGreater(a.ID, b.ID)
}

func trashedAt(t *domain.Ticket) time.Time {
	if t.TrashedAt == nil {
		return time.Time{}
	}
	return *t.TrashedAt
}

// idGreater compares ids numerically when both are numbers.
func idGreater(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na > nb
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
