package tools

import (
	"sync"
	"time"
)

// Ticket is a recorded support ticket.
type Ticket struct {
	ID        string
	Summary   string
	Email     string
	Priority  string
	Status    string
	CreatedAt time.Time
}

// TicketStore holds tickets in memory. Safe for concurrent insert since
// tool dispatch may run handlers in parallel.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[string]Ticket
}

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]Ticket)}
}

func (s *TicketStore) Add(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t
}

func (s *TicketStore) Get(id string) (Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	return t, ok
}

func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}

// All returns a snapshot of every ticket.
func (s *TicketStore) All() []Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		all = append(all, t)
	}
	return all
}

// Order is one row of the demo order table.
type Order struct {
	Status  string `json:"status"`
	ETADays int    `json:"eta_days"`
	Items   int    `json:"items"`
	Carrier string `json:"carrier,omitempty"`
}

// OrderStore is a read-mostly in-memory order table.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewOrderStore seeds the demo order table.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: map[string]Order{
			"A1234": {Status: "Shipped", ETADays: 2, Items: 3, Carrier: "AcmeExpress"},
			"B5678": {Status: "Processing", ETADays: 5, Items: 1},
			"C9012": {Status: "Delivered", ETADays: 0, Items: 2, Carrier: "AcmeExpress"},
		},
	}
}

func (s *OrderStore) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *OrderStore) Put(id string, o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = o
}

// Reset is a pending password reset.
type Reset struct {
	Email     string
	Token     string
	Status    string
	CreatedAt time.Time
}

// ResetStore records pending password resets.
type ResetStore struct {
	mu     sync.RWMutex
	resets map[string]Reset
}

func NewResetStore() *ResetStore {
	return &ResetStore{resets: make(map[string]Reset)}
}

func (s *ResetStore) Add(r Reset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[r.Email] = r
}

func (s *ResetStore) Get(email string) (Reset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resets[email]
	return r, ok
}
