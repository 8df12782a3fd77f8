package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/google/uuid"
)

type Options struct {
	// Now stamps created_at/updated_at columns. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Store keeps every table in maps guarded by one RWMutex. Ordering of list
// results matches the postgres store.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	seq map[string]int64

	users    map[int64]models.User
	sessions map[string]models.Session

	brands      map[int64]models.Brand
	cars        map[int64]models.Car
	images      map[int64]models.CarImage
	features    map[int64]models.Feature
	carFeatures map[int64]map[int64]struct{}

	members  map[int64]models.Member
	bookings map[int64]models.ServiceBooking
	listings map[int64]models.SellListing
	tickets  map[int64]models.Ticket
	audit    map[int64]models.AuditEntry
}

var _ store.Store = (*Store)(nil)

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		now:         now,
		seq:         make(map[string]int64),
		users:       make(map[int64]models.User),
		sessions:    make(map[string]models.Session),
		brands:      make(map[int64]models.Brand),
		cars:        make(map[int64]models.Car),
		images:      make(map[int64]models.CarImage),
		features:    make(map[int64]models.Feature),
		carFeatures: make(map[int64]map[int64]struct{}),
		members:     make(map[int64]models.Member),
		bookings:    make(map[int64]models.ServiceBooking),
		listings:    make(map[int64]models.SellListing),
		tickets:     make(map[int64]models.Ticket),
		audit:       make(map[int64]models.AuditEntry),
	}
}

func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) GetUser(ctx context.Context, userID int64) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	return user, ok, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (s *Store) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			user.ID = id
			user.CreatedAt = existing.CreatedAt
			s.users[id] = user
			return user, nil
		}
	}
	user.ID = s.nextID("users")
	user.CreatedAt = s.now()
	s.users[user.ID] = user
	return user, nil
}

// DeleteUser removes a user and leaves its sessions behind, the way an
// out-of-band account removal would.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *Store) CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return models.Session{}, store.ErrInvalidReference
	}
	session := models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now(),
	}
	s.sessions[session.SessionID] = session
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.Expired(s.now()) {
		return models.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
