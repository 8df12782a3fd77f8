package memory

import (
	"context"
	"sort"
	"strings"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"
)

func (s *Store) ListMembers(ctx context.Context) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]models.Member, 0, len(s.members))
	for _, member := range s.members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return nameBefore(members[i].Name, members[i].ID, members[j].Name, members[j].ID)
	})
	return members, nil
}

func (s *Store) GetMember(ctx context.Context, memberID int64) (models.Member, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[memberID]
	return member, ok, nil
}

func (s *Store) CreateMember(ctx context.Context, member models.Member) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberEmailTaken(member.Email, 0) {
		return models.Member{}, store.ErrConflict
	}
	member.ID = s.nextID("members")
	member.CreatedAt = s.now()
	s.members[member.ID] = member
	return member, nil
}

func (s *Store) UpdateMember(ctx context.Context, member models.Member) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.members[member.ID]
	if !ok {
		return models.Member{}, store.ErrNotFound
	}
	if s.memberEmailTaken(member.Email, member.ID) {
		return models.Member{}, store.ErrConflict
	}
	member.CreatedAt = existing.CreatedAt
	s.members[member.ID] = member
	return member, nil
}

func (s *Store) memberEmailTaken(email string, exceptID int64) bool {
	for id, existing := range s.members {
		if id != exceptID && strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) ListBookings(ctx context.Context) ([]models.ServiceBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bookings := make([]models.ServiceBooking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		bookings = append(bookings, booking)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].ID > bookings[j].ID
	})
	return bookings, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID int64) (models.BookingDetail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	booking, ok := s.bookings[bookingID]
	if !ok {
		return models.BookingDetail{}, false, nil
	}
	detail := models.BookingDetail{ServiceBooking: booking, Member: s.members[booking.MemberID]}
	if booking.CarID != nil {
		if car, ok := s.cars[*booking.CarID]; ok {
			detail.Car = &car
		}
	}
	return detail, true, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking models.ServiceBooking) (models.ServiceBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[booking.MemberID]; !ok {
		return models.ServiceBooking{}, store.ErrInvalidReference
	}
	if booking.CarID != nil {
		if _, ok := s.cars[*booking.CarID]; !ok {
			return models.ServiceBooking{}, store.ErrInvalidReference
		}
	}
	booking.ID = s.nextID("service_bookings")
	booking.ScheduledAt = booking.ScheduledAt.UTC()
	booking.Status = models.BookingPending
	booking.CreatedAt = s.now()
	s.bookings[booking.ID] = booking
	return booking, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) (models.ServiceBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok {
		return models.ServiceBooking{}, store.ErrNotFound
	}
	if !store.ValidBookingTransition(booking.Status, status) {
		return models.ServiceBooking{}, store.ErrInvalidState
	}
	booking.Status = status
	s.bookings[bookingID] = booking
	return booking, nil
}

func (s *Store) ListListings(ctx context.Context) ([]models.ListingDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listings := make([]models.SellListing, 0, len(s.listings))
	for _, listing := range s.listings {
		listings = append(listings, listing)
	}
	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].CreatedAt.After(listings[j].CreatedAt)
		}
		return listings[i].ID > listings[j].ID
	})
	details := make([]models.ListingDetail, 0, len(listings))
	for _, listing := range listings {
		detail := s.listingDetail(listing)
		if len(detail.Images) > 1 {
			detail.Images = detail.Images[:1]
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Store) GetListing(ctx context.Context, listingID int64) (models.ListingDetail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return models.ListingDetail{}, false, nil
	}
	return s.listingDetail(listing), true, nil
}

func (s *Store) listingDetail(listing models.SellListing) models.ListingDetail {
	car := s.cars[listing.CarID]
	return models.ListingDetail{
		SellListing: listing,
		Car:         car,
		Brand:       s.brands[car.BrandID],
		Member:      s.members[listing.MemberID],
		Images:      s.carImages(listing.CarID),
	}
}

func (s *Store) CreateListing(ctx context.Context, listing models.SellListing) (models.SellListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[listing.CarID]; !ok {
		return models.SellListing{}, store.ErrInvalidReference
	}
	if _, ok := s.members[listing.MemberID]; !ok {
		return models.SellListing{}, store.ErrInvalidReference
	}
	listing.ID = s.nextID("sell_listings")
	listing.Status = models.ListingPending
	listing.CreatedAt = s.now()
	s.listings[listing.ID] = listing
	return listing, nil
}

func (s *Store) UpdateListingStatus(ctx context.Context, listingID int64, status string) (models.SellListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return models.SellListing{}, store.ErrNotFound
	}
	if !store.ValidListingTransition(listing.Status, status) {
		return models.SellListing{}, store.ErrInvalidState
	}
	listing.Status = status
	s.listings[listingID] = listing
	if status == models.ListingSold {
		if car, ok := s.cars[listing.CarID]; ok {
			car.Status = models.CarStatusSold
			car.UpdatedAt = s.now()
			s.cars[car.ID] = car
		}
	}
	return listing, nil
}
