package postgres

import (
	"context"
	"errors"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/jackc/pgx/v5"
)

const memberColumns = `m.member_id, m.name, m.email, m.phone, m.created_at`

func memberFields(member *models.Member) []any {
	return []any{&member.ID, &member.Name, &member.Email, &member.Phone, &member.CreatedAt}
}

func (s *Store) ListMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members m
		ORDER BY lower(m.name) COLLATE "C", m.name COLLATE "C", m.member_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var member models.Member
		if err := rows.Scan(memberFields(&member)...); err != nil {
			return nil, err
		}
		member.CreatedAt = member.CreatedAt.UTC()
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) GetMember(ctx context.Context, memberID int64) (models.Member, bool, error) {
	var member models.Member
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members m WHERE m.member_id = $1`, memberID)
	if err := row.Scan(memberFields(&member)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, false, nil
		}
		return models.Member{}, false, err
	}
	member.CreatedAt = member.CreatedAt.UTC()
	return member, true, nil
}

func (s *Store) CreateMember(ctx context.Context, member models.Member) (models.Member, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO members (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING member_id, created_at
	`, member.Name, member.Email, member.Phone)
	if err := row.Scan(&member.ID, &member.CreatedAt); err != nil {
		return models.Member{}, mapError(err)
	}
	member.CreatedAt = member.CreatedAt.UTC()
	return member, nil
}

func (s *Store) UpdateMember(ctx context.Context, member models.Member) (models.Member, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE members
		SET name = $1, email = $2, phone = $3
		WHERE member_id = $4
		RETURNING created_at
	`, member.Name, member.Email, member.Phone, member.ID)
	if err := row.Scan(&member.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, store.ErrNotFound
		}
		return models.Member{}, mapError(err)
	}
	member.CreatedAt = member.CreatedAt.UTC()
	return member, nil
}

const bookingColumns = `sb.booking_id, sb.member_id, sb.car_id, sb.service_type, sb.scheduled_at, sb.status, sb.notes, sb.created_at`

func bookingFields(booking *models.ServiceBooking) []any {
	return []any{&booking.ID, &booking.MemberID, &booking.CarID, &booking.ServiceType, &booking.ScheduledAt,
		&booking.Status, &booking.Notes, &booking.CreatedAt}
}

func normalizeBooking(booking *models.ServiceBooking) {
	booking.ScheduledAt = booking.ScheduledAt.UTC()
	booking.CreatedAt = booking.CreatedAt.UTC()
}

func (s *Store) ListBookings(ctx context.Context) ([]models.ServiceBooking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM service_bookings sb
		ORDER BY sb.created_at DESC, sb.booking_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.ServiceBooking{}
	for rows.Next() {
		var booking models.ServiceBooking
		if err := rows.Scan(bookingFields(&booking)...); err != nil {
			return nil, err
		}
		normalizeBooking(&booking)
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID int64) (models.BookingDetail, bool, error) {
	var detail models.BookingDetail
	row := s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`, `+memberColumns+`
		FROM service_bookings sb
		JOIN members m ON m.member_id = sb.member_id
		WHERE sb.booking_id = $1
	`, bookingID)
	if err := row.Scan(append(bookingFields(&detail.ServiceBooking), memberFields(&detail.Member)...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BookingDetail{}, false, nil
		}
		return models.BookingDetail{}, false, err
	}
	normalizeBooking(&detail.ServiceBooking)
	detail.Member.CreatedAt = detail.Member.CreatedAt.UTC()

	if detail.CarID != nil {
		var car models.Car
		row := s.pool.QueryRow(ctx, `SELECT `+carColumns+` FROM cars c WHERE c.car_id = $1`, *detail.CarID)
		if err := row.Scan(carFields(&car)...); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return models.BookingDetail{}, false, err
			}
		} else {
			normalizeCar(&car)
			detail.Car = &car
		}
	}
	return detail, true, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking models.ServiceBooking) (models.ServiceBooking, error) {
	booking.Status = models.BookingPending
	booking.ScheduledAt = booking.ScheduledAt.UTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO service_bookings (member_id, car_id, service_type, scheduled_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING booking_id, created_at
	`, booking.MemberID, booking.CarID, booking.ServiceType, booking.ScheduledAt, booking.Status, booking.Notes)
	if err := row.Scan(&booking.ID, &booking.CreatedAt); err != nil {
		return models.ServiceBooking{}, mapError(err)
	}
	booking.CreatedAt = booking.CreatedAt.UTC()
	return booking, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) (booking models.ServiceBooking, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.ServiceBooking{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM service_bookings sb
		WHERE sb.booking_id = $1
		FOR UPDATE
	`, bookingID)
	if err = row.Scan(bookingFields(&booking)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNotFound
		}
		return models.ServiceBooking{}, err
	}
	if !store.ValidBookingTransition(booking.Status, status) {
		err = store.ErrInvalidState
		return models.ServiceBooking{}, err
	}
	if _, err = tx.Exec(ctx, `UPDATE service_bookings SET status = $1 WHERE booking_id = $2`, status, bookingID); err != nil {
		return models.ServiceBooking{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.ServiceBooking{}, err
	}
	booking.Status = status
	normalizeBooking(&booking)
	return booking, nil
}

const listingColumns = `sl.listing_id, sl.car_id, sl.member_id, sl.asking_price, sl.status, sl.notes, sl.created_at`

func listingFields(listing *models.SellListing) []any {
	return []any{&listing.ID, &listing.CarID, &listing.MemberID, &listing.AskingPrice, &listing.Status, &listing.Notes, &listing.CreatedAt}
}

const listingJoin = `
		FROM sell_listings sl
		JOIN cars c ON c.car_id = sl.car_id
		JOIN brands b ON b.brand_id = c.brand_id
		JOIN members m ON m.member_id = sl.member_id
`

func listingDetailFields(detail *models.ListingDetail) []any {
	fields := listingFields(&detail.SellListing)
	fields = append(fields, carFields(&detail.Car)...)
	fields = append(fields, brandFields(&detail.Brand)...)
	return append(fields, memberFields(&detail.Member)...)
}

func normalizeListing(detail *models.ListingDetail) {
	detail.CreatedAt = detail.CreatedAt.UTC()
	normalizeCar(&detail.Car)
	detail.Brand.CreatedAt = detail.Brand.CreatedAt.UTC()
	detail.Member.CreatedAt = detail.Member.CreatedAt.UTC()
}

func (s *Store) ListListings(ctx context.Context) ([]models.ListingDetail, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+listingColumns+`, `+carColumns+`, `+brandColumns+`, `+memberColumns+`
		`+listingJoin+`
		ORDER BY sl.created_at DESC, sl.listing_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.ListingDetail{}
	for rows.Next() {
		var detail models.ListingDetail
		if err := rows.Scan(listingDetailFields(&detail)...); err != nil {
			return nil, err
		}
		normalizeListing(&detail)
		listings = append(listings, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range listings {
		images, err := s.carImages(ctx, listings[i].CarID, 1)
		if err != nil {
			return nil, err
		}
		listings[i].Images = images
	}
	return listings, nil
}

func (s *Store) GetListing(ctx context.Context, listingID int64) (models.ListingDetail, bool, error) {
	var detail models.ListingDetail
	row := s.pool.QueryRow(ctx, `
		SELECT `+listingColumns+`, `+carColumns+`, `+brandColumns+`, `+memberColumns+`
		`+listingJoin+`
		WHERE sl.listing_id = $1
	`, listingID)
	if err := row.Scan(listingDetailFields(&detail)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ListingDetail{}, false, nil
		}
		return models.ListingDetail{}, false, err
	}
	normalizeListing(&detail)
	images, err := s.carImages(ctx, detail.CarID, 0)
	if err != nil {
		return models.ListingDetail{}, false, err
	}
	detail.Images = images
	return detail, true, nil
}

func (s *Store) CreateListing(ctx context.Context, listing models.SellListing) (models.SellListing, error) {
	listing.Status = models.ListingPending
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sell_listings (car_id, member_id, asking_price, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING listing_id, created_at
	`, listing.CarID, listing.MemberID, listing.AskingPrice, listing.Status, listing.Notes)
	if err := row.Scan(&listing.ID, &listing.CreatedAt); err != nil {
		return models.SellListing{}, mapError(err)
	}
	listing.CreatedAt = listing.CreatedAt.UTC()
	return listing, nil
}

func (s *Store) UpdateListingStatus(ctx context.Context, listingID int64, status string) (listing models.SellListing, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.SellListing{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM sell_listings sl
		WHERE sl.listing_id = $1
		FOR UPDATE
	`, listingID)
	if err = row.Scan(listingFields(&listing)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNotFound
		}
		return models.SellListing{}, err
	}
	if !store.ValidListingTransition(listing.Status, status) {
		err = store.ErrInvalidState
		return models.SellListing{}, err
	}
	if _, err = tx.Exec(ctx, `UPDATE sell_listings SET status = $1 WHERE listing_id = $2`, status, listingID); err != nil {
		return models.SellListing{}, err
	}
	if status == models.ListingSold {
		if _, err = tx.Exec(ctx, `
			UPDATE cars SET status = $1, updated_at = NOW() WHERE car_id = $2
		`, models.CarStatusSold, listing.CarID); err != nil {
			return models.SellListing{}, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return models.SellListing{}, err
	}
	listing.Status = status
	listing.CreatedAt = listing.CreatedAt.UTC()
	return listing, nil
}
