package store

import (
	"context"
	"time"

	"volterra/admin-service/internal/models"
)

// Users covers identity and session records. The web tier only reads users;
// UpsertUser exists for bootstrap seeding.
type Users interface {
	GetUser(ctx context.Context, userID int64) (models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	UpsertUser(ctx context.Context, user models.User) (models.User, error)

	CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type Catalog interface {
	ListBrands(ctx context.Context) ([]models.BrandWithCount, error)
	GetBrand(ctx context.Context, brandID int64) (models.BrandDetail, bool, error)
	CreateBrand(ctx context.Context, brand models.Brand) (models.Brand, error)
	UpdateBrand(ctx context.Context, brand models.Brand) (models.Brand, error)
	DeleteBrand(ctx context.Context, brandID int64) error

	ListCars(ctx context.Context) ([]models.CarSummary, error)
	GetCar(ctx context.Context, carID int64) (models.CarDetail, bool, error)
	CreateCar(ctx context.Context, car models.Car) (models.Car, error)
	UpdateCar(ctx context.Context, car models.Car) (models.Car, error)
	DeleteCar(ctx context.Context, carID int64) error
	AddCarImage(ctx context.Context, image models.CarImage) (models.CarImage, error)
	SetCarFeatures(ctx context.Context, carID int64, featureIDs []int64) ([]models.Feature, error)

	ListFeatures(ctx context.Context) ([]models.Feature, error)
	CreateFeature(ctx context.Context, feature models.Feature) (models.Feature, error)
	UpdateFeature(ctx context.Context, feature models.Feature) (models.Feature, error)
	DeleteFeature(ctx context.Context, featureID int64) error
}

type Customers interface {
	ListMembers(ctx context.Context) ([]models.Member, error)
	GetMember(ctx context.Context, memberID int64) (models.Member, bool, error)
	CreateMember(ctx context.Context, member models.Member) (models.Member, error)
	UpdateMember(ctx context.Context, member models.Member) (models.Member, error)

	ListBookings(ctx context.Context) ([]models.ServiceBooking, error)
	GetBooking(ctx context.Context, bookingID int64) (models.BookingDetail, bool, error)
	CreateBooking(ctx context.Context, booking models.ServiceBooking) (models.ServiceBooking, error)
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) (models.ServiceBooking, error)

	ListListings(ctx context.Context) ([]models.ListingDetail, error)
	GetListing(ctx context.Context, listingID int64) (models.ListingDetail, bool, error)
	CreateListing(ctx context.Context, listing models.SellListing) (models.SellListing, error)
	UpdateListingStatus(ctx context.Context, listingID int64, status string) (models.SellListing, error)
}

type TicketActionInput struct {
	TicketID   int64
	Action     string
	AssignedTo *int64
}

type Tickets interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64) (models.Ticket, bool, error)
	CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error)
	ApplyTicketAction(ctx context.Context, input TicketActionInput) (models.Ticket, error)
}

// AuditListLimit caps ListAudit results, newest first.
const AuditListLimit = 500

type AuditFilter struct {
	Action string
	UserID int64
}

type Audit interface {
	InsertAudit(ctx context.Context, entry models.AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, error)
	DashboardSummary(ctx context.Context) (models.DashboardSummary, error)
}

// Store is the persistence gateway the HTTP layer depends on.
type Store interface {
	Users
	Catalog
	Customers
	Tickets
	Audit
}
