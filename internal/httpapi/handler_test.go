package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"volterra/admin-service/internal/auth"
	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"
	"volterra/admin-service/internal/store/memory"
)

var testHashKey = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	t       *testing.T
	store   *memory.Store
	handler http.Handler
	tokens  map[models.Role]string
	users   map[models.Role]models.User
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil, Options{})
}

// newTestEnvWith seeds one user per role with a live session. wrap, when set,
// decorates the store the handler sees.
func newTestEnvWith(t *testing.T, wrap func(*memory.Store) store.Store, opts Options) *testEnv {
	t.Helper()
	ctx := context.Background()
	st := memory.NewStore(memory.Options{})
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	env := &testEnv{t: t, store: st, tokens: map[models.Role]string{}, users: map[models.Role]models.User{}}
	for _, role := range allRoles {
		user, err := st.UpsertUser(ctx, models.User{
			Name:         strings.ToUpper(string(role[:1])) + string(role[1:]),
			Email:        string(role) + "@volterra.test",
			Role:         role,
			PasswordHash: hash,
		})
		if err != nil {
			t.Fatalf("upsert user: %v", err)
		}
		session, err := st.CreateSession(ctx, user.ID, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		env.users[role] = user
		env.tokens[role] = session.SessionID
	}

	var backing store.Store = st
	if wrap != nil {
		backing = wrap(st)
	}
	resolver, err := auth.NewResolver(backing, auth.ResolverOptions{HashKey: testHashKey})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	env.handler = NewHandler(backing, resolver, opts).Routes()
	return env
}

// do sends a request as role. An empty role sends an anonymous request.
func (e *testEnv) do(method, path string, role models.Role, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[role])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	var payload errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if payload.Error.Code != code {
		t.Fatalf("expected error code %s, got %s", code, payload.Error.Code)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestMeAndSession(t *testing.T) {
	env := newTestEnv(t)

	expectErrorCode(t, env.do(http.MethodGet, "/api/auth/me", "", ""), http.StatusUnauthorized, "unauthorized")

	rec := env.do(http.MethodGet, "/api/auth/session", "", "")
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != `{"user":null}` {
		t.Fatalf("expected null user, got %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/auth/me", models.RoleManager, "")
	expectStatus(t, rec, http.StatusOK)
	projection := decode[map[string]any](t, rec)
	if len(projection) != 5 {
		t.Fatalf("expected exactly 5 keys, got %v", projection)
	}
	for _, key := range []string{"id", "name", "email", "role", "image"} {
		if _, ok := projection[key]; !ok {
			t.Fatalf("missing key %s in %v", key, projection)
		}
	}
	if projection["role"] != "manager" || projection["image"] != nil {
		t.Fatalf("unexpected projection %v", projection)
	}

	session := decode[map[string]map[string]any](t, env.do(http.MethodGet, "/api/auth/session", models.RoleStaff, ""))
	if session["user"]["email"] != "staff@volterra.test" {
		t.Fatalf("unexpected session payload %v", session)
	}
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	expectErrorCode(t, env.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@volterra.test","password":"nope"}`),
		http.StatusUnauthorized, "invalid_credentials")
	expectErrorCode(t, env.do(http.MethodPost, "/api/auth/login", "", `{"email":`), http.StatusBadRequest, "invalid_json")

	rec := env.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@volterra.test","password":"s3cret"}`)
	expectStatus(t, rec, http.StatusOK)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.DefaultCookieName || !cookies[0].HttpOnly {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	cookie := cookies[0]

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	env.handler.ServeHTTP(meRec, me)
	expectStatus(t, meRec, http.StatusOK)

	logout := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logout.AddCookie(cookie)
	logoutRec := httptest.NewRecorder()
	env.handler.ServeHTTP(logoutRec, logout)
	expectStatus(t, logoutRec, http.StatusNoContent)
	cleared := logoutRec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}

	again := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	again.AddCookie(cookie)
	againRec := httptest.NewRecorder()
	env.handler.ServeHTTP(againRec, again)
	expectStatus(t, againRec, http.StatusUnauthorized)

	expectStatus(t, env.do(http.MethodPost, "/api/auth/logout", "", ""), http.StatusNoContent)
}

func TestMalformedAndMissingIDsAreNotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/brands/abc", "/api/brands/0", "/api/brands/-3", "/api/brands/999", "/api/cars/1.5", "/api/cars/42"} {
		expectErrorCode(t, env.do(http.MethodGet, path, "", ""), http.StatusNotFound, "not_found")
	}
	for _, path := range []string{"/api/members/x", "/api/bookings/7", "/api/tickets/0", "/api/sell-listings/9"} {
		expectErrorCode(t, env.do(http.MethodGet, path, models.RoleAdmin, ""), http.StatusNotFound, "not_found")
	}
}

func TestCatalogWritesRequireRole(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Alfa Romeo"}`

	expectErrorCode(t, env.do(http.MethodPost, "/api/brands", "", body), http.StatusUnauthorized, "unauthorized")
	expectErrorCode(t, env.do(http.MethodPost, "/api/brands", models.RoleStaff, body), http.StatusForbidden, "access_denied")

	rec := env.do(http.MethodPost, "/api/brands", models.RoleManager, body)
	expectStatus(t, rec, http.StatusCreated)
	brand := decode[models.Brand](t, rec)
	if brand.Slug != "alfa-romeo" {
		t.Fatalf("expected slug alfa-romeo, got %s", brand.Slug)
	}

	expectErrorCode(t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"ALFA ROMEO"}`), http.StatusConflict, "conflict")
	expectStatus(t, env.do(http.MethodGet, "/api/brands", "", ""), http.StatusOK)
}

func TestBrandNameWithoutSlugCharactersIsRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"!!!"}`)
	expectErrorCode(t, rec, http.StatusBadRequest, "invalid_request")
	if message := decode[errorResponse](t, rec).Error.Message; !strings.Contains(message, "slug") {
		t.Fatalf("expected slug in message, got %q", message)
	}
	expectErrorCode(t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Rivian","slug":"***"}`),
		http.StatusBadRequest, "invalid_request")

	brand := decode[models.Brand](t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Rivian"}`))
	expectErrorCode(t, env.do(http.MethodPut, "/api/brands/"+itoa(brand.ID), models.RoleAdmin, `{"name":"???"}`),
		http.StatusBadRequest, "invalid_request")
	if brands := decode[[]models.BrandWithCount](t, env.do(http.MethodGet, "/api/brands", "", "")); len(brands) != 1 || brands[0].Slug != "rivian" {
		t.Fatalf("expected only the valid brand, got %+v", brands)
	}
}

func TestMembersRequireSession(t *testing.T) {
	env := newTestEnv(t)
	expectErrorCode(t, env.do(http.MethodGet, "/api/members", "", ""), http.StatusUnauthorized, "unauthorized")
	expectStatus(t, env.do(http.MethodGet, "/api/members", models.RoleStaff, ""), http.StatusOK)
	expectErrorCode(t, env.do(http.MethodPost, "/api/members", models.RoleStaff, `{"name":"Bo","email":"bo@example.com"}`),
		http.StatusForbidden, "access_denied")

	rec := env.do(http.MethodPost, "/api/members", models.RoleManager, `{"name":"","email":"not-an-email"}`)
	expectErrorCode(t, rec, http.StatusBadRequest, "invalid_request")
	message := decode[errorResponse](t, rec).Error.Message
	if !strings.Contains(message, "name") || !strings.Contains(message, "email") {
		t.Fatalf("expected failing fields in message, got %q", message)
	}
	expectErrorCode(t, env.do(http.MethodPost, "/api/members", models.RoleManager, `{"name":"Bo","email":"bo@example.com","vip":true}`),
		http.StatusBadRequest, "invalid_json")
}

func TestDeleteBrandWithCarsConflicts(t *testing.T) {
	env := newTestEnv(t)
	brand := decode[models.Brand](t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Volvo"}`))
	rec := env.do(http.MethodPost, "/api/cars", models.RoleAdmin,
		`{"brand_id":`+itoa(brand.ID)+`,"model":"XC60","year":2022,"price":41000}`)
	expectStatus(t, rec, http.StatusCreated)
	car := decode[models.Car](t, rec)
	if car.Status != models.CarStatusAvailable {
		t.Fatalf("expected default status available, got %s", car.Status)
	}

	expectErrorCode(t, env.do(http.MethodDelete, "/api/brands/"+itoa(brand.ID), models.RoleAdmin, ""), http.StatusConflict, "brand_has_cars")
	expectStatus(t, env.do(http.MethodDelete, "/api/cars/"+itoa(car.ID), models.RoleAdmin, ""), http.StatusNoContent)
	expectStatus(t, env.do(http.MethodDelete, "/api/brands/"+itoa(brand.ID), models.RoleAdmin, ""), http.StatusNoContent)
	expectErrorCode(t, env.do(http.MethodDelete, "/api/brands/"+itoa(brand.ID), models.RoleAdmin, ""), http.StatusNotFound, "not_found")
}

func TestListingsAreOrderedAndStable(t *testing.T) {
	env := newTestEnv(t)
	var brandID int64
	for _, name := range []string{"Volvo", "Audi", "bmw", "Mazda"} {
		brand := decode[models.Brand](t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"`+name+`"}`))
		brandID = brand.ID
	}
	for _, model := range []string{"CX-5", "MX-5"} {
		expectStatus(t, env.do(http.MethodPost, "/api/cars", models.RoleAdmin,
			`{"brand_id":`+itoa(brandID)+`,"model":"`+model+`","year":2020,"price":1}`), http.StatusCreated)
	}

	first := env.do(http.MethodGet, "/api/brands", "", "")
	second := env.do(http.MethodGet, "/api/brands", "", "")
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("expected identical bodies")
	}
	brands := decode[[]models.BrandWithCount](t, first)
	if len(brands) != 4 || brands[0].Name != "Audi" || brands[1].Name != "bmw" || brands[2].Name != "Mazda" || brands[3].Name != "Volvo" {
		t.Fatalf("unexpected brand order %+v", brands)
	}
	if brands[2].CarCount != 2 {
		t.Fatalf("expected 2 cars for Mazda, got %d", brands[1].CarCount)
	}

	cars := decode[[]models.CarSummary](t, env.do(http.MethodGet, "/api/cars", "", ""))
	if len(cars) != 2 || cars[0].Model != "MX-5" || cars[0].Brand.Name != "Mazda" {
		t.Fatalf("expected newest car first with brand, got %+v", cars)
	}
	carsAgain := env.do(http.MethodGet, "/api/cars", "", "")
	if !bytes.Equal(carsAgain.Body.Bytes(), env.do(http.MethodGet, "/api/cars", "", "").Body.Bytes()) {
		t.Fatalf("expected identical car bodies")
	}
}

func TestCarDetailWithImagesAndFeatures(t *testing.T) {
	env := newTestEnv(t)
	brand := decode[models.Brand](t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Audi"}`))
	car := decode[models.Car](t, env.do(http.MethodPost, "/api/cars", models.RoleAdmin,
		`{"brand_id":`+itoa(brand.ID)+`,"model":"A4","year":2021,"price":30000}`))
	sunroof := decode[models.Feature](t, env.do(http.MethodPost, "/api/features", models.RoleAdmin, `{"name":"Sunroof"}`))
	heated := decode[models.Feature](t, env.do(http.MethodPost, "/api/features", models.RoleAdmin, `{"name":"Heated seats"}`))

	carPath := "/api/cars/" + itoa(car.ID)
	expectStatus(t, env.do(http.MethodPost, carPath+"/images", models.RoleAdmin, `{"url":"https://cdn.volterra.test/a4-2.jpg","position":2}`), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, carPath+"/images", models.RoleAdmin, `{"url":"https://cdn.volterra.test/a4-1.jpg","position":1}`), http.StatusCreated)
	expectErrorCode(t, env.do(http.MethodPost, carPath+"/images", models.RoleAdmin, `{"url":"not a url"}`), http.StatusBadRequest, "invalid_request")

	rec := env.do(http.MethodPut, carPath+"/features", models.RoleAdmin,
		`{"feature_ids":[`+itoa(sunroof.ID)+`,`+itoa(heated.ID)+`]}`)
	expectStatus(t, rec, http.StatusOK)
	expectErrorCode(t, env.do(http.MethodPut, carPath+"/features", models.RoleAdmin, `{"feature_ids":[999]}`), http.StatusConflict, "invalid_reference")

	detail := decode[models.CarDetail](t, env.do(http.MethodGet, carPath, "", ""))
	if len(detail.Images) != 2 || detail.Images[0].Position != 1 {
		t.Fatalf("expected all images ordered by position, got %+v", detail.Images)
	}
	if len(detail.Features) != 2 || detail.Features[0].Name != "Heated seats" {
		t.Fatalf("expected features sorted by name, got %+v", detail.Features)
	}

	summaries := decode[[]models.CarSummary](t, env.do(http.MethodGet, "/api/cars", "", ""))
	if len(summaries[0].Images) != 1 || summaries[0].Images[0].Position != 1 {
		t.Fatalf("expected only the first image in list view, got %+v", summaries[0].Images)
	}
}

func TestBookingStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	member := decode[models.Member](t, env.do(http.MethodPost, "/api/members", models.RoleAdmin, `{"name":"Dewi","email":"dewi@example.com"}`))
	rec := env.do(http.MethodPost, "/api/bookings", models.RoleStaff,
		`{"member_id":`+itoa(member.ID)+`,"service_type":"oil change","scheduled_at":"2024-05-01T09:00:00Z"}`)
	expectStatus(t, rec, http.StatusCreated)
	booking := decode[models.ServiceBooking](t, rec)
	if booking.Status != models.BookingPending {
		t.Fatalf("expected pending booking, got %s", booking.Status)
	}
	expectErrorCode(t, env.do(http.MethodPost, "/api/bookings", models.RoleStaff,
		`{"member_id":999,"service_type":"oil change","scheduled_at":"2024-05-01T09:00:00Z"}`), http.StatusConflict, "invalid_reference")

	statusPath := "/api/bookings/" + itoa(booking.ID) + "/status"
	expectErrorCode(t, env.do(http.MethodPatch, statusPath, models.RoleStaff, `{"status":"completed"}`), http.StatusConflict, "invalid_state")
	expectErrorCode(t, env.do(http.MethodPatch, statusPath, models.RoleStaff, `{"status":"teleported"}`), http.StatusBadRequest, "invalid_request")
	expectStatus(t, env.do(http.MethodPatch, statusPath, models.RoleStaff, `{"status":"confirmed"}`), http.StatusOK)
	expectStatus(t, env.do(http.MethodPatch, statusPath, models.RoleStaff, `{"status":"completed"}`), http.StatusOK)

	detail := decode[models.BookingDetail](t, env.do(http.MethodGet, "/api/bookings/"+itoa(booking.ID), models.RoleStaff, ""))
	if detail.Status != models.BookingCompleted || detail.Member.Name != "Dewi" || detail.Car != nil {
		t.Fatalf("unexpected booking detail %+v", detail)
	}
}

func TestSellListingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	brand := decode[models.Brand](t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Mazda"}`))
	car := decode[models.Car](t, env.do(http.MethodPost, "/api/cars", models.RoleAdmin,
		`{"brand_id":`+itoa(brand.ID)+`,"model":"CX-5","year":2019,"price":20000}`))
	member := decode[models.Member](t, env.do(http.MethodPost, "/api/members", models.RoleAdmin, `{"name":"Eka","email":"eka@example.com"}`))

	body := `{"car_id":` + itoa(car.ID) + `,"member_id":` + itoa(member.ID) + `,"asking_price":18000}`
	expectErrorCode(t, env.do(http.MethodPost, "/api/sell-listings", models.RoleStaff, body), http.StatusForbidden, "access_denied")
	listing := decode[models.SellListing](t, env.do(http.MethodPost, "/api/sell-listings", models.RoleManager, body))

	statusPath := "/api/sell-listings/" + itoa(listing.ID) + "/status"
	expectErrorCode(t, env.do(http.MethodPatch, statusPath, models.RoleManager, `{"status":"sold"}`), http.StatusConflict, "invalid_state")
	expectStatus(t, env.do(http.MethodPatch, statusPath, models.RoleManager, `{"status":"approved"}`), http.StatusOK)
	expectStatus(t, env.do(http.MethodPatch, statusPath, models.RoleManager, `{"status":"sold"}`), http.StatusOK)

	detail := decode[models.ListingDetail](t, env.do(http.MethodGet, "/api/sell-listings/"+itoa(listing.ID), models.RoleAdmin, ""))
	if detail.Car.Status != models.CarStatusSold || detail.Brand.Name != "Mazda" || detail.Member.Email != "eka@example.com" {
		t.Fatalf("unexpected listing detail %+v", detail)
	}
	expectErrorCode(t, env.do(http.MethodDelete, "/api/cars/"+itoa(car.ID), models.RoleAdmin, ""), http.StatusConflict, "conflict")
}

func TestTicketActions(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/tickets", models.RoleStaff, `{"subject":"Warranty claim","message":"Door rattles"}`)
	expectStatus(t, rec, http.StatusCreated)
	ticket := decode[models.Ticket](t, rec)
	if ticket.Status != models.TicketOpen || ticket.Priority != models.PriorityNormal {
		t.Fatalf("unexpected new ticket %+v", ticket)
	}
	base := "/api/tickets/" + itoa(ticket.ID)

	expectErrorCode(t, env.do(http.MethodPost, base+"/escalate", models.RoleStaff, ""), http.StatusNotFound, "not_found")
	expectErrorCode(t, env.do(http.MethodPost, base+"/assign", models.RoleStaff, `{}`), http.StatusBadRequest, "invalid_request")

	assignee := env.users[models.RoleStaff].ID
	assigned := decode[models.Ticket](t, env.do(http.MethodPost, base+"/assign", models.RoleStaff, `{"assigned_to":`+itoa(assignee)+`}`))
	if assigned.AssignedTo == nil || *assigned.AssignedTo != assignee || assigned.Status != models.TicketOpen {
		t.Fatalf("unexpected assigned ticket %+v", assigned)
	}

	started := decode[models.Ticket](t, env.do(http.MethodPost, base+"/start", models.RoleStaff, ""))
	if started.Status != models.TicketInProgress {
		t.Fatalf("expected in_progress, got %s", started.Status)
	}
	expectErrorCode(t, env.do(http.MethodPost, base+"/start", models.RoleStaff, ""), http.StatusConflict, "invalid_state")
	expectErrorCode(t, env.do(http.MethodPost, base+"/reopen", models.RoleStaff, ""), http.StatusConflict, "invalid_state")
	expectStatus(t, env.do(http.MethodPost, base+"/resolve", models.RoleStaff, ""), http.StatusOK)
	expectStatus(t, env.do(http.MethodPost, base+"/close", models.RoleStaff, ""), http.StatusOK)
	reopened := decode[models.Ticket](t, env.do(http.MethodPost, base+"/reopen", models.RoleStaff, ""))
	if reopened.Status != models.TicketOpen {
		t.Fatalf("expected open after reopen, got %s", reopened.Status)
	}
	expectErrorCode(t, env.do(http.MethodPost, "/api/tickets/999/start", models.RoleStaff, ""), http.StatusNotFound, "not_found")
}

func TestAuditAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Audi"}`), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, "/api/features", models.RoleManager, `{"name":"Sunroof"}`), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, "/api/tickets", models.RoleStaff, `{"subject":"Callback"}`), http.StatusCreated)

	expectErrorCode(t, env.do(http.MethodGet, "/api/audit?user_id=abc", models.RoleAdmin, ""), http.StatusBadRequest, "invalid_request")

	entries := decode[[]models.AuditEntry](t, env.do(http.MethodGet, "/api/audit?action=brand.create", models.RoleAdmin, ""))
	if len(entries) != 1 || entries[0].ActorUserID != env.users[models.RoleAdmin].ID {
		t.Fatalf("unexpected audit entries %+v", entries)
	}
	managerID := env.users[models.RoleManager].ID
	entries = decode[[]models.AuditEntry](t, env.do(http.MethodGet, "/api/audit?user_id="+itoa(managerID), models.RoleAdmin, ""))
	if len(entries) != 1 || entries[0].Action != "feature.create" {
		t.Fatalf("unexpected manager audit entries %+v", entries)
	}

	summary := decode[models.DashboardSummary](t, env.do(http.MethodGet, "/api/dashboard/summary", models.RoleStaff, ""))
	if summary.Brands != 1 || summary.OpenTickets != 1 || summary.CarsByStatus[models.CarStatusSold] != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	expectErrorCode(t, env.do(http.MethodGet, "/api/dashboard/summary", "", ""), http.StatusUnauthorized, "unauthorized")
}

func TestAuditWithoutPermissionShowsOwnEntries(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(http.MethodPost, "/api/brands", models.RoleAdmin, `{"name":"Audi"}`), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, "/api/features", models.RoleManager, `{"name":"Sunroof"}`), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, "/api/features", models.RoleManager, `{"name":"Heated seats"}`), http.StatusCreated)

	expectErrorCode(t, env.do(http.MethodGet, "/api/audit", "", ""), http.StatusUnauthorized, "unauthorized")

	managerID := env.users[models.RoleManager].ID
	entries := decode[[]models.AuditEntry](t, env.do(http.MethodGet, "/api/audit", models.RoleManager, ""))
	if len(entries) != 2 {
		t.Fatalf("expected 2 own entries, got %+v", entries)
	}
	for _, entry := range entries {
		if entry.ActorUserID != managerID {
			t.Fatalf("expected only manager entries, got %+v", entries)
		}
	}
	expectStatus(t, env.do(http.MethodGet, "/api/audit?user_id="+itoa(managerID), models.RoleManager, ""), http.StatusOK)
	expectErrorCode(t, env.do(http.MethodGet, "/api/audit?user_id="+itoa(env.users[models.RoleAdmin].ID), models.RoleManager, ""),
		http.StatusForbidden, "access_denied")
	expectErrorCode(t, env.do(http.MethodGet, "/api/audit?user_id=abc", models.RoleStaff, ""), http.StatusBadRequest, "invalid_request")

	if staff := decode[[]models.AuditEntry](t, env.do(http.MethodGet, "/api/audit", models.RoleStaff, "")); len(staff) != 0 {
		t.Fatalf("expected no staff entries, got %+v", staff)
	}
	if all := decode[[]models.AuditEntry](t, env.do(http.MethodGet, "/api/audit", models.RoleAdmin, "")); len(all) != 3 {
		t.Fatalf("expected 3 entries for admin, got %+v", all)
	}
}

type fakeStore struct {
	*memory.Store
	listBrandsFn func(ctx context.Context) ([]models.BrandWithCount, error)
	getSessionFn func(ctx context.Context, sessionID string) (models.Session, error)
}

func (f *fakeStore) ListBrands(ctx context.Context) ([]models.BrandWithCount, error) {
	if f.listBrandsFn != nil {
		return f.listBrandsFn(ctx)
	}
	return f.Store.ListBrands(ctx)
}

func (f *fakeStore) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	if f.getSessionFn != nil {
		return f.getSessionFn(ctx, sessionID)
	}
	return f.Store.GetSession(ctx, sessionID)
}

func TestStoreFaultsAreInternalErrors(t *testing.T) {
	env := newTestEnvWith(t, func(st *memory.Store) store.Store {
		return &fakeStore{
			Store: st,
			listBrandsFn: func(ctx context.Context) ([]models.BrandWithCount, error) {
				return nil, errors.New("connection reset by peer")
			},
			getSessionFn: func(ctx context.Context, sessionID string) (models.Session, error) {
				if sessionID == "broken" {
					return models.Session{}, errors.New("pool exhausted")
				}
				return st.GetSession(ctx, sessionID)
			},
		}
	}, Options{})

	rec := env.do(http.MethodGet, "/api/brands", "", "")
	expectErrorCode(t, rec, http.StatusInternalServerError, "internal_error")
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer broken")
	sessionRec := httptest.NewRecorder()
	env.handler.ServeHTTP(sessionRec, req)
	expectErrorCode(t, sessionRec, http.StatusInternalServerError, "internal_error")
}

func TestRateLimitByIP(t *testing.T) {
	env := newTestEnvWith(t, nil, Options{RateLimit: &RateLimitConfig{IPPerMinute: 1, IPBurst: 2, UserPerMinute: 100, UserBurst: 100}})
	expectStatus(t, env.do(http.MethodGet, "/healthz", "", ""), http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, "/healthz", "", ""), http.StatusOK)
	expectErrorCode(t, env.do(http.MethodGet, "/healthz", "", ""), http.StatusTooManyRequests, "rate_limited")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(http.MethodGet, "/api/brands", "", ""), http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, "/api/brands/nope", "", ""), http.StatusNotFound)

	rec := env.do(http.MethodGet, "/metrics", "", "")
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, name := range []string{"http_requests_total", "http_request_errors_total", "http_request_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
	if !strings.Contains(body, `route="/api/brands/{id}"`) {
		t.Fatalf("expected route pattern label, got %s", body)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)
	expectErrorCode(t, env.do(http.MethodGet, "/api/nowhere", "", ""), http.StatusNotFound, "not_found")
	expectErrorCode(t, env.do(http.MethodPatch, "/api/brands", models.RoleAdmin, `{}`), http.StatusMethodNotAllowed, "method_not_allowed")
}
