package httpapi

import (
	"net/http"

	"volterra/admin-service/internal/models"

	"github.com/go-chi/chi/v5"
)

type carRequest struct {
	BrandID      int64  `json:"brand_id" validate:"required,gt=0"`
	Model        string `json:"model" validate:"required,max=100"`
	Year         int    `json:"year" validate:"required,gte=1900,lte=2100"`
	Price        int64  `json:"price" validate:"gte=0"`
	Mileage      int    `json:"mileage" validate:"gte=0"`
	FuelType     string `json:"fuel_type" validate:"max=40"`
	Transmission string `json:"transmission" validate:"max=40"`
	Color        string `json:"color" validate:"max=40"`
	Description  string `json:"description"`
	Status       string `json:"status" validate:"omitempty,oneof=available reserved sold"`
}

func (req carRequest) car() models.Car {
	status := req.Status
	if status == "" {
		status = models.CarStatusAvailable
	}
	return models.Car{
		BrandID:      req.BrandID,
		Model:        req.Model,
		Year:         req.Year,
		Price:        req.Price,
		Mileage:      req.Mileage,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Color:        req.Color,
		Description:  req.Description,
		Status:       status,
	}
}

type carImageRequest struct {
	URL      string `json:"url" validate:"required,url"`
	Position int    `json:"position" validate:"gte=0"`
}

type carFeaturesRequest struct {
	FeatureIDs []int64 `json:"feature_ids" validate:"dive,gt=0"`
}

func (h *Handler) carRoutes(r chi.Router) {
	r.Get("/", h.listCars)
	r.Get("/{id}", h.getCar)
	r.Group(func(r chi.Router) {
		r.Use(requirePermission(permissionCatalogWrite))
		r.Post("/", h.createCar)
		r.Put("/{id}", h.updateCar)
		r.Delete("/{id}", h.deleteCar)
		r.Post("/{id}/images", h.addCarImage)
		r.Put("/{id}/features", h.setCarFeatures)
	})
}

func (h *Handler) listCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.store.ListCars(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *Handler) getCar(w http.ResponseWriter, r *http.Request) {
	carID, ok := parseID(w, r)
	if !ok {
		return
	}
	car, found, err := h.store.GetCar(r.Context(), carID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *Handler) createCar(w http.ResponseWriter, r *http.Request) {
	var req carRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	created, err := h.store.CreateCar(r.Context(), req.car())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "car.create", "car", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCar(w http.ResponseWriter, r *http.Request) {
	carID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req carRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	car := req.car()
	car.ID = carID
	updated, err := h.store.UpdateCar(r.Context(), car)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "car.update", "car", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCar(w http.ResponseWriter, r *http.Request) {
	carID, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteCar(r.Context(), carID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "car.delete", "car", carID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCarImage(w http.ResponseWriter, r *http.Request) {
	carID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req carImageRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	image, err := h.store.AddCarImage(r.Context(), models.CarImage{CarID: carID, URL: req.URL, Position: req.Position})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "car.image.add", "car", carID)
	writeJSON(w, http.StatusCreated, image)
}

func (h *Handler) setCarFeatures(w http.ResponseWriter, r *http.Request) {
	carID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req carFeaturesRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	features, err := h.store.SetCarFeatures(r.Context(), carID, req.FeatureIDs)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "car.features.set", "car", carID)
	writeJSON(w, http.StatusOK, features)
}
