package memory

import (
	"context"
	"sort"
	"strings"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"
)

func (s *Store) ListBrands(ctx context.Context) ([]models.BrandWithCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int)
	for _, car := range s.cars {
		counts[car.BrandID]++
	}
	brands := make([]models.BrandWithCount, 0, len(s.brands))
	for _, brand := range s.brands {
		brands = append(brands, models.BrandWithCount{Brand: brand, CarCount: counts[brand.ID]})
	}
	sort.Slice(brands, func(i, j int) bool {
		return nameBefore(brands[i].Name, brands[i].ID, brands[j].Name, brands[j].ID)
	})
	return brands, nil
}

func (s *Store) GetBrand(ctx context.Context, brandID int64) (models.BrandDetail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brand, ok := s.brands[brandID]
	if !ok {
		return models.BrandDetail{}, false, nil
	}
	cars := []models.Car{}
	for _, car := range s.cars {
		if car.BrandID == brandID {
			cars = append(cars, car)
		}
	}
	sortCarsNewestFirst(cars)
	return models.BrandDetail{Brand: brand, Cars: cars}, true, nil
}

func (s *Store) CreateBrand(ctx context.Context, brand models.Brand) (models.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.brandTaken(brand, 0) {
		return models.Brand{}, store.ErrConflict
	}
	brand.ID = s.nextID("brands")
	brand.CreatedAt = s.now()
	s.brands[brand.ID] = brand
	return brand, nil
}

func (s *Store) UpdateBrand(ctx context.Context, brand models.Brand) (models.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.brands[brand.ID]
	if !ok {
		return models.Brand{}, store.ErrNotFound
	}
	if s.brandTaken(brand, brand.ID) {
		return models.Brand{}, store.ErrConflict
	}
	brand.CreatedAt = existing.CreatedAt
	s.brands[brand.ID] = brand
	return brand, nil
}

func (s *Store) brandTaken(brand models.Brand, exceptID int64) bool {
	for id, existing := range s.brands {
		if id == exceptID {
			continue
		}
		if strings.EqualFold(existing.Name, brand.Name) || existing.Slug == brand.Slug {
			return true
		}
	}
	return false
}

func (s *Store) DeleteBrand(ctx context.Context, brandID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.brands[brandID]; !ok {
		return store.ErrNotFound
	}
	for _, car := range s.cars {
		if car.BrandID == brandID {
			return store.ErrBrandHasCars
		}
	}
	delete(s.brands, brandID)
	return nil
}

func (s *Store) ListCars(ctx context.Context) ([]models.CarSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cars := make([]models.Car, 0, len(s.cars))
	for _, car := range s.cars {
		cars = append(cars, car)
	}
	sortCarsNewestFirst(cars)

	summaries := make([]models.CarSummary, 0, len(cars))
	for _, car := range cars {
		images := s.carImages(car.ID)
		if len(images) > 1 {
			images = images[:1]
		}
		summaries = append(summaries, models.CarSummary{Car: car, Brand: s.brands[car.BrandID], Images: images})
	}
	return summaries, nil
}

func (s *Store) GetCar(ctx context.Context, carID int64) (models.CarDetail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	car, ok := s.cars[carID]
	if !ok {
		return models.CarDetail{}, false, nil
	}
	return models.CarDetail{
		Car:      car,
		Brand:    s.brands[car.BrandID],
		Images:   s.carImages(carID),
		Features: s.carFeatureList(carID),
	}, true, nil
}

func (s *Store) CreateCar(ctx context.Context, car models.Car) (models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.brands[car.BrandID]; !ok {
		return models.Car{}, store.ErrInvalidReference
	}
	car.ID = s.nextID("cars")
	car.CreatedAt = s.now()
	car.UpdatedAt = car.CreatedAt
	s.cars[car.ID] = car
	return car, nil
}

func (s *Store) UpdateCar(ctx context.Context, car models.Car) (models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cars[car.ID]
	if !ok {
		return models.Car{}, store.ErrNotFound
	}
	if _, ok := s.brands[car.BrandID]; !ok {
		return models.Car{}, store.ErrInvalidReference
	}
	car.CreatedAt = existing.CreatedAt
	car.UpdatedAt = s.now()
	s.cars[car.ID] = car
	return car, nil
}

func (s *Store) DeleteCar(ctx context.Context, carID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[carID]; !ok {
		return store.ErrNotFound
	}
	for _, listing := range s.listings {
		if listing.CarID == carID {
			return store.ErrConflict
		}
	}
	for id, image := range s.images {
		if image.CarID == carID {
			delete(s.images, id)
		}
	}
	for id, booking := range s.bookings {
		if booking.CarID != nil && *booking.CarID == carID {
			booking.CarID = nil
			s.bookings[id] = booking
		}
	}
	delete(s.carFeatures, carID)
	delete(s.cars, carID)
	return nil
}

func (s *Store) AddCarImage(ctx context.Context, image models.CarImage) (models.CarImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[image.CarID]; !ok {
		return models.CarImage{}, store.ErrNotFound
	}
	image.ID = s.nextID("car_images")
	s.images[image.ID] = image
	return image, nil
}

func (s *Store) SetCarFeatures(ctx context.Context, carID int64, featureIDs []int64) ([]models.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[carID]; !ok {
		return nil, store.ErrNotFound
	}
	set := make(map[int64]struct{}, len(featureIDs))
	for _, featureID := range featureIDs {
		if _, ok := s.features[featureID]; !ok {
			return nil, store.ErrInvalidReference
		}
		set[featureID] = struct{}{}
	}
	s.carFeatures[carID] = set
	return s.carFeatureList(carID), nil
}

func (s *Store) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	features := make([]models.Feature, 0, len(s.features))
	for _, feature := range s.features {
		features = append(features, feature)
	}
	sortFeatures(features)
	return features, nil
}

func (s *Store) CreateFeature(ctx context.Context, feature models.Feature) (models.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.featureTaken(feature.Name, 0) {
		return models.Feature{}, store.ErrConflict
	}
	feature.ID = s.nextID("features")
	feature.CreatedAt = s.now()
	s.features[feature.ID] = feature
	return feature, nil
}

func (s *Store) UpdateFeature(ctx context.Context, feature models.Feature) (models.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.features[feature.ID]
	if !ok {
		return models.Feature{}, store.ErrNotFound
	}
	if s.featureTaken(feature.Name, feature.ID) {
		return models.Feature{}, store.ErrConflict
	}
	feature.CreatedAt = existing.CreatedAt
	s.features[feature.ID] = feature
	return feature, nil
}

func (s *Store) DeleteFeature(ctx context.Context, featureID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.features[featureID]; !ok {
		return store.ErrNotFound
	}
	for _, set := range s.carFeatures {
		delete(set, featureID)
	}
	delete(s.features, featureID)
	return nil
}

func (s *Store) featureTaken(name string, exceptID int64) bool {
	for id, existing := range s.features {
		if id != exceptID && strings.EqualFold(existing.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) carImages(carID int64) []models.CarImage {
	images := []models.CarImage{}
	for _, image := range s.images {
		if image.CarID == carID {
			images = append(images, image)
		}
	}
	sort.Slice(images, func(i, j int) bool {
		if images[i].Position != images[j].Position {
			return images[i].Position < images[j].Position
		}
		return images[i].ID < images[j].ID
	})
	return images
}

func (s *Store) carFeatureList(carID int64) []models.Feature {
	features := []models.Feature{}
	for featureID := range s.carFeatures[carID] {
		features = append(features, s.features[featureID])
	}
	sortFeatures(features)
	return features
}

func sortFeatures(features []models.Feature) {
	sort.Slice(features, func(i, j int) bool {
		return nameBefore(features[i].Name, features[i].ID, features[j].Name, features[j].ID)
	})
}

// nameBefore orders case-insensitively, then by exact name, then by id. It
// matches ORDER BY lower(name) COLLATE "C", name COLLATE "C", id.
func nameBefore(a string, aID int64, b string, bID int64) bool {
	if la, lb := strings.ToLower(a), strings.ToLower(b); la != lb {
		return la < lb
	}
	if a != b {
		return a < b
	}
	return aID < bID
}

func sortCarsNewestFirst(cars []models.Car) {
	sort.Slice(cars, func(i, j int) bool {
		if !cars[i].CreatedAt.Equal(cars[j].CreatedAt) {
			return cars[i].CreatedAt.After(cars[j].CreatedAt)
		}
		return cars[i].ID > cars[j].ID
	})
}
