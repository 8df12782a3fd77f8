package postgres

import (
	"context"
	"errors"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/jackc/pgx/v5"
)

const carColumns = `c.car_id, c.brand_id, c.model, c.year, c.price, c.mileage, c.fuel_type,
	c.transmission, c.color, c.description, c.status, c.created_at, c.updated_at`

const brandColumns = `b.brand_id, b.name, b.slug, b.logo_url, b.created_at`

func carFields(car *models.Car) []any {
	return []any{&car.ID, &car.BrandID, &car.Model, &car.Year, &car.Price, &car.Mileage, &car.FuelType,
		&car.Transmission, &car.Color, &car.Description, &car.Status, &car.CreatedAt, &car.UpdatedAt}
}

func brandFields(brand *models.Brand) []any {
	return []any{&brand.ID, &brand.Name, &brand.Slug, &brand.LogoURL, &brand.CreatedAt}
}

func normalizeCar(car *models.Car) {
	car.CreatedAt = car.CreatedAt.UTC()
	car.UpdatedAt = car.UpdatedAt.UTC()
}

func (s *Store) ListBrands(ctx context.Context) ([]models.BrandWithCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+brandColumns+`, COUNT(c.car_id)
		FROM brands b
		LEFT JOIN cars c ON c.brand_id = b.brand_id
		GROUP BY b.brand_id
		ORDER BY lower(b.name) COLLATE "C", b.name COLLATE "C", b.brand_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := []models.BrandWithCount{}
	for rows.Next() {
		var brand models.BrandWithCount
		if err := rows.Scan(append(brandFields(&brand.Brand), &brand.CarCount)...); err != nil {
			return nil, err
		}
		brand.CreatedAt = brand.CreatedAt.UTC()
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Store) GetBrand(ctx context.Context, brandID int64) (models.BrandDetail, bool, error) {
	var detail models.BrandDetail
	row := s.pool.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands b WHERE b.brand_id = $1`, brandID)
	if err := row.Scan(brandFields(&detail.Brand)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BrandDetail{}, false, nil
		}
		return models.BrandDetail{}, false, err
	}
	detail.CreatedAt = detail.CreatedAt.UTC()

	rows, err := s.pool.Query(ctx, `
		SELECT `+carColumns+`
		FROM cars c
		WHERE c.brand_id = $1
		ORDER BY c.created_at DESC, c.car_id DESC
	`, brandID)
	if err != nil {
		return models.BrandDetail{}, false, err
	}
	defer rows.Close()

	detail.Cars = []models.Car{}
	for rows.Next() {
		var car models.Car
		if err := rows.Scan(carFields(&car)...); err != nil {
			return models.BrandDetail{}, false, err
		}
		normalizeCar(&car)
		detail.Cars = append(detail.Cars, car)
	}
	if err := rows.Err(); err != nil {
		return models.BrandDetail{}, false, err
	}
	return detail, true, nil
}

func (s *Store) CreateBrand(ctx context.Context, brand models.Brand) (models.Brand, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO brands (name, slug, logo_url)
		VALUES ($1, $2, $3)
		RETURNING brand_id, created_at
	`, brand.Name, brand.Slug, brand.LogoURL)
	if err := row.Scan(&brand.ID, &brand.CreatedAt); err != nil {
		return models.Brand{}, mapError(err)
	}
	brand.CreatedAt = brand.CreatedAt.UTC()
	return brand, nil
}

func (s *Store) UpdateBrand(ctx context.Context, brand models.Brand) (models.Brand, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE brands
		SET name = $1, slug = $2, logo_url = $3
		WHERE brand_id = $4
		RETURNING created_at
	`, brand.Name, brand.Slug, brand.LogoURL, brand.ID)
	if err := row.Scan(&brand.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Brand{}, store.ErrNotFound
		}
		return models.Brand{}, mapError(err)
	}
	brand.CreatedAt = brand.CreatedAt.UTC()
	return brand, nil
}

func (s *Store) DeleteBrand(ctx context.Context, brandID int64) error {
	var count int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM cars WHERE brand_id = $1`, brandID)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return store.ErrBrandHasCars
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM brands WHERE brand_id = $1`, brandID)
	if err != nil {
		if errors.Is(mapError(err), store.ErrInvalidReference) {
			return store.ErrBrandHasCars
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCars(ctx context.Context) ([]models.CarSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+carColumns+`, `+brandColumns+`,
		       i.image_id, i.url, i.position
		FROM cars c
		JOIN brands b ON b.brand_id = c.brand_id
		LEFT JOIN LATERAL (
			SELECT image_id, url, position
			FROM car_images
			WHERE car_id = c.car_id
			ORDER BY position ASC, image_id ASC
			LIMIT 1
		) i ON TRUE
		ORDER BY c.created_at DESC, c.car_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := []models.CarSummary{}
	for rows.Next() {
		var summary models.CarSummary
		var imageID *int64
		var imageURL *string
		var position *int
		fields := append(carFields(&summary.Car), brandFields(&summary.Brand)...)
		fields = append(fields, &imageID, &imageURL, &position)
		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}
		normalizeCar(&summary.Car)
		summary.Brand.CreatedAt = summary.Brand.CreatedAt.UTC()
		summary.Images = []models.CarImage{}
		if imageID != nil {
			summary.Images = append(summary.Images, models.CarImage{ID: *imageID, CarID: summary.ID, URL: *imageURL, Position: *position})
		}
		cars = append(cars, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cars, nil
}

func (s *Store) GetCar(ctx context.Context, carID int64) (models.CarDetail, bool, error) {
	var detail models.CarDetail
	row := s.pool.QueryRow(ctx, `
		SELECT `+carColumns+`, `+brandColumns+`
		FROM cars c
		JOIN brands b ON b.brand_id = c.brand_id
		WHERE c.car_id = $1
	`, carID)
	if err := row.Scan(append(carFields(&detail.Car), brandFields(&detail.Brand)...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CarDetail{}, false, nil
		}
		return models.CarDetail{}, false, err
	}
	normalizeCar(&detail.Car)
	detail.Brand.CreatedAt = detail.Brand.CreatedAt.UTC()

	images, err := s.carImages(ctx, carID, 0)
	if err != nil {
		return models.CarDetail{}, false, err
	}
	features, err := s.carFeatures(ctx, carID)
	if err != nil {
		return models.CarDetail{}, false, err
	}
	detail.Images = images
	detail.Features = features
	return detail, true, nil
}

// carImages lists images by position; limit <= 0 returns all of them.
func (s *Store) carImages(ctx context.Context, carID int64, limit int) ([]models.CarImage, error) {
	query := `
		SELECT image_id, car_id, url, position
		FROM car_images
		WHERE car_id = $1
		ORDER BY position ASC, image_id ASC
	`
	args := []any{carID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []models.CarImage{}
	for rows.Next() {
		var image models.CarImage
		if err := rows.Scan(&image.ID, &image.CarID, &image.URL, &image.Position); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (s *Store) carFeatures(ctx context.Context, carID int64) ([]models.Feature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.feature_id, f.name, f.created_at
		FROM car_features cf
		JOIN features f ON f.feature_id = cf.feature_id
		WHERE cf.car_id = $1
		ORDER BY lower(f.name) COLLATE "C", f.name COLLATE "C", f.feature_id
	`, carID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeatures(rows)
}

func (s *Store) CreateCar(ctx context.Context, car models.Car) (models.Car, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO cars (brand_id, model, year, price, mileage, fuel_type, transmission, color, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING car_id, created_at, updated_at
	`, car.BrandID, car.Model, car.Year, car.Price, car.Mileage, car.FuelType, car.Transmission, car.Color, car.Description, car.Status)
	if err := row.Scan(&car.ID, &car.CreatedAt, &car.UpdatedAt); err != nil {
		return models.Car{}, mapError(err)
	}
	normalizeCar(&car)
	return car, nil
}

func (s *Store) UpdateCar(ctx context.Context, car models.Car) (models.Car, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE cars
		SET brand_id = $1, model = $2, year = $3, price = $4, mileage = $5, fuel_type = $6,
		    transmission = $7, color = $8, description = $9, status = $10, updated_at = NOW()
		WHERE car_id = $11
		RETURNING created_at, updated_at
	`, car.BrandID, car.Model, car.Year, car.Price, car.Mileage, car.FuelType, car.Transmission, car.Color, car.Description, car.Status, car.ID)
	if err := row.Scan(&car.CreatedAt, &car.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Car{}, store.ErrNotFound
		}
		return models.Car{}, mapError(err)
	}
	normalizeCar(&car)
	return car, nil
}

func (s *Store) DeleteCar(ctx context.Context, carID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cars WHERE car_id = $1`, carID)
	if err != nil {
		if errors.Is(mapError(err), store.ErrInvalidReference) {
			return store.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddCarImage(ctx context.Context, image models.CarImage) (models.CarImage, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO car_images (car_id, url, position)
		VALUES ($1, $2, $3)
		RETURNING image_id
	`, image.CarID, image.URL, image.Position)
	if err := row.Scan(&image.ID); err != nil {
		if errors.Is(mapError(err), store.ErrInvalidReference) {
			return models.CarImage{}, store.ErrNotFound
		}
		return models.CarImage{}, err
	}
	return image, nil
}

func (s *Store) SetCarFeatures(ctx context.Context, carID int64, featureIDs []int64) (features []models.Feature, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var lockedID int64
	if err = tx.QueryRow(ctx, `SELECT car_id FROM cars WHERE car_id = $1 FOR UPDATE`, carID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNotFound
		}
		return nil, err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM car_features WHERE car_id = $1`, carID); err != nil {
		return nil, err
	}
	for _, featureID := range featureIDs {
		if _, err = tx.Exec(ctx, `
			INSERT INTO car_features (car_id, feature_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, carID, featureID); err != nil {
			err = mapError(err)
			return nil, err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.carFeatures(ctx, carID)
}

func (s *Store) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT feature_id, name, created_at
		FROM features
		ORDER BY lower(name) COLLATE "C", name COLLATE "C", feature_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeatures(rows)
}

func scanFeatures(rows pgx.Rows) ([]models.Feature, error) {
	features := []models.Feature{}
	for rows.Next() {
		var feature models.Feature
		if err := rows.Scan(&feature.ID, &feature.Name, &feature.CreatedAt); err != nil {
			return nil, err
		}
		feature.CreatedAt = feature.CreatedAt.UTC()
		features = append(features, feature)
	}
	return features, rows.Err()
}

func (s *Store) CreateFeature(ctx context.Context, feature models.Feature) (models.Feature, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO features (name)
		VALUES ($1)
		RETURNING feature_id, created_at
	`, feature.Name)
	if err := row.Scan(&feature.ID, &feature.CreatedAt); err != nil {
		return models.Feature{}, mapError(err)
	}
	feature.CreatedAt = feature.CreatedAt.UTC()
	return feature, nil
}

func (s *Store) UpdateFeature(ctx context.Context, feature models.Feature) (models.Feature, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE features
		SET name = $1
		WHERE feature_id = $2
		RETURNING created_at
	`, feature.Name, feature.ID)
	if err := row.Scan(&feature.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Feature{}, store.ErrNotFound
		}
		return models.Feature{}, mapError(err)
	}
	feature.CreatedAt = feature.CreatedAt.UTC()
	return feature, nil
}

func (s *Store) DeleteFeature(ctx context.Context, featureID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM features WHERE feature_id = $1`, featureID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
