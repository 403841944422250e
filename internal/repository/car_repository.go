package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/car-rental/internal/model"
)

// CarRepo provides CRUD operations for the car catalog.  Features are
// stored as a JSON array column.
type CarRepo struct {
	db *sql.DB
}

// NewCarRepo returns a new CarRepo bound to the given database.
func NewCarRepo(db *sql.DB) *CarRepo { return &CarRepo{db: db} }

const carSelect = `SELECT c.id, c.make, c.model, c.year, c.type, c.price_per_day, c.description, c.features,
	c.availability, c.created_by, c.last_modified_by, c.created_at, c.updated_at,
	s.car_id, s.transmission, s.fuel_type, s.seats, s.luggage, s.mileage
	FROM cars c LEFT JOIN car_specifications s ON s.car_id = c.id`

// List returns one page of cars ordered by newest first, together with the
// total number of cars.
func (r *CarRepo) List(ctx context.Context, limit, offset int) ([]model.Car, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cars").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		carSelect+" ORDER BY c.created_at DESC, c.id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	cars := []model.Car{}
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, 0, err
		}
		cars = append(cars, *c)
	}
	return cars, total, rows.Err()
}

// GetByID returns a car or ErrNotFound.
func (r *CarRepo) GetByID(ctx context.Context, id string) (*model.Car, error) {
	row := r.db.QueryRowContext(ctx, carSelect+" WHERE c.id = ?", id)
	return scanCar(row)
}

// Create inserts a car and, when present, its specifications in one
// transaction.  A duplicate slug is ErrConflict.
func (r *CarRepo) Create(ctx context.Context, c *model.Car) error {
	features, err := encodeFeatures(c.Features)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO cars (id, make, model, year, type, price_per_day, description, features,
	           availability, created_by, last_modified_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q, c.ID, c.Make, c.Model, c.Year, c.Type, c.PricePerDay,
		c.Description, features, c.Availability, c.CreatedBy, c.LastModifiedBy)
	if err != nil {
		if isMySQLError(err, errDupEntry) {
			return ErrConflict
		}
		return err
	}
	if err := upsertSpecs(ctx, tx, c.ID, c.Specifications); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update overwrites the mutable columns of a car.  Non-nil specifications
// replace the stored row; nil leaves it untouched.  ErrNotFound when the id
// does not exist.
func (r *CarRepo) Update(ctx context.Context, c *model.Car) error {
	features, err := encodeFeatures(c.Features)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE cars SET make = ?, model = ?, year = ?, type = ?, price_per_day = ?,
	           description = ?, features = ?, availability = ?, last_modified_by = ?
	           WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, c.Make, c.Model, c.Year, c.Type, c.PricePerDay,
		c.Description, features, c.Availability, c.LastModifiedBy, c.ID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := upsertSpecs(ctx, tx, c.ID, c.Specifications); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a car; its specifications go with it.  Cars referenced
// by any booking, including cancelled ones kept for audit, cannot be
// deleted: ErrConflict.
func (r *CarRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cars WHERE id = ?", id)
	if err != nil {
		if isMySQLError(err, errRowIsReferenced) {
			return ErrConflict
		}
		return err
	}
	return requireAffected(res)
}

func upsertSpecs(ctx context.Context, tx *sql.Tx, carID string, sp *model.CarSpecifications) error {
	if sp == nil {
		return nil
	}
	const q = `INSERT INTO car_specifications (car_id, transmission, fuel_type, seats, luggage, mileage)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE transmission = VALUES(transmission), fuel_type = VALUES(fuel_type),
	           seats = VALUES(seats), luggage = VALUES(luggage), mileage = VALUES(mileage)`
	_, err := tx.ExecContext(ctx, q, carID, sp.Transmission, sp.FuelType, sp.Seats, sp.Luggage, sp.Mileage)
	return err
}

func scanCar(s rowScanner) (*model.Car, error) {
	var (
		c        model.Car
		desc     sql.NullString
		features []byte
		specCar  sql.NullString
		trans    sql.NullString
		fuel     sql.NullString
		seats    sql.NullInt64
		luggage  sql.NullInt64
		mileage  sql.NullString
	)
	err := s.Scan(&c.ID, &c.Make, &c.Model, &c.Year, &c.Type, &c.PricePerDay, &desc, &features,
		&c.Availability, &c.CreatedBy, &c.LastModifiedBy, &c.CreatedAt, &c.UpdatedAt,
		&specCar, &trans, &fuel, &seats, &luggage, &mileage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Description = nullStr(desc)
	c.Features = []string{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &c.Features); err != nil {
			return nil, err
		}
	}
	if specCar.Valid {
		c.Specifications = &model.CarSpecifications{
			Transmission: nullStr(trans),
			FuelType:     nullStr(fuel),
			Seats:        nullInt(seats),
			Luggage:      nullInt(luggage),
			Mileage:      nullStr(mileage),
		}
	}
	return &c, nil
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	i := int(n.Int64)
	return &i
}

func encodeFeatures(f []string) (string, error) {
	if f == nil {
		f = []string{}
	}
	b, err := json.Marshal(f)
	return string(b), err
}
