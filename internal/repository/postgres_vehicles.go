package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefleet-dashboard/internal/domain"
)

// PostgresVehiclesRepository vehicles repository backed by PostgreSQL
type PostgresVehiclesRepository struct {
	db *sql.DB
}

// NewPostgresVehiclesRepository creates a vehicles repository
func NewPostgresVehiclesRepository(db *sql.DB) *PostgresVehiclesRepository {
	return &PostgresVehiclesRepository{db: db}
}

// 确保实现了接口
var _ VehiclesRepository = (*PostgresVehiclesRepository)(nil)

const vehicleColumns = `
	vehicle_id::text,
	owner_id,
	make,
	model,
	year,
	vin,
	mileage,
	next_service_mileage,
	fuel_type,
	status,
	created_at
`

// ListVehicles returns every vehicle of one owner, oldest first.
// Display ordering is the view engine's job, not the store's.
func (r *PostgresVehiclesRepository) ListVehicles(ctx context.Context, ownerID string) ([]domain.VehicleRecord, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE owner_id = $1
		ORDER BY created_at, vehicle_id
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.VehicleRecord
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vehicles: %w", err)
	}

	return vehicles, nil
}

// GetVehicle returns one vehicle scoped to its owner
func (r *PostgresVehiclesRepository) GetVehicle(ctx context.Context, ownerID, vehicleID string) (*domain.VehicleRecord, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE owner_id = $1 AND vehicle_id::text = $2
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query vehicle: %w", err)
		}
		return nil, sql.ErrNoRows
	}
	v, err := scanVehicle(rows)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVehicle inserts a draft; the database assigns id and created_at
func (r *PostgresVehiclesRepository) CreateVehicle(ctx context.Context, ownerID string, draft domain.VehicleDraft) (string, error) {
	query := `
		INSERT INTO vehicles (owner_id, make, model, year, vin, mileage, next_service_mileage, fuel_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING vehicle_id::text
	`

	var year sql.NullInt64
	if y := draft.YearPtr(); y != nil {
		year = sql.NullInt64{Int64: int64(*y), Valid: true}
	}

	var id string
	err := r.db.QueryRowContext(ctx, query,
		ownerID,
		draft.Make,
		draft.Model,
		year,
		draft.VIN,
		int(draft.Mileage),
		int(draft.NextServiceMileage),
		draft.FuelType,
		draft.Status,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert vehicle: %w", err)
	}

	return id, nil
}

// UpdateVehicleMileage applies an odometer reading, monotonically
func (r *PostgresVehiclesRepository) UpdateVehicleMileage(ctx context.Context, vehicleID string, mileage int) (string, error) {
	query := `
		UPDATE vehicles
		SET mileage = $2
		WHERE vehicle_id::text = $1 AND mileage < $2
		RETURNING owner_id
	`

	var ownerID string
	if err := r.db.QueryRowContext(ctx, query, vehicleID, mileage).Scan(&ownerID); err != nil {
		// sql.ErrNoRows passes through so callers can treat it as a skipped reading
		return "", err
	}
	return ownerID, nil
}

func scanVehicle(rows *sql.Rows) (domain.VehicleRecord, error) {
	var v domain.VehicleRecord
	var year sql.NullInt64

	if err := rows.Scan(
		&v.ID,
		&v.OwnerID,
		&v.Make,
		&v.Model,
		&year,
		&v.VIN,
		&v.Mileage,
		&v.NextServiceMileage,
		&v.FuelType,
		&v.Status,
		&v.CreatedAt,
	); err != nil {
		return domain.VehicleRecord{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}

	if year.Valid {
		y := int(year.Int64)
		v.Year = &y
	}
	return v, nil
}
