package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

// ListingRepo provides CRUD operations for listings.
type ListingRepo struct{ db *sql.DB }

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingColumns = `id, title, description, price_per_night, location, bedrooms, bathrooms,
	max_guests, amenities, is_available, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }, l *model.Listing) error {
	return row.Scan(&l.ID, &l.Title, &l.Description, &l.PricePerNight, &l.Location,
		&l.Bedrooms, &l.Bathrooms, &l.MaxGuests, &l.Amenities, &l.IsAvailable,
		&l.CreatedAt, &l.UpdatedAt)
}

// List returns listings ordered by id.  When onlyAvailable is true,
// listings that do not accept bookings are left out.
func (r *ListingRepo) List(ctx context.Context, onlyAvailable bool) ([]model.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings`
	if onlyAvailable {
		q += ` WHERE is_available = 1`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		var l model.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetByID returns the listing with the given id or ErrNotFound.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	var l model.Listing
	err := scanListing(r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id), &l)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrNotFound
	}
	return l, err
}

// Create inserts l and refreshes it from the database so the generated id
// and timestamps are populated.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (title, description, price_per_night, location, bedrooms, bathrooms, max_guests, amenities, is_available)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Title, l.Description, l.PricePerNight, l.Location, l.Bedrooms, l.Bathrooms, l.MaxGuests, l.Amenities, l.IsAvailable)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*l = fresh
	return nil
}

// Update overwrites every editable column of the listing identified by
// l.ID.  It returns ErrNotFound when no such listing exists.
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, price_per_night = ?, location = ?, bedrooms = ?,
		        bathrooms = ?, max_guests = ?, amenities = ?, is_available = ?
		 WHERE id = ?`,
		l.Title, l.Description, l.PricePerNight, l.Location, l.Bedrooms, l.Bathrooms, l.MaxGuests, l.Amenities, l.IsAvailable, l.ID)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so check existence.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, l.ID); err != nil {
			return err
		}
	}
	fresh, err := r.GetByID(ctx, l.ID)
	if err != nil {
		return err
	}
	*l = fresh
	return nil
}

// Delete removes the listing.  Bookings and payments attached to it are
// removed by the foreign key cascade.
func (r *ListingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
