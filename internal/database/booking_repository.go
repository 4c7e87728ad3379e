package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/onehorn/event-booking-backend/internal/models"
)

const bookingColumns = `id, user_id, package_name, total_amount, event_date, status, event_details, created_at`

// bookingRow is the raw shape of a bookings row before validation
type bookingRow struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	PackageName  string    `db:"package_name"`
	TotalAmount  string    `db:"total_amount"`
	EventDate    time.Time `db:"event_date"`
	Status       string    `db:"status"`
	EventDetails []byte    `db:"event_details"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r bookingRow) toModel() (*models.Booking, error) {
	if r.ID == uuid.Nil || r.UserID == uuid.Nil {
		return nil, malformed("booking has nil id or owner")
	}
	if r.PackageName == "" {
		return nil, malformed("booking %s has no package", r.ID)
	}
	total, err := models.ParseMoney(r.TotalAmount)
	if err != nil {
		return nil, malformed("booking %s total_amount %q: %v", r.ID, r.TotalAmount, err)
	}
	status, err := models.ParseBookingStatus(r.Status)
	if err != nil {
		return nil, malformed("booking %s: %v", r.ID, err)
	}

	var details models.EventDetails
	if len(r.EventDetails) > 0 {
		if err := json.Unmarshal(r.EventDetails, &details); err != nil {
			return nil, malformed("booking %s event_details: %v", r.ID, err)
		}
	}

	return &models.Booking{
		ID:          r.ID,
		UserID:      r.UserID,
		PackageName: r.PackageName,
		TotalAmount: total,
		EventDate:   models.Date{Time: r.EventDate},
		Status:      status,
		Details:     details,
		CreatedAt:   r.CreatedAt,
	}, nil
}

// BookingRepository handles booking database operations
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a pending booking and returns the stored row
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	details, err := json.Marshal(booking.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event details: %w", err)
	}

	query := `
		INSERT INTO bookings (user_id, package_name, total_amount, event_date, status, event_details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + bookingColumns

	var row bookingRow
	err = r.db.GetContext(ctx, &row, query,
		booking.UserID,
		booking.PackageName,
		booking.TotalAmount,
		booking.EventDate.Time,
		string(booking.Status),
		string(details),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return row.toModel()
}

// GetByID retrieves a booking without its payments
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return row.toModel()
}

// ListByUser returns the user's bookings newest first, each with its payments
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]models.Booking, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		b, err := row.toModel()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
		ids = append(ids, b.ID)
	}
	if len(ids) == 0 {
		return bookings, nil
	}

	payments, err := listPaymentsByBookingIDs(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].Payments = payments[bookings[i].ID]
	}

	return bookings, nil
}

// UpdateStatus moves a booking from one status to another.
// It reports false when the booking was not in the expected status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// listPaymentsByBookingIDs loads the payments of several bookings in one query
func listPaymentsByBookingIDs(ctx context.Context, db DB, ids []uuid.UUID) (map[uuid.UUID][]models.Payment, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = ANY($1::uuid[])
		ORDER BY created_at`

	var rows []paymentRow
	if err := db.SelectContext(ctx, &rows, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	byBooking := make(map[uuid.UUID][]models.Payment, len(ids))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		byBooking[p.BookingID] = append(byBooking[p.BookingID], *p)
	}

	return byBooking, nil
}
