package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
)

const paymentColumns = `id, booking_id, stage, amount, status, payment_date, payment_method, transaction_id, gateway_order_id, created_at`

// paymentRow is the raw shape of a payments row before validation
type paymentRow struct {
	ID             uuid.UUID      `db:"id"`
	BookingID      uuid.UUID      `db:"booking_id"`
	Stage          string         `db:"stage"`
	Amount         string         `db:"amount"`
	Status         string         `db:"status"`
	PaymentDate    sql.NullTime   `db:"payment_date"`
	PaymentMethod  sql.NullString `db:"payment_method"`
	TransactionID  sql.NullString `db:"transaction_id"`
	GatewayOrderID sql.NullString `db:"gateway_order_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r paymentRow) toModel() (*models.Payment, error) {
	if r.ID == uuid.Nil || r.BookingID == uuid.Nil {
		return nil, malformed("payment has nil id or booking")
	}
	stage, err := models.ParsePaymentStage(r.Stage)
	if err != nil {
		return nil, malformed("payment %s: %v", r.ID, err)
	}
	status, err := models.ParsePaymentStatus(r.Status)
	if err != nil {
		return nil, malformed("payment %s: %v", r.ID, err)
	}
	amount, err := models.ParseMoney(r.Amount)
	if err != nil {
		return nil, malformed("payment %s amount %q: %v", r.ID, r.Amount, err)
	}
	if status == models.PaymentStatusPaid && !r.PaymentDate.Valid {
		return nil, malformed("payment %s is paid without a payment date", r.ID)
	}

	p := &models.Payment{
		ID:        r.ID,
		BookingID: r.BookingID,
		Stage:     stage,
		Amount:    amount,
		Status:    status,
		CreatedAt: r.CreatedAt,
	}
	if r.PaymentDate.Valid {
		t := r.PaymentDate.Time
		p.PaymentDate = &t
	}
	p.PaymentMethod = nullString(r.PaymentMethod)
	p.TransactionID = nullString(r.TransactionID)
	p.GatewayOrderID = nullString(r.GatewayOrderID)

	return p, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// PaymentRepository handles payment database operations.
// A booking has at most one payment per stage (UNIQUE(booking_id, stage)).
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Ensure returns the payment for (bookingID, stage), creating it as pending
// when absent. created is true only for the call that inserted the row.
func (r *PaymentRepository) Ensure(ctx context.Context, bookingID uuid.UUID, stage models.PaymentStage, amount models.Money) (*models.Payment, bool, error) {
	query := `
		INSERT INTO payments (booking_id, stage, amount, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (booking_id, stage) DO NOTHING
		RETURNING ` + paymentColumns

	var row paymentRow
	err := r.db.GetContext(ctx, &row, query, bookingID, string(stage), amount)
	if err == nil {
		p, err := row.toModel()
		return p, true, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to ensure payment: %w", err)
	}

	existing, err := r.GetByBookingStage(ctx, bookingID, stage)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a payment by id
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByBookingStage retrieves the payment for a (booking, stage) pair
func (r *PaymentRepository) GetByBookingStage(ctx context.Context, bookingID uuid.UUID, stage models.PaymentStage) (*models.Payment, error) {
	return r.getOne(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 AND stage = $2`,
		bookingID, string(stage))
}

// GetByGatewayOrderID retrieves the payment a gateway order was opened for,
// including orders that were later superseded by a newer checkout
func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return r.getOne(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway_order_id = $1
		    OR id = (SELECT payment_id FROM payment_gateway_orders WHERE order_id = $1)
		 LIMIT 1`,
		orderID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Payment, error) {
	var row paymentRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return row.toModel()
}

// SetGatewayOrderID records the gateway order opened for an unpaid payment.
// Earlier orders stay resolvable through payment_gateway_orders.
func (r *PaymentRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, orderID string) error {
	query := `
		WITH opened AS (
			INSERT INTO payment_gateway_orders (order_id, payment_id)
			VALUES ($1, $2)
			ON CONFLICT (order_id) DO NOTHING
		)
		UPDATE payments SET gateway_order_id = $1 WHERE id = $2 AND status <> 'paid'`

	if _, err := r.db.ExecContext(ctx, query, orderID, id); err != nil {
		return fmt.Errorf("failed to set gateway order id: %w", err)
	}
	return nil
}

// MarkPaid settles a payment. Only the caller that performs the
// pending->paid transition gets transitioned=true; later callers get the
// already-paid row back unchanged.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id uuid.UUID, s models.Settlement) (*models.Payment, bool, error) {
	if s.PaidAt.IsZero() {
		s.PaidAt = time.Now()
	}

	query := `
		UPDATE payments
		SET status = 'paid',
		    payment_date = $1,
		    transaction_id = $2,
		    payment_method = $3,
		    gateway_order_id = COALESCE(NULLIF($4, ''), gateway_order_id)
		WHERE id = $5 AND status <> 'paid'
		RETURNING ` + paymentColumns

	var row paymentRow
	err := r.db.GetContext(ctx, &row, query, s.PaidAt, s.TransactionID, s.PaymentMethod, s.OrderID, id)
	if err == nil {
		p, err := row.toModel()
		return p, true, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to mark payment paid: %w", err)
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
