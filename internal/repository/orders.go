package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ovation/internal/database"
	"ovation/internal/models"
)

type OrderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// CreateOrder inserts the order row.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	const query = `
		INSERT INTO orders (id, event_id, schedule_id, user_id, hold_code, status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		order.ID,
		order.EventID,
		order.ScheduleID,
		order.UserID,
		order.HoldCode,
		order.Status,
		order.TotalAmount,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// CreatePayment inserts the payment row.
func (r *OrderRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	const query = `
		INSERT INTO payments (id, order_id, status, amount, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Status,
		payment.Amount,
		payment.ExpiresAt,
	).Scan(&payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// CreateTickets inserts one row per claimed unit.
func (r *OrderRepository) CreateTickets(ctx context.Context, tickets []models.Ticket) error {
	q := r.db.Querier(ctx)
	for _, t := range tickets {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO tickets (id, order_id, event_id, schedule_id, unit_key, ticket_code, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.OrderID, t.EventID, t.ScheduleID, t.UnitKey, t.TicketCode, t.Status,
		); err != nil {
			return fmt.Errorf("insert ticket %s: %w", t.UnitKey, err)
		}
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	const query = `
		SELECT id, event_id, schedule_id, user_id, hold_code, status, total_amount, created_at, updated_at
		FROM orders WHERE id = $1`

	order := &models.Order{}
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.EventID,
		&order.ScheduleID,
		&order.UserID,
		&order.HoldCode,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) getPayment(ctx context.Context, id string, forUpdate bool) (*models.Payment, error) {
	query := `
		SELECT id, order_id, status, amount, expires_at, paid_at, created_at
		FROM payments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	payment := &models.Payment{}
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, id).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Status,
		&payment.Amount,
		&payment.ExpiresAt,
		&payment.PaidAt,
		&payment.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

func (r *OrderRepository) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return r.getPayment(ctx, id, false)
}

// GetPaymentForUpdate locks the payment row so concurrent finalize and reap
// operations serialize on it.
func (r *OrderRepository) GetPaymentForUpdate(ctx context.Context, id string) (*models.Payment, error) {
	return r.getPayment(ctx, id, true)
}

// MarkPaymentPaid transitions the payment to paid with its timestamp.
func (r *OrderRepository) MarkPaymentPaid(ctx context.Context, id string, paidAt time.Time) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx,
		`UPDATE payments SET status = $1, paid_at = $2 WHERE id = $3`,
		models.PaymentPaid, paidAt, id,
	)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx,
		`UPDATE payments SET status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// UpdateTicketsStatus moves every ticket of an order to the given status and
// returns how many rows changed.
func (r *OrderRepository) UpdateTicketsStatus(ctx context.Context, orderID, status string) (int64, error) {
	res, err := r.db.Querier(ctx).ExecContext(ctx,
		`UPDATE tickets SET status = $1 WHERE order_id = $2`, status, orderID,
	)
	if err != nil {
		return 0, fmt.Errorf("update tickets status: %w", err)
	}
	return res.RowsAffected()
}

// ExpiredOrderRef points the reaper at one abandoned checkout.
type ExpiredOrderRef struct {
	OrderID   string
	PaymentID string
}

// ExpiredProcessing lists processing orders whose payment deadline passed.
func (r *OrderRepository) ExpiredProcessing(ctx context.Context, now time.Time) ([]ExpiredOrderRef, error) {
	const query = `
		SELECT o.id, p.id
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		WHERE o.status = 'processing' AND p.status = 'processing' AND p.expires_at < $1
		ORDER BY p.expires_at ASC`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired orders: %w", err)
	}
	defer rows.Close()

	var refs []ExpiredOrderRef
	for rows.Next() {
		var ref ExpiredOrderRef
		if err := rows.Scan(&ref.OrderID, &ref.PaymentID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}
