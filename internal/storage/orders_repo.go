package storage

import (
	"context"
	"fmt"

	"wheres-my-lunch/pkg/models"
)

// UnknownEmployee is rendered for order lines whose author never passed
// through /start registration.
const UnknownEmployee = "Неизвестный сотрудник"

// UpsertOrderLine inserts or replaces one line. A non-positive quantity
// deletes the line instead of storing a zero. Each call is atomic.
func (s *Store) UpsertOrderLine(ctx context.Context, userID int64, instructor, dateKey string, qty int) error {
	if qty <= 0 {
		_, err := s.pool.Exec(ctx, `
			DELETE FROM orders
			WHERE user_id = $1 AND instructor_name = $2 AND date_key = $3
		`, userID, instructor, dateKey)
		if err != nil {
			return fmt.Errorf("%w: delete line: %v", ErrStorage, err)
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (user_id, instructor_name, date_key, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, instructor_name, date_key)
		DO UPDATE SET quantity = EXCLUDED.quantity, created_at = now()
	`, userID, instructor, dateKey, qty)
	if err != nil {
		return fmt.Errorf("%w: upsert line: %v", ErrStorage, err)
	}
	return nil
}

// SaveOrderBatch commits one confirmed walk in a single transaction:
// the user's existing lines for this instructor across the week's date
// keys are removed, then the positive-quantity answers are inserted.
// A day answered with 0 therefore clears whatever was stored for it in
// an earlier walk.
func (s *Store) SaveOrderBatch(ctx context.Context, userID int64, instructor string, weekKeys []string, lines []models.OrderWrite) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %v", ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM orders
		WHERE user_id = $1 AND instructor_name = $2 AND date_key = ANY($3)
	`, userID, instructor, weekKeys)
	if err != nil {
		return fmt.Errorf("%w: clear week: %v", ErrStorage, err)
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (user_id, instructor_name, date_key, quantity)
			VALUES ($1, $2, $3, $4)
		`, userID, instructor, line.DateKey, line.Quantity)
		if err != nil {
			return fmt.Errorf("%w: insert line: %v", ErrStorage, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit batch: %v", ErrStorage, err)
	}
	return nil
}

// GetUserOrders returns the user's positive lines, newest date first.
func (s *Store) GetUserOrders(ctx context.Context, userID int64) ([]models.UserOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT instructor_name, date_key, quantity
		FROM orders
		WHERE user_id = $1 AND quantity > 0
		ORDER BY date_key DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user orders: %v", ErrStorage, err)
	}
	defer rows.Close()

	var orders []models.UserOrder
	for rows.Next() {
		var o models.UserOrder
		if err := rows.Scan(&o.InstructorName, &o.DateKey, &o.Quantity); err != nil {
			return nil, fmt.Errorf("%w: scan user order: %v", ErrStorage, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: user orders: %v", ErrStorage, err)
	}
	return orders, nil
}

// GetAllOrders returns every positive line joined with the employee's
// display name, newest date first and instructors in alphabetical order
// within a date.
func (s *Store) GetAllOrders(ctx context.Context) ([]models.ExportRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.user_id, COALESCE(e.full_name, $1), o.instructor_name, o.date_key, o.quantity
		FROM orders o
		LEFT JOIN employees e ON e.user_id = o.user_id
		WHERE o.quantity > 0
		ORDER BY o.date_key DESC, o.instructor_name ASC
	`, UnknownEmployee)
	if err != nil {
		return nil, fmt.Errorf("%w: all orders: %v", ErrStorage, err)
	}
	defer rows.Close()

	var result []models.ExportRow
	for rows.Next() {
		var r models.ExportRow
		if err := rows.Scan(&r.UserID, &r.EmployeeName, &r.InstructorName, &r.DateKey, &r.Quantity); err != nil {
			return nil, fmt.Errorf("%w: scan export row: %v", ErrStorage, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: all orders: %v", ErrStorage, err)
	}
	return result, nil
}

// RegisterEmployeeIfAbsent records the user on first contact. First
// write wins: a later registration with a changed name is a no-op.
func (s *Store) RegisterEmployeeIfAbsent(ctx context.Context, userID int64, username, fullName string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (user_id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, username, fullName)
	if err != nil {
		return fmt.Errorf("%w: register employee: %v", ErrStorage, err)
	}
	return nil
}

func (s *Store) DeleteAllOrdersForUser(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%w: delete user orders: %v", ErrStorage, err)
	}
	return nil
}
