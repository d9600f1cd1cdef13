package order

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/honey-shop/database"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderColumns = `o.order_id, o.user_facing_id, o.user_id, u.name AS user_name,
	o.shipping_address, o.payment_method, o.payment_result, o.delivery_method,
	o.items_price, o.shipping_price, o.tax_price, o.total_price,
	o.is_paid, o.paid_at, o.is_shipped, o.shipped_at, o.is_delivered, o.delivered_at, o.created_at`

const orderFrom = ` FROM orders o JOIN users u ON u.user_id = o.user_id`

func Create(ctx context.Context, db sqlx.ExtContext, o Order) error {
	q := `
	INSERT INTO orders
		(order_id, user_facing_id, user_id, shipping_address, payment_method, delivery_method,
		items_price, shipping_price, tax_price, total_price, created_at)
	VALUES
		(:order_id, :user_facing_id, :user_id, :shipping_address, :payment_method, :delivery_method,
		:items_price, :shipping_price, :tax_price, :total_price, :created_at)`

	if err := database.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	q := `
	INSERT INTO order_items
		(order_id, product_id, name, slug, image, price, qty, weight)
	VALUES
		(:order_id, :product_id, :name, :slug, :image, :price, :qty, :weight)`

	if err := database.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	q := `SELECT ` + orderColumns + orderFrom + ` WHERE o.order_id = $1`

	var o Order
	if err := database.GetContext(ctx, db, &o, q, id); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, err)
	}
	return o, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	q := `
	SELECT order_id, product_id, name, slug, image, price, qty, weight
	FROM order_items
	WHERE order_id = $1
	ORDER BY name`

	items := []Item{}
	if err := database.SelectContext(ctx, db, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%s]: %w", orderID, err)
	}
	return items, nil
}

// QueryByUser returns a page of the orders of a user, newest first.
func QueryByUser(ctx context.Context, db sqlx.ExtContext, userID string, page, limit int) ([]Order, int, error) {
	var total int
	cq := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	if err := database.GetContext(ctx, db, &total, cq, userID); err != nil {
		return nil, 0, fmt.Errorf("counting orders of user[%s]: %w", userID, err)
	}

	q := `SELECT ` + orderColumns + orderFrom + `
	WHERE o.user_id = $1
	ORDER BY o.created_at DESC
	LIMIT $2 OFFSET $3`

	orders := []Order{}
	if err := database.SelectContext(ctx, db, &orders, q, userID, limit, (page-1)*limit); err != nil {
		return nil, 0, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}
	return orders, total, nil
}

// Query returns a page of all orders, optionally only those whose customer
// name contains userName.
func Query(ctx context.Context, db sqlx.ExtContext, userName string, page, limit int) ([]Order, int, error) {
	var total int
	cq := `SELECT COUNT(*)` + orderFrom + ` WHERE u.name ILIKE '%' || $1 || '%'`
	if err := database.GetContext(ctx, db, &total, cq, userName); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	q := `SELECT ` + orderColumns + orderFrom + `
	WHERE u.name ILIKE '%' || $1 || '%'
	ORDER BY o.created_at DESC
	LIMIT $2 OFFSET $3`

	orders := []Order{}
	if err := database.SelectContext(ctx, db, &orders, q, userName, limit, (page-1)*limit); err != nil {
		return nil, 0, fmt.Errorf("selecting orders: %w", err)
	}
	return orders, total, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	n, err := database.ExecContext(ctx, db, `DELETE FROM orders WHERE order_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting order[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("deleting order[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

// setPaid flags an unpaid order as paid. It reports false when the order
// is missing or was already paid.
func setPaid(ctx context.Context, db sqlx.ExtContext, id string, res PaymentResult, at time.Time) (bool, error) {
	q := `
	UPDATE orders SET
		is_paid = TRUE,
		paid_at = $2,
		payment_result = $3
	WHERE order_id = $1 AND NOT is_paid`

	n, err := database.ExecContext(ctx, db, q, id, at, res)
	if err != nil {
		return false, fmt.Errorf("marking order[%s] paid: %w", id, err)
	}
	return n == 1, nil
}

func setShipped(ctx context.Context, db sqlx.ExtContext, id string, at time.Time) error {
	q := `UPDATE orders SET is_shipped = TRUE, shipped_at = $2 WHERE order_id = $1`

	n, err := database.ExecContext(ctx, db, q, id, at)
	if err != nil {
		return fmt.Errorf("marking order[%s] shipped: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("marking order[%s] shipped: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func setDelivered(ctx context.Context, db sqlx.ExtContext, id string, at time.Time) error {
	q := `UPDATE orders SET is_delivered = TRUE, delivered_at = $2 WHERE order_id = $1`

	n, err := database.ExecContext(ctx, db, q, id, at)
	if err != nil {
		return fmt.Errorf("marking order[%s] delivered: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("marking order[%s] delivered: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func Count(ctx context.Context, db sqlx.ExtContext) (int, error) {
	var n int
	if err := database.GetContext(ctx, db, &n, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

// TotalSales sums the total price of every order.
func TotalSales(ctx context.Context, db sqlx.ExtContext) (decimal.Decimal, error) {
	var total decimal.Decimal
	q := `SELECT COALESCE(SUM(total_price), 0) FROM orders`
	if err := database.GetContext(ctx, db, &total, q); err != nil {
		return decimal.Zero, fmt.Errorf("summing sales: %w", err)
	}
	return total, nil
}

// MonthlySalesData groups order totals by MM/YY, oldest month first.
func MonthlySalesData(ctx context.Context, db sqlx.ExtContext) ([]MonthlySales, error) {
	q := `
	SELECT to_char(created_at, 'MM/YY') AS month, SUM(total_price) AS total_sales
	FROM orders
	GROUP BY month
	ORDER BY MIN(created_at)`

	sales := []MonthlySales{}
	if err := database.SelectContext(ctx, db, &sales, q); err != nil {
		return nil, fmt.Errorf("selecting monthly sales: %w", err)
	}
	return sales, nil
}

func QueryLatest(ctx context.Context, db sqlx.ExtContext, limit int) ([]Order, error) {
	q := `SELECT ` + orderColumns + orderFrom + ` ORDER BY o.created_at DESC LIMIT $1`

	orders := []Order{}
	if err := database.SelectContext(ctx, db, &orders, q, limit); err != nil {
		return nil, fmt.Errorf("selecting latest orders: %w", err)
	}
	return orders, nil
}
