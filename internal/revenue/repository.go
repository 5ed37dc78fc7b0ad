package revenue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/revtax/internal/platform/db"
)

// Repository reads orders and catalogue items from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const listOrdersSQL = `SELECT id, customer_name, customer_email, COALESCE(customer_phone, ''), COALESCE(customer_address, ''),
	status, created_at, COALESCE(tracking_id, ''), COALESCE(tracking_url, '')
FROM orders
WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at, id`

const listLinesSQL = `SELECT order_id, item_id, quantity, price_at_purchase, discount_percent
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, id`

// ListOrders returns the owner's orders created inside the window, lines
// included. Both queries read the same snapshot.
func (r *Repository) ListOrders(ctx context.Context, ownerID int64, window Window) ([]Order, error) {
	var orders []Order
	err := db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		orders, err = listOrders(ctx, tx, ownerID, window)
		if err != nil || len(orders) == 0 {
			return err
		}
		return attachLines(ctx, tx, orders)
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func listOrders(ctx context.Context, tx pgx.Tx, ownerID int64, window Window) ([]Order, error) {
	rows, err := tx.Query(ctx, listOrdersSQL, ownerID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("revenue: list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var (
			order  Order
			status string
		)
		if err := rows.Scan(&order.ID, &order.Customer.Name, &order.Customer.Email, &order.Customer.Phone,
			&order.Customer.Address, &status, &order.CreatedAt, &order.TrackingID, &order.TrackingURL); err != nil {
			return nil, fmt.Errorf("revenue: scan order: %w", err)
		}
		if order.Status, err = ParseOrderStatus(status); err != nil {
			return nil, fmt.Errorf("revenue: order %d: %w", order.ID, err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("revenue: list orders: %w", err)
	}
	return orders, nil
}

func attachLines(ctx context.Context, tx pgx.Tx, orders []Order) error {
	ids := make([]int64, 0, len(orders))
	index := make(map[int64]int, len(orders))
	for i, order := range orders {
		ids = append(ids, order.ID)
		index[order.ID] = i
	}
	rows, err := tx.Query(ctx, listLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("revenue: list lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID int64
			line    OrderLine
		)
		if err := rows.Scan(&orderID, &line.ItemID, &line.Quantity, &line.PriceAtPurchase, &line.DiscountPercent); err != nil {
			return fmt.Errorf("revenue: scan line: %w", err)
		}
		if pos, ok := index[orderID]; ok {
			orders[pos].Lines = append(orders[pos].Lines, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("revenue: list lines: %w", err)
	}
	return nil
}

// GetItem loads a catalogue item with its current discount.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, discount_percent, stock_quantity, is_active FROM items WHERE id = $1`, id).
		Scan(&item.ID, &item.Name, &item.Price, &item.DiscountPercent, &item.StockQuantity, &item.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("%w: id %d", ErrItemNotFound, id)
		}
		return Item{}, fmt.Errorf("revenue: get item: %w", err)
	}
	return item, nil
}
