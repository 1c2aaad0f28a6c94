package orders

import (
	"context"
	"fmt"

	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectOrders = `
	SELECT o.id, o.product_id, o.igreja_id, o.quantity, o.customer_name, o.total, o.created_at, o.updated_at,
	       p.id, p.name, p.code, p.price,
	       i.id, i.name, i.cnpj, i.city, i.state
	FROM orders o
	LEFT JOIN products p ON p.id = o.product_id
	LEFT JOIN igrejas i ON i.id = o.igreja_id`

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (product_id, igreja_id, quantity, customer_name, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		o.ProductID, o.IgrejaID, o.Quantity, o.CustomerName, o.Total,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	rows, err := r.db.Query(ctx, selectOrders+` WHERE o.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Order, error) {
	rows, err := r.db.Query(ctx, selectOrders+` ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Update(ctx context.Context, o *Order) error {
	err := r.db.QueryRow(ctx, `
		UPDATE orders SET quantity = $2, customer_name = $3, total = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, o.Quantity, o.CustomerName, o.Total,
	).Scan(&o.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("order")
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (Order, error) {
	var (
		o                    Order
		pid, iid             *uuid.UUID
		pname, pcode         *string
		pprice               *int64
		iname, icity, istate *string
		icnpj                *string
	)
	if err := row.Scan(&o.ID, &o.ProductID, &o.IgrejaID, &o.Quantity, &o.CustomerName, &o.Total,
		&o.CreatedAt, &o.UpdatedAt,
		&pid, &pname, &pcode, &pprice,
		&iid, &iname, &icnpj, &icity, &istate); err != nil {
		return Order{}, err
	}
	if pid != nil {
		o.Product = &products.Ref{ID: *pid, Name: *pname, Code: *pcode, Price: *pprice}
	}
	if iid != nil {
		o.Igreja = &ChurchRef{ID: *iid, Name: *iname, CNPJ: icnpj, City: *icity, State: *istate}
	}
	return o, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return errs.NotFound("order")
	case database.IsForeignKeyViolation(err):
		if database.ConstraintName(err) == "orders_igreja_id_fkey" {
			return errs.NotFound("church")
		}
		return errs.NotFound("product")
	default:
		return err
	}
}
