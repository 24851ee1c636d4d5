package settlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres ledger store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return storageErr("commit", tx.Commit(ctx))
}

func (r *Repo) UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, providerRef string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, midtrans_order_id=$3, updated_at=now()
		WHERE id=$1`, orderID, string(status), providerRef)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID int64) (OrderStatus, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &NotFoundError{Entity: "order", ID: orderID}
	}
	if err != nil {
		return "", err
	}
	return OrderStatus(s), nil
}

// ListSettledWithoutJournal finds orders marked settle whose posting failed.
func (r *Repo) ListSettledWithoutJournal(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id FROM orders o
		WHERE o.status = $1
		  AND NOT EXISTS (SELECT 1 FROM journal_entries j WHERE j.order_id = o.id)
		ORDER BY o.id
		LIMIT $2`, string(StatusSettle), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) JournalExists(ctx context.Context, orderID int64) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE order_id=$1)`, orderID).Scan(&ok)
	return ok, err
}

func (t *pgTx) LoadOrder(ctx context.Context, orderID int64) (Snapshot, error) {
	var (
		snap   Snapshot
		status string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, total_amount, COALESCE(user_id, ''), status, COALESCE(midtrans_order_id, '')
		FROM orders WHERE id=$1`, orderID).
		Scan(&snap.Order.ID, &snap.Order.TotalAmount, &snap.Order.UserID, &status, &snap.Order.ProviderRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, &NotFoundError{Entity: "order", ID: orderID}
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap.Order.Status = OrderStatus(status)

	// LEFT JOIN: item dengan produk yang sudah hilang tetap ikut, Product=nil
	rows, err := t.tx.Query(ctx, `
		SELECT oi.id, oi.product_id, oi.quantity, oi.price,
		       p.id, p.cost_price, p.stock, p.inventory_account_code, p.hpp_account_code
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ln      OrderLine
			price   decimal.NullDecimal
			pid     *int64
			cost    decimal.NullDecimal
			stock   *int
			invAcc  *string
			cogsAcc *string
		)
		if err := rows.Scan(&ln.ID, &ln.ProductID, &ln.Quantity, &price,
			&pid, &cost, &stock, &invAcc, &cogsAcc); err != nil {
			return Snapshot{}, err
		}
		ln.OrderID = orderID
		ln.UnitPrice = price.Decimal
		if pid != nil {
			prod := &Product{ID: *pid, CostPrice: cost.Decimal}
			if stock != nil {
				prod.Stock = *stock
			}
			if invAcc != nil {
				prod.InventoryAccount = *invAcc
			}
			if cogsAcc != nil {
				prod.COGSAccount = *cogsAcc
			}
			ln.Product = prod
		}
		snap.Lines = append(snap.Lines, ln)
	}
	return snap, rows.Err()
}

func (t *pgTx) InsertJournalHeader(ctx context.Context, e *JournalEntry) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO journal_entries(order_id, transaction_date, description, user_id, entry_type)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id`,
		e.OrderID, e.TransactionDate, e.Description, e.UserID, e.EntryType,
	).Scan(&e.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateJournal
	}
	return err
}

func (t *pgTx) InsertJournalLines(ctx context.Context, lines []JournalLine) error {
	b := &pgx.Batch{}
	for _, l := range lines {
		b.Queue(`
			INSERT INTO journal_lines(journal_id, account_code, debit_amount, credit_amount)
			VALUES ($1, $2, $3, $4)`, l.JournalID, l.AccountCode, l.Debit, l.Credit)
	}
	return t.tx.SendBatch(ctx, b).Close()
}

func (t *pgTx) InsertInventoryMovements(ctx context.Context, ms []InventoryMovement) error {
	b := &pgx.Batch{}
	for _, m := range ms {
		b.Queue(`
			INSERT INTO inventory_movements(product_id, movement_date, movement_type, quantity_change, unit_cost, reference_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ProductID, m.MovementDate, m.MovementType, m.QuantityChange, m.UnitCost, m.Reference)
	}
	return t.tx.SendBatch(ctx, b).Close()
}

func (t *pgTx) ProductStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &NotFoundError{Entity: "product", ID: productID}
	}
	return stock, err
}

func (t *pgTx) CompareAndSetStock(ctx context.Context, productID int64, expected, next int) (bool, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock=$3, updated_at=now()
		WHERE id=$1 AND stock=$2`, productID, expected, next)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
