package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped" // status bukan settle
	OutcomePosted    Outcome = "posted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Recorded reports whether the order has a journal after the pipeline ran.
func (o Outcome) Recorded() bool {
	return o == OutcomePosted || o == OutcomeDuplicate
}

// Posting is everything one settled order writes to the ledger.
type Posting struct {
	Entry     JournalEntry
	Lines     []JournalLine
	Movements []InventoryMovement
	Stock     []StockDelta
}

func (p Posting) Totals() (debit, credit decimal.Decimal) {
	for _, l := range p.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

func (p Posting) Balanced() bool {
	d, c := p.Totals()
	return d.Equal(c)
}

func OrderReference(orderID int64) string {
	return fmt.Sprintf("ORDER-%d", orderID)
}

// Compose builds the revenue, COGS and inventory records for a snapshot.
// It performs no I/O.
func Compose(snap Snapshot, on time.Time) Posting {
	day := time.Date(on.Year(), on.Month(), on.Day(), 0, 0, 0, 0, time.UTC)
	o := snap.Order

	p := Posting{
		Entry: JournalEntry{
			OrderID:         o.ID,
			TransactionDate: day,
			Description:     fmt.Sprintf("Cash sales journal for order %d", o.ID),
			EntryType:       EntryTypeRegular,
			UserID:          o.UserID,
		},
	}

	p.Lines = append(p.Lines,
		JournalLine{AccountCode: AccountCash, Debit: o.TotalAmount, Credit: decimal.Zero},
		JournalLine{AccountCode: AccountSales, Debit: decimal.Zero, Credit: o.TotalAmount},
	)

	byProduct := map[int64]int{}
	ref := OrderReference(o.ID)
	for _, ln := range snap.Lines {
		if ln.Quantity <= 0 || ln.Product == nil {
			continue
		}
		prod := ln.Product

		// tanpa cost basis tidak ada HPP, tapi stok tetap berkurang
		if prod.CostPrice.IsPositive() {
			cost := prod.CostPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
			p.Lines = append(p.Lines,
				JournalLine{AccountCode: prod.COGSAccount, Debit: cost, Credit: decimal.Zero},
				JournalLine{AccountCode: prod.InventoryAccount, Debit: decimal.Zero, Credit: cost},
			)
		}

		p.Movements = append(p.Movements, InventoryMovement{
			ProductID:      ln.ProductID,
			MovementDate:   day,
			MovementType:   MovementTypeIssue,
			QuantityChange: -ln.Quantity,
			UnitCost:       prod.CostPrice,
			Reference:      ref,
		})

		if i, ok := byProduct[ln.ProductID]; ok {
			p.Stock[i].QuantitySold += ln.Quantity
			continue
		}
		byProduct[ln.ProductID] = len(p.Stock)
		p.Stock = append(p.Stock, StockDelta{
			ProductID:     ln.ProductID,
			SnapshotStock: prod.Stock,
			QuantitySold:  ln.Quantity,
		})
	}
	return p
}

// Report describes one run of the posting pipeline. Err is kept for logging
// and tests; callers act on Outcome.
type Report struct {
	Outcome   Outcome
	JournalID int64
	Err       error
}

// Composer runs guard, loader, composition and stock reconciliation for an
// order inside a single store transaction.
type Composer struct {
	Store      Store
	Log        *zap.Logger
	Now        func() time.Time
	Guard      Guard
	Loader     Loader
	Reconciler Reconciler
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Composer) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// Post never returns an error: failures are logged and reported as
// OutcomeFailed so the order status write is never blocked by accounting.
func (c *Composer) Post(ctx context.Context, orderID int64) Report {
	log := c.logger().With(zap.Int64("order_id", orderID))

	var rep Report
	err := c.Store.InTx(ctx, func(tx Tx) error {
		posted, err := c.Guard.AlreadyPosted(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if posted {
			return ErrDuplicateJournal
		}

		snap, err := c.Loader.Load(ctx, tx, orderID)
		if err != nil {
			return err
		}

		p := Compose(snap, c.now())
		if !p.Balanced() {
			d, cr := p.Totals()
			return fmt.Errorf("debit %s credit %s: %w", d, cr, ErrUnbalanced)
		}

		if err := tx.InsertJournalHeader(ctx, &p.Entry); err != nil {
			return storageErr("insert journal header", err)
		}
		for i := range p.Lines {
			p.Lines[i].JournalID = p.Entry.ID
		}
		if err := tx.InsertJournalLines(ctx, p.Lines); err != nil {
			return storageErr("insert journal lines", err)
		}
		if len(p.Movements) > 0 {
			if err := tx.InsertInventoryMovements(ctx, p.Movements); err != nil {
				return storageErr("insert inventory movements", err)
			}
		}

		for _, d := range p.Stock {
			next, err := c.Reconciler.Apply(ctx, tx, d)
			if err != nil {
				return err
			}
			log.Debug("stock updated",
				zap.Int64("product_id", d.ProductID),
				zap.Int("snapshot", d.SnapshotStock),
				zap.Int("new", next))
		}

		rep.JournalID = p.Entry.ID
		log.Info("journal posted",
			zap.Int64("journal_id", p.Entry.ID),
			zap.Int("lines", len(p.Lines)),
			zap.Int("movements", len(p.Movements)))
		return nil
	})

	switch {
	case err == nil:
		rep.Outcome = OutcomePosted
	case errors.Is(err, ErrDuplicateJournal):
		log.Info("journal already exists, skipping")
		rep = Report{Outcome: OutcomeDuplicate}
	case IsNotFound(err):
		log.Warn("order not found for journal", zap.Error(err))
		rep = Report{Outcome: OutcomeFailed, Err: err}
	default:
		log.Error("journal posting failed", zap.Error(err))
		rep = Report{Outcome: OutcomeFailed, Err: err}
	}
	return rep
}
