package settlement

import "context"

// Guard is the idempotency check: one journal per order.
type Guard struct{}

func (Guard) AlreadyPosted(ctx context.Context, q JournalLookup, orderID int64) (bool, error) {
	ok, err := q.JournalExists(ctx, orderID)
	if err != nil {
		return false, storageErr("journal exists", err)
	}
	return ok, nil
}
