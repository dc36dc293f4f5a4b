package dyson

import (
	"context"
	"fmt"

	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Investment operation names.
const (
	OpInvest             = "invest"
	OpWithdraw           = "withdraw"
	OpGetInvestment      = "get-investment"
	OpGetTotalInvestment = "get-total-investment"
)

// Investment tracks investor balances and the running total. Each balance
// change and the matching total change commit in one transaction.
type Investment struct {
	e *Engine
}

// Invest adds amount to the caller's balance and to the total. Amounts
// below the configured minimum fail with ErrBelowMinimum.
func (i *Investment) Invest(ctx context.Context, caller types.Principal, amount uint64) error {
	var (
		inv   *investment.Investment
		total uint64
	)
	err := i.e.mutate(ctx, ModuleInvestment, OpInvest, caller, amount,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			if amount < i.e.config.MinInvestment {
				return fmt.Errorf("%w: %d is below the minimum of %d", ErrBelowMinimum, amount, i.e.config.MinInvestment)
			}
			entry.Subject = caller.String()

			rec, err := loadInvestment(ctx, tx, caller)
			if err != nil {
				return err
			}
			if rec == nil {
				rec = &investment.Investment{Entity: types.NewEntity(), Investor: caller}
			}
			if rec.Amount, err = types.AddQuantity(rec.Amount, amount); err != nil {
				return err
			}

			current, err := tx.GetTotalInvestment(ctx)
			if err != nil {
				return err
			}
			if total, err = types.AddQuantity(current, amount); err != nil {
				return err
			}

			rec.Touch()
			if err := tx.PutInvestment(ctx, rec); err != nil {
				return err
			}
			if err := tx.SetTotalInvestment(ctx, total); err != nil {
				return err
			}
			inv = rec
			return nil
		})
	if err != nil {
		return err
	}

	i.e.plugins.EmitInvested(ctx, inv, amount, total)
	return nil
}

// Withdraw removes amount from the caller's balance and from the total. It
// fails with ErrInsufficientBalance when amount exceeds the balance. A
// fully withdrawn investor keeps a zero-amount record.
func (i *Investment) Withdraw(ctx context.Context, caller types.Principal, amount uint64) error {
	var (
		inv   *investment.Investment
		total uint64
	)
	err := i.e.mutate(ctx, ModuleInvestment, OpWithdraw, caller, amount,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			entry.Subject = caller.String()

			rec, err := loadInvestment(ctx, tx, caller)
			if err != nil {
				return err
			}
			var balance uint64
			if rec != nil {
				balance = rec.Amount
			}
			if amount > balance {
				return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, balance, amount)
			}
			if total, err = tx.GetTotalInvestment(ctx); err != nil {
				return err
			}
			if rec == nil {
				inv = &investment.Investment{Investor: caller}
				return nil
			}

			rec.Amount = balance - amount
			if total, err = types.SubQuantity(total, amount); err != nil {
				return fmt.Errorf("%w: total investment below investor balance", ErrInvariantViolation)
			}
			rec.Touch()
			if err := tx.PutInvestment(ctx, rec); err != nil {
				return err
			}
			if err := tx.SetTotalInvestment(ctx, total); err != nil {
				return err
			}
			inv = rec
			return nil
		})
	if err != nil {
		return err
	}

	i.e.plugins.EmitWithdrawn(ctx, inv, amount, total)
	return nil
}

// GetInvestment returns the investor's record, or nil when they never invested.
func (i *Investment) GetInvestment(ctx context.Context, investor types.Principal) (*investment.Investment, error) {
	inv, err := i.e.store.GetInvestment(ctx, investor)
	if IsNotFound(err) {
		return nil, nil
	}
	return inv, err
}

// GetTotalInvestment returns the sum of all balances.
func (i *Investment) GetTotalInvestment(ctx context.Context) (uint64, error) {
	return i.e.store.GetTotalInvestment(ctx)
}

// ListInvestments lists every investor record.
func (i *Investment) ListInvestments(ctx context.Context) ([]*investment.Investment, error) {
	return i.e.store.ListInvestments(ctx)
}

func loadInvestment(ctx context.Context, tx store.Store, investor types.Principal) (*investment.Investment, error) {
	inv, err := tx.GetInvestment(ctx, investor)
	if IsNotFound(err) {
		return nil, nil
	}
	return inv, err
}
