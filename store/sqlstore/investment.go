package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/types"
)

func (s *Store) GetInvestment(ctx context.Context, investor types.Principal) (*investment.Investment, error) {
	row := s.queryRow(ctx, `
SELECT investor, amount, created_at, updated_at
FROM dyson_investments WHERE investor = ?`, string(investor))
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dyson.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, s.wrap("get investment", err)
	}
	return inv, nil
}

func (s *Store) PutInvestment(ctx context.Context, inv *investment.Investment) error {
	amount, err := quantity(inv.Amount)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO dyson_investments (investor, amount, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (investor) DO UPDATE SET
    amount = excluded.amount,
    updated_at = excluded.updated_at`,
		string(inv.Investor), amount, millis(inv.CreatedAt), millis(inv.UpdatedAt),
	)
	if err != nil {
		return s.wrap("put investment", err)
	}
	return nil
}

func (s *Store) ListInvestments(ctx context.Context) ([]*investment.Investment, error) {
	rows, err := s.query(ctx, `
SELECT investor, amount, created_at, updated_at
FROM dyson_investments ORDER BY `+s.orderText("investor"))
	if err != nil {
		return nil, s.wrap("list investments", err)
	}
	defer rows.Close()

	var result []*investment.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, s.wrap("list investments", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list investments", err)
	}
	return result, nil
}

func (s *Store) GetTotalInvestment(ctx context.Context) (uint64, error) {
	return s.getCounter(ctx, counterInvestmentTotal)
}

func (s *Store) SetTotalInvestment(ctx context.Context, total uint64) error {
	return s.setCounter(ctx, counterInvestmentTotal, total)
}

func scanInvestment(sc scanner) (*investment.Investment, error) {
	var (
		inv                investment.Investment
		investor           string
		amount             int64
		createdAt, updated int64
	)
	if err := sc.Scan(&investor, &amount, &createdAt, &updated); err != nil {
		return nil, err
	}
	inv.Investor = types.Principal(investor)
	inv.Amount = uint64(amount)
	inv.CreatedAt = fromMillis(createdAt)
	inv.UpdatedAt = fromMillis(updated)
	return &inv, nil
}
