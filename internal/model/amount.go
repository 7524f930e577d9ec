package model

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// Amount is a non-negative sum of money in pounds and pence.
// All policy arithmetic happens on whole pence to avoid float drift.
type Amount struct {
	pounds int64
	pence  int64
}

const penceInPound = 100

func NewAmount(pounds, pence int64) Amount {
	total := pounds*penceInPound + pence
	if total < 0 {
		total = 0
	}
	return Amount{
		pounds: total / penceInPound,
		pence:  total % penceInPound,
	}
}

func FromPence(total int64) Amount {
	return NewAmount(0, total)
}

func FromFloat(amount float64) (Amount, error) {
	if amount < 0 {
		return Amount{}, errors.New("amount must be non-negative")
	}
	const maxPreciseInt = 9007199254740992
	if amount*penceInPound >= maxPreciseInt {
		return Amount{}, errors.New("amount overflow")
	}

	totalPence := int64(math.Round(amount * penceInPound))
	return Amount{
		pounds: totalPence / penceInPound,
		pence:  totalPence % penceInPound,
	}, nil
}

func (a Amount) TotalPence() int64 {
	return a.pounds*penceInPound + a.pence
}

func (a Amount) ToFloat64() float64 {
	return float64(a.pounds) + float64(a.pence)/penceInPound
}

func (a Amount) IsZero() bool {
	return a.pounds == 0 && a.pence == 0
}

func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", a.pounds, a.pence)
}

func (a Amount) ToPGNumeric() pgtype.Numeric {
	return pgtype.Numeric{
		Int:   big.NewInt(a.TotalPence()),
		Exp:   -2,
		Valid: true,
	}
}

func FromPGNumeric(n pgtype.Numeric) (Amount, error) {
	if !n.Valid {
		return Amount{}, errors.New("NULL numeric from DB")
	}
	f, err := n.Float64Value()
	if err != nil {
		return Amount{}, fmt.Errorf("failed to convert numeric: %w", err)
	}
	return FromFloat(f.Float64) //nolint: wrapcheck // error from wrapped function
}
