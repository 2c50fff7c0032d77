package postal

import (
	"context"
	"errors"
)

// Lookup status lines shown next to a postal code input.
const (
	StatusSearching = "住所を検索中…"
	StatusNotFound  = "該当する住所が見つかりませんでした"
	StatusFailed    = "住所の取得に失敗しました"
)

// Outcome classifies a finished lookup.
type Outcome int

const (
	Resolved Outcome = iota
	NotFound
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolution is the result of Resolve. Err is set for Failed outcomes.
type Resolution struct {
	Outcome Outcome
	Address Address
	Err     error
}

// Status returns the status line for the outcome; resolved lookups clear it.
func (r Resolution) Status() string {
	switch r.Outcome {
	case NotFound:
		return StatusNotFound
	case Failed:
		return StatusFailed
	default:
		return ""
	}
}

// Resolve runs a lookup and folds every error into an outcome.
func Resolve(ctx context.Context, lookuper Lookuper, zipcode string) Resolution {
	if lookuper == nil {
		return Resolution{Outcome: Failed, Err: &LookupError{Zipcode: zipcode, Err: errors.New("no lookuper configured")}}
	}
	addr, err := lookuper.Lookup(ctx, zipcode)
	switch {
	case err == nil:
		return Resolution{Outcome: Resolved, Address: addr}
	case errors.Is(err, ErrNotFound):
		return Resolution{Outcome: NotFound}
	default:
		return Resolution{Outcome: Failed, Err: err}
	}
}
