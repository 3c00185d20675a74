// Package quote holds the price snapshot shared by fetchers, storage and renderers.
package quote

import (
	"context"
	"errors"
	"time"
)

// Quote is one price observation for a ticker. PrevClose is 0 when unknown.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	TS        time.Time `json:"ts"`
}

// Fetcher returns the latest quote for a symbol.
type Fetcher interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

var (
	// ErrRateLimited means the provider refused the request for quota reasons.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoData means the provider returned no current price.
	ErrNoData = errors.New("no data")
)
