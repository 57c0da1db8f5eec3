package marketdata

import "github.com/pkg/errors"

var (
	ErrAPI          = errors.New("kraken api error")
	ErrEmptyResult  = errors.New("kraken returned an empty result")
	ErrMalformedRow = errors.New("malformed market data row")
	ErrNoSnapshot   = errors.New("no snapshot found, run fetch first")
)
