package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

type options struct {
	now              func() time.Time
	newReference     func(time.Time) (string, error)
	newAccountNumber func() (string, error)
}

// Option overrides a default collaborator, mostly for tests.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithReferenceGenerator replaces the transaction reference generator.
func WithReferenceGenerator(fn func(time.Time) (string, error)) Option {
	return func(o *options) { o.newReference = fn }
}

// WithAccountNumberGenerator replaces the random account number source.
func WithAccountNumberGenerator(fn func() (string, error)) Option {
	return func(o *options) { o.newAccountNumber = fn }
}

func buildOptions(opts []Option) options {
	o := options{
		now:              time.Now,
		newReference:     NewTransactionReference,
		newAccountNumber: RandomAccountNumber,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var (
	accountNumberSpan  = big.NewInt(9_000_000_000)
	accountNumberFloor = big.NewInt(1_000_000_000)
	referenceSpan      = big.NewInt(1_000_000)
)

// RandomAccountNumber returns a 10 digit number with no leading zero.
func RandomAccountNumber() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberSpan)
	if err != nil {
		return "", fmt.Errorf("failed to generate account number: %w", err)
	}
	return n.Add(n, accountNumberFloor).String(), nil
}

// NewTransactionReference returns TXN<unix-millis><6 random digits>.
func NewTransactionReference(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, referenceSpan)
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction reference: %w", err)
	}
	return fmt.Sprintf("TXN%d%06d", now.UnixMilli(), n.Int64()), nil
}
