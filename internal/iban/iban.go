// Package iban derives and validates IBANs using the ISO 7064 MOD 97-10 check.
package iban

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	DefaultCountryCode = "PK"
	DefaultBankCode    = "HBBL"

	// AccountDigits is the zero-padded width of the account segment.
	AccountDigits = 16
)

var (
	ErrInvalidAccountNumber = errors.New("account number must be 10 to 16 digits")
	ErrInvalidIBAN          = errors.New("invalid IBAN")

	accountNumberPattern = regexp.MustCompile(`^[0-9]{10,16}$`)
	ninetySeven          = big.NewInt(97)
)

// Generator builds IBANs for one country and bank code.
type Generator struct {
	countryCode string
	bankCode    string
	pattern     *regexp.Regexp
}

func NewGenerator(countryCode, bankCode string) (*Generator, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	bankCode = strings.ToUpper(strings.TrimSpace(bankCode))
	if len(countryCode) != 2 || !isAlpha(countryCode) {
		return nil, fmt.Errorf("country code %q must be two letters", countryCode)
	}
	if bankCode == "" || !isAlphanumeric(bankCode) {
		return nil, fmt.Errorf("bank code %q must be alphanumeric", bankCode)
	}
	pattern := regexp.MustCompile(fmt.Sprintf(`^%s[0-9]{2}%s[0-9]{%d}$`,
		regexp.QuoteMeta(countryCode), regexp.QuoteMeta(bankCode), AccountDigits))
	return &Generator{countryCode: countryCode, bankCode: bankCode, pattern: pattern}, nil
}

// Default returns the PK/HBBL generator.
func Default() *Generator {
	g, err := NewGenerator(DefaultCountryCode, DefaultBankCode)
	if err != nil {
		panic(err)
	}
	return g
}

// ValidAccountNumber reports whether s matches ^[0-9]{10,16}$.
func ValidAccountNumber(s string) bool {
	return accountNumberPattern.MatchString(s)
}

// FromAccountNumber returns country + check digits + bank code + padded account number.
func (g *Generator) FromAccountNumber(accountNumber string) (string, error) {
	if !ValidAccountNumber(accountNumber) {
		return "", ErrInvalidAccountNumber
	}
	bban := g.bankCode + leftPad(accountNumber, AccountDigits)
	check, err := CheckDigits(g.countryCode, bban)
	if err != nil {
		return "", err
	}
	return g.countryCode + check + bban, nil
}

// Validate checks the layout for this generator and the MOD 97 remainder.
func (g *Generator) Validate(iban string) error {
	if !g.pattern.MatchString(iban) {
		return fmt.Errorf("%w: %q does not match the expected layout", ErrInvalidIBAN, iban)
	}
	return Verify(iban)
}

// CheckDigits computes the two ISO 7064 MOD 97-10 check digits for bban.
// The rearranged value bban+country+"00" is far wider than 64 bits, so the
// remainder is taken on a big.Int.
func CheckDigits(countryCode, bban string) (string, error) {
	numeric, err := toNumeric(bban + countryCode + "00")
	if err != nil {
		return "", err
	}
	remainder, err := mod97(numeric)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d", 98-remainder), nil
}

// Verify reports whether iban's check digits are consistent (remainder 1).
func Verify(iban string) error {
	if len(iban) < 5 {
		return ErrInvalidIBAN
	}
	numeric, err := toNumeric(iban[4:] + iban[:4])
	if err != nil {
		return err
	}
	remainder, err := mod97(numeric)
	if err != nil {
		return err
	}
	if remainder != 1 {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidIBAN)
	}
	return nil
}

// toNumeric maps letters A=10 ... Z=35 and keeps digits.
func toNumeric(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			fmt.Fprintf(&b, "%d", r-'A'+10)
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidIBAN, r)
		}
	}
	return b.String(), nil
}

func mod97(numeric string) (int64, error) {
	value, ok := new(big.Int).SetString(numeric, 10)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidIBAN, numeric)
	}
	return new(big.Int).Mod(value, ninetySeven).Int64(), nil
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
