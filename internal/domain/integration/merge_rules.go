package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill-forward rules: an empty or absent incoming value never overwrites a
// stored value. Each returns the value to store.

// FillString keeps stored when incoming is empty.
func FillString(stored, incoming string) string {
	if incoming == "" {
		return stored
	}
	return incoming
}

// FillInt keeps stored when incoming is zero.
func FillInt(stored, incoming int) int {
	if incoming == 0 {
		return stored
	}
	return incoming
}

// FillTime keeps stored when incoming is nil or zero.
func FillTime(stored, incoming *time.Time) *time.Time {
	if incoming == nil || incoming.IsZero() {
		return stored
	}
	return incoming
}

// FillDecimal keeps stored when incoming is zero.
func FillDecimal(stored, incoming decimal.Decimal) decimal.Decimal {
	if incoming.IsZero() {
		return stored
	}
	return incoming
}

// FillBuyer fills each buyer field forward independently.
func FillBuyer(stored, incoming BuyerSnapshot) BuyerSnapshot {
	return BuyerSnapshot{
		Username: FillString(stored.Username, incoming.Username),
		Email:    FillString(stored.Email, incoming.Email),
		Name:     FillString(stored.Name, incoming.Name),
		Phone:    FillString(stored.Phone, incoming.Phone),
	}
}

// FillAddress replaces the address as a whole; an empty incoming address is ignored.
func FillAddress(stored, incoming ShippingAddress) ShippingAddress {
	if incoming.IsEmpty() {
		return stored
	}
	return incoming
}
