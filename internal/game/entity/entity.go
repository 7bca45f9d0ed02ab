// Package entity holds the actors of a game and the things they own: players,
// corporations, private companies, the bank, the market pool, shares and trains.
package entity

import (
	"errors"
	"fmt"
)

// Type distinguishes entity variants.
type Type string

const (
	TypePlayer      Type = "player"
	TypeCorporation Type = "corporation"
	TypeMinor       Type = "minor"
	TypeCompany     Type = "company"
	TypeBank        Type = "bank"
	TypePool        Type = "market"
)

// ErrInsufficientCash is returned when a payer cannot cover a transfer.
var ErrInsufficientCash = errors.New("insufficient cash")

// Entity is any actor with owned state.
type Entity interface {
	ID() string
	Name() string
	Type() Type
	Cash() int
	Closed() bool
	// Player returns the player controlling the entity, or nil.
	Player() *Player
}

// CashHolder is an entity that can send and receive money.
type CashHolder interface {
	Entity
	adjustCash(delta int)
}

// ShareHolder is an entity that can hold shares.
type ShareHolder interface {
	ID() string
	Name() string
	Type() Type
}

// Wallet stores an integer cash balance.
type Wallet struct {
	cash int
}

// Cash returns the balance.
func (w *Wallet) Cash() int {
	return w.cash
}

func (w *Wallet) adjustCash(delta int) {
	w.cash += delta
}

// Transfer moves amount from one holder to another. Only the bank may go
// below zero; the bank breaking is detected by the game.
func Transfer(from, to CashHolder, amount int) error {
	if amount < 0 {
		return fmt.Errorf("cannot transfer negative amount %d", amount)
	}
	if amount == 0 {
		return nil
	}
	if from.Type() != TypeBank && from.Cash() < amount {
		return fmt.Errorf("%s has %d, needs %d: %w", from.Name(), from.Cash(), amount, ErrInsufficientCash)
	}
	from.adjustCash(-amount)
	to.adjustCash(amount)
	return nil
}

// IsPlayer reports whether e is a player.
func IsPlayer(e Entity) bool {
	return e != nil && e.Type() == TypePlayer
}

// IsCorporation reports whether e is a corporation or minor.
func IsCorporation(e Entity) bool {
	return e != nil && (e.Type() == TypeCorporation || e.Type() == TypeMinor)
}
