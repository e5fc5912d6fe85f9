package order

import (
	"crypto/rand"
)

const (
	numberPrefix = "ORD"
	numberLength = 8
	// Crockford-style alphabet without 0/O and 1/I.
	numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// NewNumber returns a random human-readable order number such as ORD7KQ2M9XA.
func NewNumber() string {
	var buf [numberLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	out := make([]byte, 0, len(numberPrefix)+numberLength)
	out = append(out, numberPrefix...)
	for _, b := range buf {
		out = append(out, numberAlphabet[int(b)%len(numberAlphabet)])
	}
	return string(out)
}
