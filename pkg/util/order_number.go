package util

import (
	"github.com/google/uuid"
)

const (
	OrderNumberPrefix   = "BAT-"
	orderNumberLength   = 8
	orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// GenerateOrderNumber returns "BAT-" followed by 8 characters of [0-9A-Z].
// Entropy comes from a random (v4) UUID.
func GenerateOrderNumber() string {
	id := uuid.New()
	buf := make([]byte, 0, len(OrderNumberPrefix)+orderNumberLength)
	buf = append(buf, OrderNumberPrefix...)
	for i := 0; i < orderNumberLength; i++ {
		// 16 bits per character
		v := uint16(id[2*i])<<8 | uint16(id[2*i+1])
		buf = append(buf, orderNumberAlphabet[int(v)%len(orderNumberAlphabet)])
	}
	return string(buf)
}
