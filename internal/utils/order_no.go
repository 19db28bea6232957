package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// orderNoPrefix brands every system-generated order number.
const orderNoPrefix = "AKX"

// GenerateOrderNo returns a new globally unique order number:
// prefix + second-resolution timestamp + 6 random digits. The random
// tail comes from crypto/rand so concurrent creations in the same
// second stay distinct.
func GenerateOrderNo() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		// crypto/rand failing means the process has bigger problems;
		// fall back to the clock's sub-second bits
		n = big.NewInt(time.Now().UnixNano() % 1000000)
	}
	return fmt.Sprintf("%s%s%06d", orderNoPrefix, time.Now().Format("20060102150405"), n.Int64())
}
