package utils

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// SecureShuffle permutes s in place with Fisher-Yates, drawing indexes from crypto/rand
func SecureShuffle[T any](s []T) error {
	return shuffleFrom(crand.Reader, s)
}

func shuffleFrom[T any](r io.Reader, s []T) error {
	for i := len(s) - 1; i > 0; i-- {
		n, err := crand.Int(r, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("read random index: %w", err)
		}
		j := int(n.Int64())
		s[i], s[j] = s[j], s[i]
	}
	return nil
}
