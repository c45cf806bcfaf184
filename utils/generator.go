package utils

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const affiliateCodeLength = 8
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const maxCodeAttempts = 10

var ErrCodeSpaceExhausted = errors.New("could not generate a unique affiliate code")

// GenerateUniqueAffiliateCode draws random codes until exists reports one as free.
func GenerateUniqueAffiliateCode(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		b := make([]byte, affiliateCodeLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		code := string(b)

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
