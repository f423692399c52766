package domain

import (
	"errors"
	"fmt"
)

var (
	ErrScorerNotRegistered = errors.New("scorer not registered")
	ErrUnsupportedModule   = errors.New("unsupported business module")
	ErrNoRecommendation    = errors.New("no suitable recommendation found")
	ErrRankTimeout         = errors.New("rank timeout")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RankTimeoutError builds the timeout error with the effective deadline encoded
// in the message so callers can tell "too slow" from "no data".
func RankTimeoutError(timeoutMs int64) error {
	return fmt.Errorf("%w: scorer exceeded %dms", ErrRankTimeout, timeoutMs)
}
