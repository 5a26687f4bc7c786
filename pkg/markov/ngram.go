package markov

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrder is returned when an order is below 1 or longer than the n-gram it splits.
var ErrInvalidOrder = errors.New("invalid n-gram order")

// NGram is an ordered, fixed-length tuple of symbols.
type NGram []string

// Split divides an n-gram at the given order into its context (the first
// order-1 symbols) and its target (the order-th symbol). An order of 1 yields an
// empty context. The returned context shares memory with ngram.
func Split(ngram NGram, order int) ([]string, string, error) {
	if order < 1 || order > len(ngram) {
		return nil, "", fmt.Errorf("%w: order %d for n-gram of length %d", ErrInvalidOrder, order, len(ngram))
	}
	return ngram[:order-1], ngram[order-1], nil
}

// JoinContext builds the context key for a run of symbols.
func JoinContext(context []string, sep string) string {
	return strings.Join(context, sep)
}

// SplitKey is Split followed by JoinContext with the model's separator.
func (m *Model) SplitKey(ngram NGram, order int) (string, string, error) {
	context, target, err := Split(ngram, order)
	if err != nil {
		return "", "", err
	}
	return JoinContext(context, m.separator), target, nil
}
