// Package sentiment looks up externally computed sentiment sub-scores.
package sentiment

import (
	"context"
	"strings"

	"BhavSentinel/internal/model"
)

// Provider returns the sentiment record for a symbol. A nil record with a
// nil error means the provider has nothing for that symbol.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*model.Sentiment, error)
}

// Neutral is a Provider that never has data.
type Neutral struct{}

func (Neutral) Lookup(context.Context, string) (*model.Sentiment, error) { return nil, nil }

// Static serves fixed records keyed by upper-case symbol.
type Static map[string]model.Sentiment

func (s Static) Lookup(_ context.Context, symbol string) (*model.Sentiment, error) {
	rec, ok := s[strings.ToUpper(symbol)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
