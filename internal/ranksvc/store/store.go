package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

// ErrReadOnly is returned by repositories that cannot store cards.
var ErrReadOnly = errors.New("card store is read-only")

// DecodeCatalog reads a card catalog. Both a bare JSON array and an object
// with a "cards" array are accepted. Cards without an id are dropped.
func DecodeCatalog(r io.Reader) ([]scoring.Card, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var cards []scoring.Card
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Cards []scoring.Card `json:"cards"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		cards = wrapped.Cards
	} else if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := cards[:0]
	for _, c := range cards {
		if c.ID != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
