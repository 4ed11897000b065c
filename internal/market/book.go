package market

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Level is aggregated resting interest at one price: price, total size and
// the number of distinct orders at that price.
type Level struct {
	Price float64
	Size  float64
	Count int
}

// Book holds one side-ordered snapshot of the book, best price first per
// side. Levels[0] are bids, Levels[1] asks, matching the venue layout.
type Book struct {
	Coin   string
	Levels [2][]Level
}

func (b Book) Side(idx int) []Level {
	if idx < 0 || idx > 1 {
		return nil
	}
	return b.Levels[idx]
}

// ParseBook decodes an l2Book payload, either the /info response object or
// the data field of a ws l2Book message (both share the same shape).
func ParseBook(payload map[string]any) (Book, error) {
	if payload == nil {
		return Book{}, errors.New("empty book payload")
	}
	book := Book{Coin: stringFromAny(payload["coin"])}
	sides, ok := toSlice(payload["levels"])
	if !ok || len(sides) != 2 {
		return Book{}, errors.New("book payload missing levels")
	}
	for i := 0; i < 2; i++ {
		raw, ok := toSlice(sides[i])
		if !ok {
			return Book{}, fmt.Errorf("book side %d malformed", i)
		}
		levels := make([]Level, 0, len(raw))
		for _, entry := range raw {
			m, ok := toMap(entry)
			if !ok {
				continue
			}
			price, okPx := floatFromAny(m["px"])
			size, okSz := floatFromAny(m["sz"])
			count, _ := intFromAny(m["n"])
			if !okPx || !okSz {
				continue
			}
			levels = append(levels, Level{Price: price, Size: size, Count: count})
		}
		book.Levels[i] = levels
	}
	return book, nil
}

// ParseBookMessage decodes the data field of a ws l2Book event.
func ParseBookMessage(data json.RawMessage) (Book, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return Book{}, err
	}
	return ParseBook(payload)
}
