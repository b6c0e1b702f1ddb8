package deck

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Columns is the number of fields each row must carry.
const Columns = 6

// Card is one vocabulary entry.
type Card struct {
	Number  int     `json:"number"`
	Word    string  `json:"word"`
	Pinyin  string  `json:"pinyin"`
	Meaning string  `json:"meaning"`
	Example Example `json:"example"`
}

// Example is the sample sentence attached to a card.
type Example struct {
	Text        string `json:"text"`
	Pinyin      string `json:"pinyin"`
	Translation string `json:"translation"`
}

// ReadCSV parses rows of word, pinyin, meaning, example, example pinyin and
// example translation. Extra trailing columns are ignored. A leading byte
// order mark is stripped. Quotes inside unquoted fields are kept as text,
// and field whitespace is preserved.
func ReadCSV(r io.Reader) ([]Card, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var cards []Card
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(row) < Columns {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, Columns, len(row))
		}
		cards = append(cards, Card{
			Number:  len(cards) + 1,
			Word:    clean(row[0]),
			Pinyin:  clean(row[1]),
			Meaning: clean(row[2]),
			Example: Example{
				Text:        clean(row[3]),
				Pinyin:      clean(row[4]),
				Translation: clean(row[5]),
			},
		})
	}
	return cards, nil
}

// WriteJSON writes cards as indented JSON. Non-ASCII text and HTML
// characters are written as-is.
func WriteJSON(w io.Writer, cards []Card) error {
	if cards == nil {
		cards = []Card{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cards); err != nil {
		return fmt.Errorf("encode deck: %w", err)
	}
	return nil
}

func clean(field string) string {
	return norm.NFC.String(field)
}
