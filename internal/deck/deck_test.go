package deck

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadCSVNumbersRowsInOrder(t *testing.T) {
	input := "你好,nǐ hǎo,hello,你好吗？,nǐ hǎo ma?,How are you?\n" +
		"谢谢, xièxie ,thanks,\"谢谢你, 朋友\",xièxie nǐ péngyou,\"Thank you, friend\"\n"

	cards, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Number != 1 || cards[1].Number != 2 {
		t.Fatalf("unexpected numbering: %d, %d", cards[0].Number, cards[1].Number)
	}
	second := cards[1]
	if second.Pinyin != " xièxie " {
		t.Fatalf("expected pinyin copied as written, got %q", second.Pinyin)
	}
	if second.Example.Text != "谢谢你, 朋友" || second.Example.Translation != "Thank you, friend" {
		t.Fatalf("unexpected example: %+v", second.Example)
	}
}

func TestReadCSVNormalizesToNFC(t *testing.T) {
	// "ǎ" written as a + combining caron.
	decomposed := "ha\u030co"
	input := "好," + decomposed + ",good,好,hǎo,good\n"

	cards, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if cards[0].Pinyin != "hǎo" {
		t.Fatalf("expected composed pinyin, got %q", cards[0].Pinyin)
	}
}

func TestReadCSVKeepsQuotesInUnquotedFields(t *testing.T) {
	input := "你好,nǐ hǎo,hello,他说\"你好\",tā shuō \"nǐ hǎo\",He said \"hello\"\n"

	cards, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	ex := cards[0].Example
	if ex.Text != "他说\"你好\"" || ex.Translation != "He said \"hello\"" {
		t.Fatalf("unexpected example: %+v", ex)
	}
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	cards, err := ReadCSV(strings.NewReader("\ufeff一,yī,one,一个,yí gè,one (item)\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if cards[0].Word != "一" {
		t.Fatalf("expected BOM to be stripped, got %q", cards[0].Word)
	}
}

func TestReadCSVRejectsShortRows(t *testing.T) {
	input := "一,yī,one,一个,yí gè,one\n二,èr,two\n"
	_, err := ReadCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for short row")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error to name line 2, got %v", err)
	}
}

func TestWriteJSONShape(t *testing.T) {
	cards := []Card{{
		Number:  1,
		Word:    "你好",
		Pinyin:  "nǐ hǎo",
		Meaning: "hello & welcome",
		Example: Example{Text: "你好！", Pinyin: "nǐ hǎo!", Translation: "<hi>"},
	}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, cards); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	want := `[
  {
    "number": 1,
    "word": "你好",
    "pinyin": "nǐ hǎo",
    "meaning": "hello & welcome",
    "example": {
      "text": "你好！",
      "pinyin": "nǐ hǎo!",
      "translation": "<hi>"
    }
  }
]
`
	if buf.String() != want {
		t.Fatalf("unexpected JSON:\n%s", buf.String())
	}
}

func TestWriteJSONEmptyDeck(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}
