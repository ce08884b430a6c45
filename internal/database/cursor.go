package database

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MrJamesThe3rd/invoicely/internal/calendar"
)

var ErrBadCursor = errors.New("malformed cursor")

// Cursor is a keyset position in a (date DESC, seq DESC) ordering.
type Cursor struct {
	Date calendar.Date
	Seq  int64
}

func (c Cursor) Encode() string {
	raw := c.Date.String() + "|" + strconv.FormatInt(c.Seq, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by Encode. The empty string yields a
// nil cursor, meaning the start of the collection.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}

	datePart, seqPart, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, ErrBadCursor
	}

	date, err := calendar.Parse(datePart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}

	seq, err := strconv.ParseInt(seqPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}

	return &Cursor{Date: date, Seq: seq}, nil
}
