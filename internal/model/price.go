package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Price is a monetary amount in dollars. It decodes leniently: numbers,
// numeric strings ("$1,200.50"), null and malformed values never fail the
// surrounding document; anything unparseable becomes 0.
type Price float64

func (p Price) Float() float64 { return float64(p) }

func (p Price) MarshalJSON() ([]byte, error) {
	f := float64(p)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*p = 0
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, _, err := ParsePrice(s)
		if err != nil {
			return nil
		}
		*p = Price(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil
	}
	*p = Price(v)
	return nil
}

// ParsePrice splits a display price such as "AU$1,250.00" into its numeric
// value and currency prefix. An empty string parses as zero.
func ParsePrice(price string) (float64, string, error) {
	price = strings.TrimSpace(price)

	if price == "" {
		return 0, "", nil
	}

	// "1,250.00" and "1,200" use ',' for thousands; "12,50" uses it as the
	// decimal mark.
	decimalComma := !strings.Contains(price, ".") && strings.Count(price, ",") == 1 &&
		digitsAfter(price, strings.IndexByte(price, ',')) < 3

	currency, number := "", ""
	negative := false

	for _, char := range price {
		switch {
		case char == ' ' || char == '+':
		case char == '-' && number == "":
			negative = true
		case char == ',':
			if decimalComma {
				number += "."
			}
		case char == '.':
			number += "."
		case unicode.IsDigit(char):
			number += string(char)
		default:
			currency += string(char)
		}
	}

	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, "", err
	}
	if negative {
		f = -f
	}

	return f, currency, nil
}

// digitsAfter counts the digits directly following s[i].
func digitsAfter(s string, i int) int {
	n := 0
	for _, r := range s[i+1:] {
		if !unicode.IsDigit(r) {
			break
		}
		n++
	}
	return n
}
