// internal/car/types.go
//
// Core type definitions for a car listing used as one round's fact sheet.
// Defines:
//   - Number: an optional numeric field that tolerates malformed JSON.
//   - Image / MainImage: listing photos (URLs only, never fetched here).
//   - Car: the record shown to the player and revealed after a guess.

package car

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Number is an optional float that decodes leniently.
// Any JSON value that is not a finite number (string, bool, null, object)
// decodes to an absent Number instead of failing the whole document.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a present Number.
func Num(v float64) Number { return Number{Value: v, Valid: true} }

// Finite reports whether the number is present and finite.
func (n Number) Finite() bool {
	return n.Valid && !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)
}

// Ptr returns nil for absent/non-finite numbers.
func (n Number) Ptr() *float64 {
	if !n.Finite() {
		return nil
	}
	v := n.Value
	return &v
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '"' || b[0] == '{' || b[0] == '[' {
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Finite() {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Image is one gallery photo.
type Image struct {
	Src    string `json:"src,omitempty"`
	Src2x  string `json:"src2x,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Alt    string `json:"alt,omitempty"`
}

// MainImage is the listing's cover photo.
type MainImage struct {
	Src          string `json:"src,omitempty"`
	Srcset1x     string `json:"srcset1x,omitempty"`
	Srcset2x     string `json:"srcset2x,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Alt          string `json:"alt,omitempty"`
	IsFirstPhoto bool   `json:"isFirstPhoto,omitempty"`
}

// Car is an immutable listing record.
//
// Price is authoritative; InitialPriceRub is the legacy field carried by
// older exports. Ticket is set by the server when the record is issued for
// a round and is echoed back by clients on guess submission.
type Car struct {
	ID              string    `json:"id"`
	ListingID       string    `json:"listingId,omitempty"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle,omitempty"`
	Year            Number    `json:"year"`
	Price           Number    `json:"price"`
	InitialPriceRub Number    `json:"initialPriceRub"`
	PriceLabel      string    `json:"priceLabel,omitempty"`
	Description     []string  `json:"description"`
	Drive           string    `json:"drive,omitempty"`
	EngineHP        Number    `json:"engineHp"`
	EngineLiters    Number    `json:"engineLiters"`
	Fuel            string    `json:"fuel,omitempty"`
	Transmission    string    `json:"transmission,omitempty"`
	MileageKm       Number    `json:"mileageKm"`
	Location        string    `json:"location,omitempty"`
	URL             string    `json:"url,omitempty"`
	Image           MainImage `json:"image"`
	Images          []Image   `json:"images,omitempty"`
	Ticket          string    `json:"ticket,omitempty"`
}
