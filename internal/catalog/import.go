package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/robalobadob/carguess/internal/car"
)

// exportRecord accepts the listing export shape, including a Mongo-style
// _id that is either a string or {"$oid": "..."}.
type exportRecord struct {
	car.Car
	OID json.RawMessage `json:"_id"`
}

// ParseExport decodes a JSON array of listings and assigns ids.
// Records with neither a title nor an image are skipped.
func ParseExport(data []byte) ([]car.Car, error) {
	var recs []exportRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	out := make([]car.Car, 0, len(recs))
	for _, r := range recs {
		c := r.Car
		if strings.TrimSpace(c.Title) == "" && c.Image.Src == "" && len(c.Images) == 0 {
			continue
		}
		if c.ID == "" {
			c.ID = assignID(c, r.OID)
		}
		c.Ticket = ""
		out = append(out, c)
	}
	return out, nil
}

// assignID prefers the listing id, then the export's _id, then a slug of
// title and year. The slug suffix is a name-based uuid of the record's
// identifying fields, so importing the same file again replaces rather
// than duplicates.
func assignID(c car.Car, oid json.RawMessage) string {
	if c.ListingID != "" {
		return c.ListingID
	}
	if id := parseOID(oid); id != "" {
		return id
	}
	year := ""
	if c.Year.Finite() {
		year = strconv.Itoa(int(c.Year.Value))
	}
	key := strings.Join([]string{c.Title, year, c.URL, c.Image.Src}, "|")
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
	if s := slug.Make(strings.TrimSpace(c.Title + " " + year)); s != "" {
		return s + "-" + id[:8]
	}
	return id
}

func parseOID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		OID string `json:"$oid"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.OID
	}
	return ""
}
