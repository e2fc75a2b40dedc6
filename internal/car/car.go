package car

// TargetPrice resolves the single authoritative price for scoring:
// Price if present and finite, else InitialPriceRub, else absent.
func (c Car) TargetPrice() (float64, bool) {
	if c.Price.Finite() {
		return c.Price.Value, true
	}
	if c.InitialPriceRub.Finite() {
		return c.InitialPriceRub.Value, true
	}
	return 0, false
}

// Gallery returns the photos for the carousel, falling back to the cover
// image when the listing has no gallery.
func (c Car) Gallery() []Image {
	if len(c.Images) > 0 {
		return c.Images
	}
	if c.Image.Src == "" {
		return nil
	}
	return []Image{{
		Src:    c.Image.Src,
		Src2x:  c.Image.Srcset2x,
		Width:  c.Image.Width,
		Height: c.Image.Height,
		Alt:    c.Image.Alt,
	}}
}

// Redacted returns a copy with the answer fields cleared, for callers that
// must not reveal price or title before the guess.
func (c Car) Redacted() Car {
	c.Title = ""
	c.Subtitle = ""
	c.Price = Number{}
	c.InitialPriceRub = Number{}
	c.PriceLabel = ""
	c.URL = ""
	return c
}
