// Package cost turns token and image counts into a dollar estimate.
package cost

// Rates are dollars per million tokens and per generated image.
type Rates struct {
	InputPerMillion  float64 `toml:"input_per_million"`
	OutputPerMillion float64 `toml:"output_per_million"`
	PerImage         float64 `toml:"per_image"`
}

func DefaultRates() Rates {
	return Rates{InputPerMillion: 0.30, OutputPerMillion: 2.50, PerImage: 0.039}
}

// Usage accumulates the token and image counts of one or more generation calls.
type Usage struct {
	InputTokens  float64
	OutputTokens float64
	Images       int
}

// Add records one call. Order does not matter.
func (u *Usage) Add(in, out int) {
	u.InputTokens += float64(in)
	u.OutputTokens += float64(out)
}

func (u Usage) Plus(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		Images:       u.Images + o.Images,
	}
}

// Split apportions a batch call evenly across n children.
func (u Usage) Split(n int) Usage {
	if n <= 1 {
		return u
	}
	return Usage{
		InputTokens:  u.InputTokens / float64(n),
		OutputTokens: u.OutputTokens / float64(n),
		Images:       u.Images / n,
	}
}

func (r Rates) Estimate(in, out float64, images int) float64 {
	return (in/1e6)*r.InputPerMillion + (out/1e6)*r.OutputPerMillion + float64(images)*r.PerImage
}

func (r Rates) Of(u Usage) float64 {
	return r.Estimate(u.InputTokens, u.OutputTokens, u.Images)
}
