package dice

import "go.uber.org/zap"

// Roller wraps a Source with debug logging so every combat roll leaves an
// audit trail.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// Between returns a logged random int in [min, max] inclusive.
//
// Precondition: min <= max.
func (r *Roller) Between(min, max int) int {
	v := Between(r.src, min, max)
	r.logger.Debug("roll between",
		zap.Int("min", min),
		zap.Int("max", max),
		zap.Int("result", v),
	)
	return v
}

// Chance returns a logged probability roll under p.
func (r *Roller) Chance(p float64) bool {
	ok := Chance(r.src, p)
	r.logger.Debug("roll chance",
		zap.Float64("p", p),
		zap.Bool("success", ok),
	)
	return ok
}

// WeightedIndex returns a logged weighted pick.
//
// Precondition: at least one weight must be > 0.
func (r *Roller) WeightedIndex(weights []int) int {
	i := WeightedIndex(r.src, weights)
	r.logger.Debug("roll weighted",
		zap.Ints("weights", weights),
		zap.Int("index", i),
	)
	return i
}
