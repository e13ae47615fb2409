package datagen

// Config drives the synthetic customer generator.
type Config struct {
	// Scale multiplies every cohort size; rates are unchanged by it.
	Scale int
	Seed  int64
}

// DefaultConfig produces the 10,000-row reference table.
func DefaultConfig() Config {
	return Config{Scale: 1, Seed: 42}
}
