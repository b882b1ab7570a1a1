package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// A positive size evicts the least recently seen ID once full; zero or a
// negative size keeps every ID.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithEvictHook registers fn to run whenever recording an ID pushes the
// least recently seen one out. It is not called for Unrecord.
func WithEvictHook(fn func()) Option {
	return func(d *inMemoryDeduper) {
		d.onEvict = fn
	}
}
