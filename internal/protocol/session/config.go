package session

const (
	DefaultChunkSize      = 4 << 20
	DefaultMaxListEntries = 4096

	// MaxListEntriesCeiling caps any configured listing limit. A full listing
	// at the ceiling is 280 MiB.
	MaxListEntriesCeiling = 1 << 20
)

// Config defines per-session transfer limits.
type Config struct {
	// ChunkSize is the size of the buffer used to stream payloads.
	ChunkSize int
	// MaxListEntries bounds how many FileEntry rows a listing may carry.
	MaxListEntries uint64
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:      DefaultChunkSize,
		MaxListEntries: DefaultMaxListEntries,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.MaxListEntries == 0 {
		c.MaxListEntries = d.MaxListEntries
	}
	return c
}
