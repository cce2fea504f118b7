package password

import "fmt"

// Algorithm selects the Hasher built by NewHasher.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Config is the auth.password block. The argon2 fields apply only when
// Algorithm is argon2id; argon2_memory is in KiB.
type Config struct {
	Algorithm     Algorithm `mapstructure:"algorithm"`
	BcryptCost    int       `mapstructure:"bcrypt_cost"`
	Argon2Time    uint32    `mapstructure:"argon2_time"`
	Argon2Memory  uint32    `mapstructure:"argon2_memory"`
	Argon2Threads uint8     `mapstructure:"argon2_threads"`
	// MinLength applies to new passwords only; login never checks it.
	MinLength int `mapstructure:"min_length"`
}

// ApplyDefaults gives bcrypt at cost 12 and an 8 character minimum.
func (c *Config) ApplyDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = AlgorithmBcrypt
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = defaultBcryptCost
	}
	if c.Argon2Time == 0 {
		c.Argon2Time = defaultArgon2.time
	}
	if c.Argon2Memory == 0 {
		c.Argon2Memory = defaultArgon2.memory
	}
	if c.Argon2Threads == 0 {
		c.Argon2Threads = defaultArgon2.threads
	}
	if c.MinLength == 0 {
		c.MinLength = defaultMinLength
	}
}

func (c *Config) Validate() error {
	if c.Algorithm != AlgorithmBcrypt && c.Algorithm != AlgorithmArgon2id {
		return fmt.Errorf("unsupported algorithm: %s (use bcrypt or argon2id)", c.Algorithm)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31 (got: %d)", c.BcryptCost)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("min_length must be >= 1 (got: %d)", c.MinLength)
	}
	return nil
}

// NewHasher builds the configured Hasher. Zero fields take the defaults.
func NewHasher(cfg Config) Hasher {
	cfg.ApplyDefaults()
	if cfg.Algorithm == AlgorithmArgon2id {
		return NewArgon2Hasher(
			WithArgon2Time(cfg.Argon2Time),
			WithArgon2Memory(cfg.Argon2Memory),
			WithArgon2Threads(cfg.Argon2Threads),
			WithArgon2MinLength(cfg.MinLength),
		)
	}
	return NewBcryptHasher(WithCost(cfg.BcryptCost), WithMinLength(cfg.MinLength))
}
