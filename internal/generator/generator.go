// Package generator produces synthetic user identities for seeding the
// directory. A Generator draws usernames, phone numbers and emails from a
// single random source; emails are checked against the set already issued
// in the current run.
package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/atinyakov/go-user-directory/internal/models"
)

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"

	phoneLength = 10
)

var (
	// ErrGenerationExhausted is returned when no unused email could be
	// produced within the configured number of attempts.
	ErrGenerationExhausted = errors.New("generation exhausted")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid generator config")
)

// Config bounds the shape of generated identities.
type Config struct {
	// UsernameMinLen and UsernameMaxLen bound the username length, inclusive.
	UsernameMinLen int
	UsernameMaxLen int

	// LocalPartLen is the length of the email part before '@'.
	LocalPartLen int

	// LocalAlphabet is the ASCII set the local part is drawn from.
	LocalAlphabet string

	// Domains are the email domains; each must contain a dot.
	Domains []string

	// MaxAttempts caps the retries of UniqueEmail.
	MaxAttempts int
}

// DefaultConfig returns the configuration used by the service.
func DefaultConfig() Config {
	return Config{
		UsernameMinLen: 5,
		UsernameMaxLen: 10,
		LocalPartLen:   10,
		LocalAlphabet:  "abcdefghijklmnopqrstuvwxyz0123456789",
		Domains:        []string{"example.com", "mail.com", "test.org", "demo.net"},
		MaxAttempts:    100,
	}
}

// Validate reports whether the config can produce valid identities.
func (c Config) Validate() error {
	switch {
	case c.UsernameMinLen < 1:
		return fmt.Errorf("%w: username min length must be positive", ErrInvalidConfig)
	case c.UsernameMaxLen < c.UsernameMinLen:
		return fmt.Errorf("%w: username max length %d below min %d", ErrInvalidConfig, c.UsernameMaxLen, c.UsernameMinLen)
	case c.LocalPartLen < 1:
		return fmt.Errorf("%w: local part length must be positive", ErrInvalidConfig)
	case c.LocalAlphabet == "" || strings.ContainsAny(c.LocalAlphabet, "@ \t\n"):
		return fmt.Errorf("%w: local alphabet must be non-empty and contain no '@' or spaces", ErrInvalidConfig)
	case len(c.Domains) == 0:
		return fmt.Errorf("%w: at least one domain is required", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be positive", ErrInvalidConfig)
	}

	for i := 0; i < len(c.LocalAlphabet); i++ {
		if c.LocalAlphabet[i] > 0x7f {
			return fmt.Errorf("%w: local alphabet must be ASCII", ErrInvalidConfig)
		}
	}

	for _, d := range c.Domains {
		if !strings.Contains(d, ".") || strings.ContainsAny(d, "@ \t\n") || strings.HasPrefix(d, ".") || strings.HasSuffix(d, ".") {
			return fmt.Errorf("%w: malformed domain %q", ErrInvalidConfig, d)
		}
	}

	return nil
}

// Generator draws identity fields. It is not safe for concurrent use.
type Generator struct {
	cfg Config
	rnd *rand.Rand
}

// New returns a Generator for cfg. A nil src seeds a PCG source from the
// runtime's global generator.
func New(cfg Config, src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Generator{
		cfg: cfg,
		rnd: rand.New(src),
	}
}

// Username returns a purely alphabetic name of random length within the
// configured range.
func (g *Generator) Username() string {
	n := g.cfg.UsernameMinLen
	if span := g.cfg.UsernameMaxLen - g.cfg.UsernameMinLen; span > 0 {
		n += g.rnd.IntN(span + 1)
	}
	return g.pick(letters, n)
}

// PhoneNumber returns exactly ten decimal digits.
func (g *Generator) PhoneNumber() string {
	return g.pick(digits, phoneLength)
}

// UniqueEmail returns an address absent from issued. The set is read,
// not updated; recording the result is the caller's job.
func (g *Generator) UniqueEmail(issued map[string]struct{}) (string, error) {
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		email := g.email()
		if _, taken := issued[email]; !taken {
			return email, nil
		}
	}

	return "", fmt.Errorf("%w: no unused email after %d attempts", ErrGenerationExhausted, g.cfg.MaxAttempts)
}

// Record draws a complete candidate whose email is absent from issued.
func (g *Generator) Record(issued map[string]struct{}) (models.User, error) {
	email, err := g.UniqueEmail(issued)
	if err != nil {
		return models.User{}, err
	}

	return models.User{
		Username: g.Username(),
		Email:    email,
		Phone:    g.PhoneNumber(),
	}, nil
}

// Capacity is the number of distinct emails the config can produce,
// saturating at math.MaxUint64.
func (g *Generator) Capacity() uint64 {
	capacity := uint64(len(g.cfg.Domains))
	base := uint64(len(g.cfg.LocalAlphabet))

	for i := 0; i < g.cfg.LocalPartLen; i++ {
		if capacity > math.MaxUint64/base {
			return math.MaxUint64
		}
		capacity *= base
	}

	return capacity
}

func (g *Generator) email() string {
	local := g.pick(g.cfg.LocalAlphabet, g.cfg.LocalPartLen)
	domain := g.cfg.Domains[g.rnd.IntN(len(g.cfg.Domains))]
	return local + "@" + domain
}

func (g *Generator) pick(alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[g.rnd.IntN(len(alphabet))])
	}
	return sb.String()
}
