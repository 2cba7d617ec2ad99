//services/billing-service/internal/invoice/number.go

package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultNumberPrefix      = "FLT"
	DefaultMaxNumberAttempts = 5
	suffixLen                = 6
)

// NumberGenerator builds human readable invoice numbers: PREFIX-YYYYMM-XXXXXX.
type NumberGenerator struct {
	prefix      string
	maxAttempts int
	suffix      func() string
}

func NewNumberGenerator(prefix string, maxAttempts int) *NumberGenerator {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxNumberAttempts
	}
	return &NumberGenerator{prefix: prefix, maxAttempts: maxAttempts, suffix: randomSuffix}
}

func randomSuffix() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:suffixLen])
}

// Next returns a fresh candidate for the month of at. Uniqueness is checked by the caller.
func (g *NumberGenerator) Next(at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", g.prefix, at.UTC().Format("200601"), g.suffix())
}

func (g *NumberGenerator) MaxAttempts() int { return g.maxAttempts }
