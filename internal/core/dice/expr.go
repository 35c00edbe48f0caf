package dice

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
)

// Expression bounds.
const (
	MaxDice     = 100
	MaxSides    = 1000
	MaxModifier = 10000
)

var exprPattern = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)(\s*([+\-x*])\s*(\d+))?\s*$`)

// Expr is a parsed dice expression such as "2d6+3", "d3", "D6x2" or "4".
type Expr struct {
	Count    int
	Sides    int
	Op       byte
	Modifier int
	raw      string
}

// ParseExpr parses N, NdM, NdM+K, NdM-K and NdMxK (or NdM*K) expressions.
// A bare integer is a constant expression with no dice.
func ParseExpr(raw string) (Expr, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Expr{}, invalidExpr(raw)
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > MaxModifier {
			return Expr{}, invalidExpr(raw)
		}
		return Expr{Op: '+', Modifier: n, raw: value}, nil
	}

	m := exprPattern.FindStringSubmatch(value)
	if m == nil {
		return Expr{}, invalidExpr(raw)
	}
	expr := Expr{Count: 1, Op: '+', raw: value}
	var err error
	if m[1] != "" {
		if expr.Count, err = strconv.Atoi(m[1]); err != nil {
			return Expr{}, invalidExpr(raw)
		}
	}
	if expr.Sides, err = strconv.Atoi(m[2]); err != nil {
		return Expr{}, invalidExpr(raw)
	}
	if expr.Count <= 0 || expr.Count > MaxDice || expr.Sides <= 0 || expr.Sides > MaxSides {
		return Expr{}, invalidExpr(raw)
	}
	if m[3] != "" {
		expr.Op = m[4][0]
		if expr.Op == '*' {
			expr.Op = 'x'
		}
		if expr.Modifier, err = strconv.Atoi(m[5]); err != nil || expr.Modifier > MaxModifier {
			return Expr{}, invalidExpr(raw)
		}
	}
	return expr, nil
}

// Roll evaluates the expression; the result is never negative.
func (e Expr) Roll(rng *rand.Rand) int {
	return e.apply(Sum(rng, e.Count, e.Sides))
}

// Max returns the highest value the expression can produce.
func (e Expr) Max() int {
	return e.apply(e.Count * e.Sides)
}

// Min returns the lowest value the expression can produce.
func (e Expr) Min() int {
	return e.apply(e.Count)
}

// IsZero reports whether the expression can never produce more than zero.
func (e Expr) IsZero() bool {
	return e.Max() == 0
}

func (e Expr) String() string {
	if e.raw != "" {
		return e.raw
	}
	if e.Count == 0 {
		return strconv.Itoa(e.Modifier)
	}
	base := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	if e.Modifier == 0 && e.Op != 'x' {
		return base
	}
	return fmt.Sprintf("%s%c%d", base, e.Op, e.Modifier)
}

func (e Expr) apply(total int) int {
	switch e.Op {
	case '-':
		total -= e.Modifier
	case 'x':
		total *= e.Modifier
	default:
		total += e.Modifier
	}
	if total < 0 {
		return 0
	}
	return total
}

func invalidExpr(raw string) error {
	return apperrors.WithMetadata(apperrors.CodeDiceInvalidExpr,
		fmt.Sprintf("invalid dice expression %q", raw),
		map[string]string{"expr": raw})
}
