package delaychunks

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/config"
)

const (
	LabelUnsigned = "unsigned"
	LabelEarly    = "early"
	LabelLate     = "late"
	LabelOnTime   = "on-time"
)

// Categorizer maps a delay in seconds (positive means behind schedule) to a label
type Categorizer interface {
	Categorize(delaySeconds int) string
}

type CategorizerFunc func(delaySeconds int) string

func (f CategorizerFunc) Categorize(delaySeconds int) string {
	return f(delaySeconds)
}

// ThresholdCategorizer is early when more than Early ahead of schedule and late when
// more than Late behind it
type ThresholdCategorizer struct {
	Early time.Duration
	Late  time.Duration
}

func (c ThresholdCategorizer) Categorize(delaySeconds int) string {
	delay := time.Duration(delaySeconds) * time.Second

	switch {
	case delay < -c.Early:
		return LabelEarly
	case delay > c.Late:
		return LabelLate
	default:
		return LabelOnTime
	}
}

type exprRule struct {
	label   string
	program *vm.Program
}

// ExprCategorizer evaluates configured expressions in order, eg. `delay > 180`
type ExprCategorizer struct {
	rules    []exprRule
	fallback string
}

type exprEnvironment struct {
	Delay int `expr:"delay"`
}

func NewExprCategorizer(rules []config.DelayRule, fallback string) (*ExprCategorizer, error) {
	categorizer := &ExprCategorizer{fallback: fallback}

	for _, rule := range rules {
		program, err := expr.Compile(rule.When, expr.Env(exprEnvironment{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compiling delay rule %q: %w", rule.Label, err)
		}

		categorizer.rules = append(categorizer.rules, exprRule{
			label:   rule.Label,
			program: program,
		})
	}

	return categorizer, nil
}

func (c *ExprCategorizer) Categorize(delaySeconds int) string {
	environment := exprEnvironment{Delay: delaySeconds}

	for _, rule := range c.rules {
		matched, err := expr.Run(rule.program, environment)
		if err != nil {
			log.Debug().Err(err).Str("label", rule.label).Int("delay", delaySeconds).Msg("Delay rule failed")
			continue
		}

		if matched.(bool) {
			return rule.label
		}
	}

	return c.fallback
}

// NewCategorizer picks the expression categorizer when rules are configured, otherwise thresholds
func NewCategorizer(delayConfig config.DelayConfig) (Categorizer, error) {
	if len(delayConfig.Rules) > 0 {
		return NewExprCategorizer(delayConfig.Rules, delayConfig.Fallback)
	}

	return ThresholdCategorizer{
		Early: delayConfig.EarlyThreshold.Duration(),
		Late:  delayConfig.LateThreshold.Duration(),
	}, nil
}
