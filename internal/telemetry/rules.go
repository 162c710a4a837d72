// Package telemetry turns inbound sensor samples into bin state changes and
// alerts.
package telemetry

import (
	"fmt"
	"strconv"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/models"
)

// AlertIntent is an alert the rules want raised, before it is stored.
type AlertIntent struct {
	Type        models.AlertType
	Severity    models.AlertSeverity
	Message     string
	ValueAtTime string
}

type RuleConfig struct {
	FullnessWarningLevel  int
	FullnessCriticalLevel int
	OverloadAlerts        bool
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{FullnessWarningLevel: 90, FullnessCriticalLevel: 100}
}

// RuleConfigFrom maps the config section; unset levels fall back to defaults.
func RuleConfigFrom(cfg config.RulesConfig) RuleConfig {
	rc := DefaultRuleConfig()
	if cfg.FullnessWarningLevel > 0 {
		rc.FullnessWarningLevel = cfg.FullnessWarningLevel
	}
	if cfg.FullnessCriticalLevel > 0 {
		rc.FullnessCriticalLevel = cfg.FullnessCriticalLevel
	}
	rc.OverloadAlerts = cfg.OverloadAlerts
	return rc
}

// Rule is a threshold test over a single sample.
type Rule struct {
	Name     string
	Evaluate func(s models.Telemetry) (AlertIntent, bool)
}

// RuleEngine runs every rule against a sample. Rules are independent and
// none suppresses another.
type RuleEngine struct {
	rules []Rule
}

func NewRuleEngine(cfg RuleConfig) *RuleEngine {
	rules := []Rule{smokeRule(), fullnessRule(cfg.FullnessWarningLevel, cfg.FullnessCriticalLevel)}
	if cfg.OverloadAlerts {
		rules = append(rules, overloadRule())
	}
	return &RuleEngine{rules: rules}
}

// Evaluate returns the intents in rule order. It never returns nil.
func (e *RuleEngine) Evaluate(sample models.Telemetry) []AlertIntent {
	out := make([]AlertIntent, 0, len(e.rules))
	for _, r := range e.rules {
		if intent, fired := r.Evaluate(sample); fired {
			out = append(out, intent)
		}
	}
	return out
}

func (e *RuleEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

func smokeRule() Rule {
	return Rule{
		Name: "smoke",
		Evaluate: func(s models.Telemetry) (AlertIntent, bool) {
			if !s.IsSmokeDetected {
				return AlertIntent{}, false
			}
			return AlertIntent{
				Type:        models.AlertTypeSmoke,
				Severity:    models.SeverityCritical,
				Message:     "smoke detected in container",
				ValueAtTime: "smoke=true",
			}, true
		},
	}
}

func fullnessRule(warnAt, criticalAt int) Rule {
	return Rule{
		Name: "fullness",
		Evaluate: func(s models.Telemetry) (AlertIntent, bool) {
			if s.FillLevel < warnAt {
				return AlertIntent{}, false
			}
			severity := models.SeverityWarning
			if s.FillLevel >= criticalAt {
				severity = models.SeverityCritical
			}
			return AlertIntent{
				Type:        models.AlertTypeFullness,
				Severity:    severity,
				Message:     fmt.Sprintf("container is %d%% full", s.FillLevel),
				ValueAtTime: strconv.Itoa(s.FillLevel) + "%",
			}, true
		},
	}
}

func overloadRule() Rule {
	return Rule{
		Name: "overload",
		Evaluate: func(s models.Telemetry) (AlertIntent, bool) {
			if !s.IsOverloaded {
				return AlertIntent{}, false
			}
			return AlertIntent{
				Type:        models.AlertTypeOverload,
				Severity:    models.SeverityCritical,
				Message:     "container weight limit exceeded",
				ValueAtTime: "overloaded=true",
			}, true
		},
	}
}
