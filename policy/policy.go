// Package policy implements the rule-based policy engine the middleware
// chain consults before each tool call: given a tool's name, arguments, and
// annotation-derived risk, it returns Allow, Deny, or RequireApproval.
package policy

import (
	"path"

	"github.com/arcanrun/arcane/tools"
)

// Decision is the closed outcome set of a policy evaluation.
type Decision string

const (
	Allow           Decision = "allow"
	Deny            Decision = "deny"
	RequireApproval Decision = "require_approval"
)

// Risk is a coarse ordinal risk classification derived from a tool's
// annotations, used by ConditionRiskAtLeast.
type Risk int

const (
	RiskNone Risk = iota
	RiskLow
	RiskMedium
	RiskHigh
)

// String renders r as the lowercase wire form used in approval events.
func (r Risk) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// RiskOf derives a Risk level from a tool's annotations: destructive or
// requires-confirmation tools are high risk; open-world (network/file
// system reaching outside the sandbox) tools are medium; everything else
// (read-only, idempotent, or undeclared) is low.
func RiskOf(def tools.Definition) Risk {
	if def.HasAnnotation(tools.AnnotationDestructive) || def.HasAnnotation(tools.AnnotationRequiresConfirmation) {
		return RiskHigh
	}
	if def.HasAnnotation(tools.AnnotationOpenWorld) {
		return RiskMedium
	}
	return RiskLow
}

// Context groups the information a Rule's condition inspects for one
// pending tool call.
type Context struct {
	ToolName  string
	Arguments map[string]any
	Risk      Risk
	SessionID string
	Role      string
	Sandbox   string
}

// ConditionKind is the closed set of rule condition shapes.
type ConditionKind string

const (
	ConditionToolName    ConditionKind = "tool_name"
	ConditionNameGlob    ConditionKind = "name_glob"
	ConditionRiskAtLeast ConditionKind = "risk_at_least"
	ConditionAlways      ConditionKind = "always"
)

// Rule is one policy rule: if Condition matches the call Context, Decision
// applies. Lower Priority values are evaluated first and win on match.
type Rule struct {
	ID          string
	Priority    int
	Kind        ConditionKind
	ToolName    string // used by ConditionToolName
	Glob        string // used by ConditionNameGlob
	MinRisk     Risk   // used by ConditionRiskAtLeast
	Decision    Decision
	Explanation string
}

// Matches reports whether r's condition matches ctx.
func (r Rule) Matches(ctx Context) bool {
	switch r.Kind {
	case ConditionToolName:
		return ctx.ToolName == r.ToolName
	case ConditionNameGlob:
		ok, err := path.Match(r.Glob, ctx.ToolName)
		return err == nil && ok
	case ConditionRiskAtLeast:
		return ctx.Risk >= r.MinRisk
	case ConditionAlways:
		return true
	default:
		return false
	}
}

// RuleSet is an ordered collection of Rules evaluated lowest-priority-first.
// A default-allow rule at the highest priority number is recommended so
// unmatched calls fall through to Allow.
type RuleSet struct {
	Rules []Rule
}

// Evaluate returns the decision and explanation for the first matching rule
// by ascending Priority, or Allow with no explanation if no rule matches.
func (rs RuleSet) Evaluate(ctx Context) (Decision, string, string) {
	ordered := make([]Rule, len(rs.Rules))
	copy(ordered, rs.Rules)
	sortByPriority(ordered)
	for _, r := range ordered {
		if r.Matches(ctx) {
			return r.Decision, r.Explanation, r.ID
		}
	}
	return Allow, "", ""
}

func sortByPriority(rules []Rule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].Priority < rules[j-1].Priority; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}
