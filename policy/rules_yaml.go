package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleDoc is the YAML-mapped shape of one rule in a rules file.
type ruleDoc struct {
	ID          string `yaml:"id"`
	Priority    int    `yaml:"priority"`
	Kind        string `yaml:"kind"`
	ToolName    string `yaml:"tool_name"`
	Glob        string `yaml:"glob"`
	MinRisk     string `yaml:"min_risk"`
	Decision    string `yaml:"decision"`
	Explanation string `yaml:"explanation"`
}

type rulesDoc struct {
	Rules []ruleDoc `yaml:"rules"`
}

var riskByName = map[string]Risk{
	"none":   RiskNone,
	"low":    RiskLow,
	"medium": RiskMedium,
	"high":   RiskHigh,
}

// LoadRules parses a declarative YAML rule set of the form:
//
//	rules:
//	  - id: deny-shell
//	    priority: 0
//	    kind: name_glob
//	    glob: "shell.*"
//	    decision: deny
//	    explanation: "shell tools are disabled by default"
//	  - id: default-allow
//	    priority: 1000
//	    kind: always
//	    decision: allow
func LoadRules(data []byte) (RuleSet, error) {
	var doc rulesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RuleSet{}, fmt.Errorf("policy: parse rules: %w", err)
	}
	rules := make([]Rule, 0, len(doc.Rules))
	for _, rd := range doc.Rules {
		risk, ok := riskByName[rd.MinRisk]
		if rd.MinRisk != "" && !ok {
			return RuleSet{}, fmt.Errorf("policy: rule %q: unknown min_risk %q", rd.ID, rd.MinRisk)
		}
		if !ok {
			risk = RiskNone
		}
		rules = append(rules, Rule{
			ID:          rd.ID,
			Priority:    rd.Priority,
			Kind:        ConditionKind(rd.Kind),
			ToolName:    rd.ToolName,
			Glob:        rd.Glob,
			MinRisk:     risk,
			Decision:    Decision(rd.Decision),
			Explanation: rd.Explanation,
		})
	}
	return RuleSet{Rules: rules}, nil
}

// LoadRulesFile reads and parses a rules YAML file from disk.
func LoadRulesFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("policy: read rules file: %w", err)
	}
	return LoadRules(data)
}
