package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanrun/arcane/policy"
)

func TestRuleSetEvaluatesLowestPriorityFirst(t *testing.T) {
	rs := policy.RuleSet{Rules: []policy.Rule{
		{ID: "default-allow", Priority: 1000, Kind: policy.ConditionAlways, Decision: policy.Allow},
		{ID: "deny-shell", Priority: 0, Kind: policy.ConditionNameGlob, Glob: "shell.*", Decision: policy.Deny, Explanation: "disabled"},
	}}

	decision, explanation, ruleID := rs.Evaluate(policy.Context{ToolName: "shell.exec"})
	assert.Equal(t, policy.Deny, decision)
	assert.Equal(t, "disabled", explanation)
	assert.Equal(t, "deny-shell", ruleID)

	decision, _, _ = rs.Evaluate(policy.Context{ToolName: "read_file"})
	assert.Equal(t, policy.Allow, decision)
}

func TestRequireApprovalOnHighRisk(t *testing.T) {
	rs := policy.RuleSet{Rules: []policy.Rule{
		{ID: "approve-high-risk", Priority: 0, Kind: policy.ConditionRiskAtLeast, MinRisk: policy.RiskHigh, Decision: policy.RequireApproval},
		{ID: "default-allow", Priority: 1000, Kind: policy.ConditionAlways, Decision: policy.Allow},
	}}
	decision, _, _ := rs.Evaluate(policy.Context{ToolName: "delete_file", Risk: policy.RiskHigh})
	assert.Equal(t, policy.RequireApproval, decision)
}

func TestLoadRulesFromYAML(t *testing.T) {
	rs, err := policy.LoadRules([]byte(`
rules:
  - id: deny-shell
    priority: 0
    kind: name_glob
    glob: "shell.*"
    decision: deny
    explanation: "shell tools are disabled by default"
  - id: default-allow
    priority: 1000
    kind: always
    decision: allow
`))
	require.NoError(t, err)
	require.Len(t, rs.Rules, 2)
	decision, _, _ := rs.Evaluate(policy.Context{ToolName: "shell.exec"})
	assert.Equal(t, policy.Deny, decision)
}
