package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidV1(t *testing.T) {
	doc, err := Parse(json.RawMessage(`{
		"version": "aegis.policy.v1",
		"rules": [
			{"kind": "allowed_actions", "actions": ["swap", "transfer"]},
			{"kind": "max_lamports_per_tx", "lteLamports": "1000000"},
			{"kind": "allowed_mints", "mints": ["` + solMint + `"]},
			{"kind": "max_slippage_bps", "lteBps": 100}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, VersionV1, doc.Version)
	assert.Len(t, doc.Rules, 4)
}

func TestParseEmptyRulesAllowed(t *testing.T) {
	doc, err := Parse(json.RawMessage(`{"version":"aegis.policy.v1","rules":[]}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Rules)
}

func TestParseRejectsV2KindInV1(t *testing.T) {
	_, err := Parse(json.RawMessage(`{
		"version": "aegis.policy.v1",
		"rules": [{"kind": "allowed_recipients", "addresses": ["a"]}]
	}`))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Issues[0], "allowed_recipients")
}

func TestParseV2Kinds(t *testing.T) {
	_, err := Parse(json.RawMessage(`{
		"version": "aegis.policy.v2",
		"rules": [
			{"kind": "allowed_recipients", "addresses": ["a"]},
			{"kind": "blocked_recipients", "addresses": ["b"]},
			{"kind": "allowed_swap_pairs", "pairs": [{"fromMint": "x", "toMint": "y"}]},
			{"kind": "allowed_swap_protocols", "protocols": ["jupiter", "orca"]},
			{"kind": "max_lamports_per_day_by_action", "action": "transfer", "lteLamports": "500"},
			{"kind": "max_lamports_per_tx_by_action", "action": "swap", "lteLamports": "500"},
			{"kind": "max_lamports_per_tx_by_mint", "mint": "m", "lteLamports": "500"}
		]
	}`))
	assert.NoError(t, err)
}

func TestParseUnknownVersion(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"version":"aegis.policy.v9","rules":[]}`))
	require.Error(t, err)
}

func TestParseUnknownKind(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"version":"aegis.policy.v2","rules":[{"kind":"new_rule"}]}`))
	require.Error(t, err)
}

func TestParseFieldShapes(t *testing.T) {
	cases := map[string]string{
		"negative lamports": `{"version":"aegis.policy.v1","rules":[{"kind":"max_lamports_per_tx","lteLamports":"-1"}]}`,
		"non-integer":       `{"version":"aegis.policy.v1","rules":[{"kind":"max_lamports_per_tx","lteLamports":"1.5"}]}`,
		"bps over 10000":    `{"version":"aegis.policy.v1","rules":[{"kind":"max_slippage_bps","lteBps":10001}]}`,
		"empty actions":     `{"version":"aegis.policy.v1","rules":[{"kind":"allowed_actions","actions":[]}]}`,
		"empty mints":       `{"version":"aegis.policy.v1","rules":[{"kind":"allowed_mints","mints":[]}]}`,
		"empty addresses":   `{"version":"aegis.policy.v2","rules":[{"kind":"allowed_recipients","addresses":[]}]}`,
		"pair missing mint": `{"version":"aegis.policy.v2","rules":[{"kind":"allowed_swap_pairs","pairs":[{"fromMint":"x"}]}]}`,
		"bad rule action":   `{"version":"aegis.policy.v2","rules":[{"kind":"max_lamports_per_day_by_action","action":"stake","lteLamports":"5"}]}`,
		"missing mint":      `{"version":"aegis.policy.v2","rules":[{"kind":"max_lamports_per_tx_by_mint","lteLamports":"5"}]}`,
	}
	for name, dsl := range cases {
		_, err := Parse(json.RawMessage(dsl))
		assert.Error(t, err, name)
	}
}
