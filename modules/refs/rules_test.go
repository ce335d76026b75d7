package refs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefRevParseRules(t *testing.T) {
	rules := RefRevParseRules()
	require.Equal(t, "refs/heads/mainline", rules[3].ReferenceName("mainline").String())
}

func TestRuleShortName(t *testing.T) {
	r := Rule{prefix: "refs/heads/"}
	require.Equal(t, "mainline", r.ShortName("refs/heads/mainline"))
	require.Equal(t, "", r.ShortName("refs/tags/mainline"))
}
