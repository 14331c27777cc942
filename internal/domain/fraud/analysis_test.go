package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideFor(t *testing.T) {
	cases := []struct {
		riskScore int
		want      Decision
	}{
		{0, DecisionApprove},
		{49, DecisionApprove},
		{50, DecisionFlag},
		{79, DecisionFlag},
		{80, DecisionBlock},
		{145, DecisionBlock},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DecideFor(tc.riskScore), "risk score %d", tc.riskScore)
	}
}
