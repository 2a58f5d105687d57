package engine

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
gov: "0x000000000000000000000000000000000000901f"
executor: "0x000000000000000000000000000000000000e9e9"
engine_address: "0x00000000000000000000000000000000000000e1"
wrapped_native: "0x0000000000000000000000000000000000001ef1"
vault: "0x000000000000000000000000000000000000f0f0"
min_execution_fee: "5000000000000000"
min_purchase_token_amount_usd: "10000000000000000000000000000000"
`

func TestLoadConfigFromReader(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000901f"), cfg.GovAddress())
	assert.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000e9e9"), cfg.ExecutorAddress())
	assert.Equal(t, "5000000000000000", cfg.MinExecutionFee().String())
	assert.Equal(t, "10000000000000000000000000000000", cfg.MinPurchaseTokenAmountUsd().String())
	assert.Empty(t, cfg.FeedURL, "feed is optional")
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TRAILSTOP_EXECUTOR", "0x000000000000000000000000000000000000beef")
	yaml := strings.Replace(validConfigYAML,
		`executor: "0x000000000000000000000000000000000000e9e9"`,
		`executor: "${TRAILSTOP_EXECUTOR}"`, 1)

	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000beef"), cfg.ExecutorAddress())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mangle  func(string) string
		wantErr string
	}{
		{
			"bad address",
			func(s string) string { return strings.Replace(s, "0x000000000000000000000000000000000000901f", "not-an-address", 1) },
			"hex address",
		},
		{
			"zero fee",
			func(s string) string { return strings.Replace(s, `"5000000000000000"`, `"0"`, 1) },
			"min_execution_fee",
		},
		{
			"garbage fee",
			func(s string) string { return strings.Replace(s, `"5000000000000000"`, `"1.5e18"`, 1) },
			"min_execution_fee",
		},
		{
			"negative min purchase",
			func(s string) string {
				return strings.Replace(s, `"10000000000000000000000000000000"`, `"-1"`, 1)
			},
			"min_purchase_token_amount_usd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(tt.mangle(validConfigYAML)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MinPurchaseDefaultsToZero(t *testing.T) {
	yaml := strings.Replace(validConfigYAML, `min_purchase_token_amount_usd: "10000000000000000000000000000000"`, "", 1)
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.MinPurchaseTokenAmountUsd().Int64())
}
