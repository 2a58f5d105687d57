package svc

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailstop/internal/config"
	"trailstop/pkg/confkit"
	enginepkg "trailstop/pkg/engine"
)

const testEngineYAML = `
gov: "0x000000000000000000000000000000000000901f"
executor: "0x000000000000000000000000000000000000e9e9"
engine_address: "0x00000000000000000000000000000000000000e1"
wrapped_native: "0x0000000000000000000000000000000000001ef1"
vault: "0x000000000000000000000000000000000000f0f0"
min_execution_fee: "5000000000000000"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	engineCfg, err := enginepkg.LoadConfigFromReader(strings.NewReader(testEngineYAML))
	require.NoError(t, err)
	return &config.Config{
		Env:    "test",
		Engine: confkit.Section[enginepkg.Config]{Value: engineCfg},
	}
}

func TestNewServiceContext_PaperMode(t *testing.T) {
	svc, err := NewServiceContext(testConfig(t))
	require.NoError(t, err)

	require.NotNil(t, svc.Engine)
	require.NotNil(t, svc.SimOracle, "no feed URL means the sim oracle drives prices")
	assert.Nil(t, svc.DBConn, "no DSN means no database mirror")
	assert.Nil(t, svc.Journal, "no journal dir means no journal sink")

	engineCfg := svc.Config.Engine.Value
	assert.Equal(t, engineCfg.ExecutorAddress(), svc.Engine.Executor())
	assert.Equal(t, engineCfg.GovAddress(), svc.Engine.Gov())
	assert.Equal(t, "5000000000000000", svc.Engine.MinExecutionFee().String())
}

func TestNewServiceContext_EndToEndOrder(t *testing.T) {
	svc, err := NewServiceContext(testConfig(t))
	require.NoError(t, err)

	engineCfg := svc.Config.Engine.Value
	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	btc := common.HexToAddress("0x0000000000000000000000000000000000000b7c")
	fee := big.NewInt(1e16)

	ctx := context.Background()
	svc.Bank.MintNative(account, big.NewInt(1e18))
	require.NoError(t, svc.Bank.NativeTransfer(ctx, account, engineCfg.SettlementAddress(), fee))

	index, err := svc.Engine.CreateOrder(ctx, account, enginepkg.CreateOrderParams{
		CollateralToken:       engineCfg.WrappedNativeAddress(),
		IndexToken:            btc,
		CollateralDelta:       big.NewInt(0),
		SizeDelta:             new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18)),
		IsLong:                true,
		TriggerPrice:          big.NewInt(60_000),
		TriggerAboveThreshold: false,
		TrailingBPS:           250,
	}, fee)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), index)
	assert.Equal(t, 1, svc.Store.Len())
}

func TestNewServiceContext_RequiresEngineSection(t *testing.T) {
	_, err := NewServiceContext(&config.Config{Env: "test"})
	assert.Error(t, err)
}
