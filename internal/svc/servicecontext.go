package svc

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"trailstop/internal/config"
	"trailstop/internal/model"
	ordersmirror "trailstop/internal/persistence/orders"
	"trailstop/pkg/custody"
	custodysim "trailstop/pkg/custody/sim"
	enginepkg "trailstop/pkg/engine"
	ledgersim "trailstop/pkg/ledger/sim"
	"trailstop/pkg/journal"
	"trailstop/pkg/oracle"
	"trailstop/pkg/oracle/feed"
	oraclesim "trailstop/pkg/oracle/sim"
	"trailstop/pkg/orders"
)

// ServiceContext wires the engine and its collaborators for the keeper
// daemon. Without a feed URL the context runs in paper mode: sim bank, sim
// ledger and sim oracle, all in-process.
type ServiceContext struct {
	Config *config.Config
	Engine *enginepkg.Engine
	Store  *orders.Store

	Bank      *custodysim.Bank
	Ledger    *ledgersim.Ledger
	Oracle    oracle.PriceOracle
	SimOracle *oraclesim.Oracle // nil when a feed is configured

	DBConn      sqlx.SqlConn
	OrdersModel model.OrdersModel
	Journal     *journal.Writer
	Metrics     *enginepkg.MetricsSink
	Registry    *prometheus.Registry
}

// NewServiceContext builds and initializes the full engine assembly.
func NewServiceContext(c *config.Config) (*ServiceContext, error) {
	engineCfg := c.Engine.Value
	if engineCfg == nil {
		return nil, errors.New("svc: engine config section is required")
	}

	svc := &ServiceContext{Config: c, Store: orders.NewStore()}

	svc.Bank = custodysim.NewBank(engineCfg.WrappedNativeAddress())
	custodian, err := custody.New(engineCfg.SettlementAddress(), svc.Bank, svc.Bank)
	if err != nil {
		return nil, fmt.Errorf("svc: build custodian: %w", err)
	}

	svc.Ledger = ledgersim.New(svc.Bank, engineCfg.VaultAddress())
	svc.Ledger.ApprovePlugin(engineCfg.SettlementAddress())

	if engineCfg.FeedURL != "" {
		client, err := feed.NewClient(engineCfg.FeedURL)
		if err != nil {
			return nil, fmt.Errorf("svc: build price feed: %w", err)
		}
		svc.Oracle = client
	} else {
		svc.SimOracle = oraclesim.New()
		svc.Oracle = svc.SimOracle
	}

	sinks := enginepkg.MultiSink{enginepkg.NewLogSink()}

	// Each context carries its own registry so repeated construction never
	// collides on metric registration.
	svc.Registry = prometheus.NewRegistry()
	svc.Metrics = enginepkg.NewMetricsSink(svc.Registry)
	sinks = append(sinks, svc.Metrics)

	if dir := c.Keeper.JournalDir; dir != "" {
		svc.Journal = journal.NewWriter(dir)
		sinks = append(sinks, journalSink{w: svc.Journal})
	}

	if c.Postgres.DSN != "" {
		svc.DBConn = sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.OrdersModel = model.NewOrdersModel(svc.DBConn)
		if mirror := ordersmirror.NewService(svc.OrdersModel); mirror != nil {
			sinks = append(sinks, mirror)
		}
	}

	eng, err := enginepkg.New(engineCfg.GovAddress(), svc.Store, sinks)
	if err != nil {
		return nil, fmt.Errorf("svc: build engine: %w", err)
	}
	if err := eng.Initialize(context.Background(), engineCfg.GovAddress(), enginepkg.InitParams{
		Ledger:                    svc.Ledger.ForPlugin(engineCfg.SettlementAddress()),
		Oracle:                    svc.Oracle,
		Custodian:                 custodian,
		Executor:                  engineCfg.ExecutorAddress(),
		MinExecutionFee:           engineCfg.MinExecutionFee(),
		MinPurchaseTokenAmountUsd: engineCfg.MinPurchaseTokenAmountUsd(),
	}); err != nil {
		return nil, fmt.Errorf("svc: initialize engine: %w", err)
	}
	svc.Engine = eng
	return svc, nil
}

// journalSink adapts the file journal to the engine's sink interface.
type journalSink struct {
	w *journal.Writer
}

func (s journalSink) Emit(ctx context.Context, ev enginepkg.Event) {
	rec := &journal.EventRecord{
		Timestamp:  ev.At,
		Type:       string(ev.Type),
		OrderIndex: ev.OrderIndex,
		Digest:     ev.Digest.Hex(),
		Setting:    ev.Setting,
		Value:      ev.Value,
	}
	if ev.Type != enginepkg.EventConfigChanged {
		rec.Account = ev.Account.Hex()
	}
	if o := ev.Order; o != nil {
		rec.CollateralToken = o.CollateralToken.Hex()
		rec.IndexToken = o.IndexToken.Hex()
		rec.CollateralDelta = o.CollateralDelta.String()
		rec.SizeDelta = o.SizeDelta.String()
		rec.IsLong = o.IsLong
		rec.TriggerPrice = o.TriggerPrice.String()
		rec.TriggerAboveThreshold = o.TriggerAboveThreshold
		rec.ExecutionFee = o.ExecutionFee.String()
		rec.TrailingBPS = o.TrailingBPS
	}
	if ev.ExecutionPrice != nil {
		rec.ExecutionPrice = ev.ExecutionPrice.String()
		rec.FeeRecipient = ev.FeeRecipient.Hex()
	}
	if _, err := s.w.WriteEvent(rec); err != nil {
		// Journal failures must not disturb settlement.
		_ = err
	}
}
