package orders

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailstop/internal/model"
	"trailstop/pkg/engine"
	ordersstore "trailstop/pkg/orders"
)

type fakeOrdersModel struct {
	upserts []model.OrderRecord
	deletes []string
	err     error
}

func (f *fakeOrdersModel) Upsert(ctx context.Context, rec *model.OrderRecord) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, *rec)
	return nil
}

func (f *fakeOrdersModel) Delete(ctx context.Context, account string, orderIndex uint64) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, account)
	return nil
}

func (f *fakeOrdersModel) FindOne(ctx context.Context, account string, orderIndex uint64) (*model.OrderRecord, error) {
	return nil, model.ErrNotFound
}

func (f *fakeOrdersModel) ActiveByAccount(ctx context.Context, account string) ([]model.OrderRecord, error) {
	return nil, nil
}

func sampleOrder() *ordersstore.TrailingStopOrder {
	return &ordersstore.TrailingStopOrder{
		Account:               common.HexToAddress("0xaa"),
		CollateralToken:       common.HexToAddress("0x01"),
		IndexToken:            common.HexToAddress("0x02"),
		CollateralDelta:       big.NewInt(0),
		SizeDelta:             big.NewInt(1000),
		IsLong:                true,
		TriggerPrice:          big.NewInt(50_000),
		TriggerAboveThreshold: false,
		ExecutionFee:          big.NewInt(1e16),
		TrailingBPS:           100,
	}
}

func TestService_MirrorsCreatesAndUpdates(t *testing.T) {
	fake := &fakeOrdersModel{}
	svc := NewService(fake)
	require.NotNil(t, svc)

	order := sampleOrder()
	svc.Emit(context.Background(), engine.Event{
		Type:       engine.EventOrderCreated,
		Account:    order.Account,
		OrderIndex: 3,
		Order:      order,
		At:         time.UnixMilli(1700000000000),
	})

	require.Len(t, fake.upserts, 1)
	rec := fake.upserts[0]
	assert.Equal(t, order.Account.Hex(), rec.Account)
	assert.Equal(t, uint64(3), rec.OrderIndex)
	assert.Equal(t, "50000", rec.TriggerPrice)
	assert.Equal(t, uint64(100), rec.TrailingBps)
	assert.Equal(t, int64(1700000000000), rec.UpdatedAtMs)
}

func TestService_DeletesOnTermination(t *testing.T) {
	fake := &fakeOrdersModel{}
	svc := NewService(fake)

	for _, typ := range []engine.EventType{engine.EventOrderCancelled, engine.EventOrderExecuted} {
		svc.Emit(context.Background(), engine.Event{Type: typ, Account: common.HexToAddress("0xaa"), OrderIndex: 1})
	}
	assert.Len(t, fake.deletes, 2)
	assert.Empty(t, fake.upserts)
}

func TestService_IgnoresConfigEvents(t *testing.T) {
	fake := &fakeOrdersModel{}
	svc := NewService(fake)

	svc.Emit(context.Background(), engine.Event{Type: engine.EventConfigChanged, Setting: "gov"})
	assert.Empty(t, fake.upserts)
	assert.Empty(t, fake.deletes)
}

func TestNewService_NilModel(t *testing.T) {
	assert.Nil(t, NewService(nil))
}
