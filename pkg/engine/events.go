package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"trailstop/pkg/orders"
)

// EventType discriminates lifecycle and configuration events.
type EventType string

const (
	EventOrderCreated   EventType = "order_created"
	EventOrderUpdated   EventType = "order_updated"
	EventOrderCancelled EventType = "order_cancelled"
	EventOrderExecuted  EventType = "order_executed"
	EventConfigChanged  EventType = "config_changed"
)

// Event is emitted once per successful state transition, carrying a full
// snapshot of the order at that transition. Events are never emitted for
// failed calls.
type Event struct {
	Type       EventType
	Account    common.Address
	OrderIndex uint64
	Order      *orders.TrailingStopOrder // snapshot; nil for config events

	// ExecutionPrice is the oracle price that satisfied the trigger; set only
	// on EventOrderExecuted, together with FeeRecipient.
	ExecutionPrice *big.Int
	FeeRecipient   common.Address

	// Setting/Value describe configuration changes.
	Setting string
	Value   string

	At     time.Time
	Digest common.Hash
}

// EventSink receives successfully committed events. Sinks must not call back
// into the engine; the reentrancy latch is still held when they run.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// eventDigestPayload is the canonical encoding hashed into Event.Digest.
// Amounts are decimal strings so the encoding is stable across integer widths.
type eventDigestPayload struct {
	Type                  string `msgpack:"type"`
	Account               string `msgpack:"account"`
	OrderIndex            uint64 `msgpack:"orderIndex"`
	CollateralToken       string `msgpack:"collateralToken,omitempty"`
	IndexToken            string `msgpack:"indexToken,omitempty"`
	CollateralDelta       string `msgpack:"collateralDelta,omitempty"`
	SizeDelta             string `msgpack:"sizeDelta,omitempty"`
	IsLong                bool   `msgpack:"isLong"`
	TriggerPrice          string `msgpack:"triggerPrice,omitempty"`
	TriggerAboveThreshold bool   `msgpack:"triggerAboveThreshold"`
	ExecutionFee          string `msgpack:"executionFee,omitempty"`
	TrailingBPS           uint64 `msgpack:"trailingBps"`
	ExecutionPrice        string `msgpack:"executionPrice,omitempty"`
	FeeRecipient          string `msgpack:"feeRecipient,omitempty"`
	Setting               string `msgpack:"setting,omitempty"`
	Value                 string `msgpack:"value,omitempty"`
	AtUnixMs              int64  `msgpack:"atUnixMs"`
}

func digestEvent(ev *Event) common.Hash {
	p := eventDigestPayload{
		Type:       string(ev.Type),
		Account:    ev.Account.Hex(),
		OrderIndex: ev.OrderIndex,
		Setting:    ev.Setting,
		Value:      ev.Value,
		AtUnixMs:   ev.At.UnixMilli(),
	}
	if o := ev.Order; o != nil {
		p.CollateralToken = o.CollateralToken.Hex()
		p.IndexToken = o.IndexToken.Hex()
		p.CollateralDelta = bigString(o.CollateralDelta)
		p.SizeDelta = bigString(o.SizeDelta)
		p.IsLong = o.IsLong
		p.TriggerPrice = bigString(o.TriggerPrice)
		p.TriggerAboveThreshold = o.TriggerAboveThreshold
		p.ExecutionFee = bigString(o.ExecutionFee)
		p.TrailingBPS = o.TrailingBPS
	}
	if ev.ExecutionPrice != nil {
		p.ExecutionPrice = ev.ExecutionPrice.String()
		p.FeeRecipient = ev.FeeRecipient.Hex()
	}
	raw, err := msgpack.Marshal(p)
	if err != nil {
		// Marshalling a flat struct of strings cannot fail at runtime; treat
		// it as a programming error and surface an empty digest.
		logx.Errorf("engine: encode event digest: %v", err)
		return common.Hash{}
	}
	return common.BytesToHash(crypto.Keccak256(raw))
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// logSink writes events through logx as structured fields.
type logSink struct{}

// NewLogSink returns a sink that records events via the process logger.
func NewLogSink() EventSink { return logSink{} }

func (logSink) Emit(ctx context.Context, ev Event) {
	fields := []logx.LogField{
		logx.Field("type", string(ev.Type)),
		logx.Field("account", ev.Account.Hex()),
		logx.Field("index", ev.OrderIndex),
		logx.Field("digest", ev.Digest.Hex()),
	}
	if ev.Order != nil {
		fields = append(fields,
			logx.Field("indexToken", ev.Order.IndexToken.Hex()),
			logx.Field("triggerPrice", bigString(ev.Order.TriggerPrice)),
			logx.Field("executionFee", bigString(ev.Order.ExecutionFee)),
		)
	}
	if ev.ExecutionPrice != nil {
		fields = append(fields,
			logx.Field("executionPrice", ev.ExecutionPrice.String()),
			logx.Field("feeRecipient", ev.FeeRecipient.Hex()),
		)
	}
	if ev.Setting != "" {
		fields = append(fields, logx.Field("setting", ev.Setting), logx.Field("value", ev.Value))
	}
	logx.WithContext(ctx).Infow("order event", fields...)
}

// MultiSink fans an event out to every child sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}
