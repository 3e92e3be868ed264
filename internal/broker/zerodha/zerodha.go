package zerodha

import (
	"context"
	"errors"
	"fmt"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/types"
)

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
	Product     string

	// Tradingsymbol is the Kite symbol orders are placed for.
	Tradingsymbol string
	// InstrumentToken selects the streamed instrument. Zero resolves it from
	// the exchange's instrument list on Start.
	InstrumentToken uint32
}

// orderAPI is the slice of the Kite REST client the broker uses.
type orderAPI interface {
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
}

type Zerodha struct {
	p         Params
	kc        orderAPI
	tickerMgr interfaces.TickerManager
	mapper    *instrumentMapper
}

var _ interfaces.Broker = (*Zerodha)(nil)

func NewZerodha(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	if p.Exchange == "" {
		p.Exchange = kiteconnect.ExchangeNSE
	}
	if p.Product == "" {
		p.Product = kiteconnect.ProductMIS
	}

	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)

	mapper := newInstrumentMapper()
	return &Zerodha{
		p:         p,
		kc:        kc,
		mapper:    mapper,
		tickerMgr: newTickerManager(p.APIKey, p.AccessToken, mapper),
	}, nil
}

func (z *Zerodha) Name() string { return "ZERODHA" }

// PlaceOrder sends req as a regular day order. The client order id travels
// in the Kite tag field and comes back on order updates.
func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	params := kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   z.tradingsymbol(req.Symbol),
		Validity:        kiteconnect.ValidityDay,
		Product:         z.p.Product,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: transactionType(req.Side),
		Quantity:        req.Qty,
		Tag:             req.Tag,
	}
	if req.Type == types.OrderLimit {
		params.OrderType = kiteconnect.OrderTypeLimit
		params.Price = req.Price
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("kite place order: %w", err)
	}
	logger.Debug(ctx, "Kite order accepted", "order_id", resp.OrderID, "tag", req.Tag)
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

// Start resolves the instrument, connects the ticker and subscribes it.
func (z *Zerodha) Start(ctx context.Context, sink interfaces.EventSink) error {
	token := z.p.InstrumentToken
	if token == 0 {
		t, err := z.lookupToken(z.p.Tradingsymbol)
		if err != nil {
			return err
		}
		token = t
	}
	z.mapper.addMapping(z.p.Tradingsymbol, token)

	if err := z.tickerMgr.Start(ctx, sink); err != nil {
		return fmt.Errorf("failed to start ticker manager: %w", err)
	}
	if err := z.tickerMgr.Subscribe(ctx, []uint32{token}); err != nil {
		return fmt.Errorf("failed to subscribe instrument %d: %w", token, err)
	}
	return nil
}

func (z *Zerodha) Stop(ctx context.Context) {
	z.tickerMgr.Stop(ctx)
}

func (z *Zerodha) lookupToken(symbol string) (uint32, error) {
	instruments, err := z.kc.GetInstrumentsByExchange(z.p.Exchange)
	if err != nil {
		return 0, fmt.Errorf("fetch %s instruments: %w", z.p.Exchange, err)
	}
	for _, in := range instruments {
		if strings.EqualFold(in.Tradingsymbol, symbol) {
			return uint32(in.InstrumentToken), nil
		}
	}
	return 0, fmt.Errorf("instrument %s not found on %s", symbol, z.p.Exchange)
}

func (z *Zerodha) tradingsymbol(symbol string) string {
	if z.p.Tradingsymbol != "" {
		return z.p.Tradingsymbol
	}
	return symbol
}

func transactionType(s types.Side) string {
	if s == types.SideSell {
		return kiteconnect.TransactionTypeSell
	}
	return kiteconnect.TransactionTypeBuy
}
