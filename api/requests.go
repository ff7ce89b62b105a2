package api

// Request payloads carried as the JSON value of the form-encoded `payload`
// field. Numeric fields arrive as strings and are parsed through
// pricing.ParseDecimal at the boundary.

type registerOrderRequest struct {
	Account       string `json:"account" validate:"required"`
	BaseAsset     string `json:"baseAsset" validate:"required"`
	QuoteAsset    string `json:"quoteAsset" validate:"required"`
	Side          string `json:"side" validate:"required,oneof=bid ask"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity" validate:"required"`
	FromNetwork   string `json:"fromNetwork" validate:"required"`
	ToNetwork     string `json:"toNetwork" validate:"required"`
	ReceiveWallet string `json:"receiveWallet" validate:"required"`
}

type cancelOrderRequest struct {
	OrderID    uint64 `json:"orderId" validate:"required"`
	Side       string `json:"side" validate:"required,oneof=bid ask"`
	BaseAsset  string `json:"baseAsset" validate:"required"`
	QuoteAsset string `json:"quoteAsset" validate:"required"`
}

type orderBookRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type orderLookupRequest struct {
	OrderID uint64 `json:"orderId" validate:"required"`
}

type bestOrderRequest struct {
	BaseAsset  string `json:"baseAsset" validate:"required"`
	QuoteAsset string `json:"quoteAsset" validate:"required"`
	Side       string `json:"side" validate:"required,oneof=bid ask"`
}

type fundsRequest struct {
	Account string `json:"account" validate:"required"`
	Asset   string `json:"asset" validate:"required"`
}

type tradeResponse struct {
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	MakerOrderID uint64 `json:"maker_order_id"`
	TakerOrderID uint64 `json:"taker_order_id"`
}

type settlementInfo struct {
	Status      string `json:"status"`
	SourceChain string `json:"source_chain,omitempty"`
	DestChain   string `json:"dest_chain,omitempty"`
}

type orderResult struct {
	OrderID          uint64          `json:"orderId"`
	Trades           []tradeResponse `json:"trades"`
	RemainingQty     string          `json:"remaining_quantity"`
	SettlementInfo   []settlementInfo `json:"settlement_info,omitempty"`
}

type registerOrderResponse struct {
	StatusCode int         `json:"status_code"`
	Order      orderResult `json:"order"`
}
