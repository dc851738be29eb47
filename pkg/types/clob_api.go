package types

// SignedOrderJSON represents a signed order in the format expected by the
// CLOB API. Fields match the EIP-712 order structure after signing.
type SignedOrderJSON struct {
	Salt          int64  `json:"salt"` // Integer per API spec (not string)
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"` // Raw amount (6 decimals for USDC)
	TakerAmount   string `json:"takerAmount"` // Raw token amount
	Side          string `json:"side"`        // "BUY" or "SELL"
	Expiration    string `json:"expiration"`  // Unix timestamp (0 for no expiry)
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"` // 0=EOA, 1=POLY_PROXY, 2=GNOSIS_SAFE
	Signature     string `json:"signature"`     // Hex-encoded with 0x prefix
}

// OrderSubmissionRequest wraps a signed order with submission metadata.
type OrderSubmissionRequest struct {
	Order     SignedOrderJSON `json:"order"`
	Owner     string          `json:"owner"`     // API key, not the maker address
	OrderType string          `json:"orderType"` // Always GTC for resting quotes
}

// OrderSubmissionResponse represents the response from POST /order.
type OrderSubmissionResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"` // matched, live, delayed, unmatched
}

// OrderQueryResponse represents the response from GET /order.
// Distinct from OrderSubmissionResponse; price/size come back as strings.
type OrderQueryResponse struct {
	OrderID    string  `json:"id"`
	Status     string  `json:"status"`
	TokenID    string  `json:"asset_id"`
	Price      float64 `json:"price,string"`
	Size       float64 `json:"original_size,string"`
	SizeFilled float64 `json:"size_matched,string"`
	Side       string  `json:"side"`
}

// CancelResponse represents the response from DELETE /order.
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}
