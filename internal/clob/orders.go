package clob

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// OrderClient signs and submits limit orders to the Polymarket CLOB.
type OrderClient struct {
	baseURL       string
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string // EOA address (signer)
	proxyAddress  string // proxy address (maker/funder), optional
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	httpClient    *http.Client
	logger        *zap.Logger
}

// OrderClientConfig holds configuration for the order client.
type OrderClientConfig struct {
	BaseURL       string
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger
}

// NewOrderClient creates an authenticated order client. The private key is
// held in memory only and is never written anywhere.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, _ := privateKey.Public().(*ecdsa.PublicKey)
	address := crypto.PubkeyToAddress(*publicKey).Hex()

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	return &OrderClient{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        cfg.Logger,
	}, nil
}

// Address returns the EOA address derived from the signing key.
func (c *OrderClient) Address() string {
	return c.address
}

// PlaceOrder signs and submits a GTC limit order for one outcome token.
// Side is "BUY" or "SELL"; price is in USDC per token, size in tokens.
func (c *OrderClient) PlaceOrder(ctx context.Context, tokenID, side string, price, size float64) (*types.OrderSubmissionResponse, error) {
	makerAddress := c.address
	if c.proxyAddress != "" {
		makerAddress = c.proxyAddress
	}

	// Amounts are expressed in raw units: for a BUY the maker gives USDC
	// and receives tokens, for a SELL the maker gives tokens and receives
	// USDC. Both USDC and outcome tokens use 6 decimals.
	var orderSide model.Side
	var makerAmount, takerAmount string
	switch side {
	case "BUY":
		orderSide = model.BUY
		makerAmount = toRawAmount(price * size)
		takerAmount = toRawAmount(size)
	case "SELL":
		orderSide = model.SELL
		makerAmount = toRawAmount(size)
		takerAmount = toRawAmount(price * size)
	default:
		return nil, fmt.Errorf("invalid side %q", side)
	}

	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          orderSide,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	resp, err := c.submitOrder(ctx, signedOrder)
	if err != nil {
		OrderErrorsTotal.WithLabelValues("place").Inc()
		return nil, err
	}

	OrdersPlacedTotal.WithLabelValues(side).Inc()

	c.logger.Info("order-placed",
		zap.String("order_id", resp.OrderID),
		zap.String("token_id", tokenID),
		zap.String("side", side),
		zap.Float64("price", price),
		zap.Float64("size", size))

	return resp, nil
}

// CancelOrder cancels a single resting order by id. The response reports
// which ids the exchange actually cancelled.
func (c *OrderClient) CancelOrder(ctx context.Context, orderID string) (*types.CancelResponse, error) {
	reqBody, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return nil, fmt.Errorf("marshal cancel request: %w", err)
	}

	body, err := c.signedRequest(ctx, http.MethodDelete, "/order", reqBody)
	if err != nil {
		OrderErrorsTotal.WithLabelValues("cancel").Inc()
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	var cancelResp types.CancelResponse
	if err := json.Unmarshal(body, &cancelResp); err != nil {
		return nil, fmt.Errorf("parse cancel response: %w", err)
	}

	OrdersCancelledTotal.Add(float64(len(cancelResp.Canceled)))

	return &cancelResp, nil
}

// QueryOrder fetches the current state of a resting order.
func (c *OrderClient) QueryOrder(ctx context.Context, orderID string) (*types.OrderQueryResponse, error) {
	requestPath := "/order/" + url.PathEscape(orderID)

	body, err := c.signedRequest(ctx, http.MethodGet, requestPath, nil)
	if err != nil {
		return nil, fmt.Errorf("query order %s: %w", orderID, err)
	}

	var queryResp types.OrderQueryResponse
	if err := json.Unmarshal(body, &queryResp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}

	return &queryResp, nil
}

func (c *OrderClient) submitOrder(ctx context.Context, order *model.SignedOrder) (*types.OrderSubmissionResponse, error) {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}

	// "owner" is the API key, not the maker address.
	orderRequest := types.OrderSubmissionRequest{
		Order:     jsonOrder,
		Owner:     c.apiKey,
		OrderType: "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.signedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	var orderResp types.OrderSubmissionResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if !orderResp.Success {
		return nil, fmt.Errorf("order rejected: %s", orderResp.ErrorMsg)
	}

	return &orderResp, nil
}

// signedRequest performs an L2-authenticated request. The HMAC covers
// timestamp + method + path + body, keyed by the URL-safe base64 secret.
func (c *OrderClient) signedRequest(ctx context.Context, method, requestPath string, reqBody []byte) ([]byte, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	signaturePayload := timestamp + method + requestPath + string(reqBody)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func toRawAmount(v float64) string {
	rawAmount := int64(v * 1000000)
	return fmt.Sprintf("%d", rawAmount)
}
