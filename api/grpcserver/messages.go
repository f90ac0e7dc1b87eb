package grpcserver

import (
	"fmt"
	"math/big"

	"fenrir/domain/order"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// -------------------- Wire messages --------------------

// OrderMsg is the JSON wire form of a signed order. Addresses, asset data
// and the signature are 0x-hex; amounts are decimal strings so they
// survive uint256 magnitudes.
type OrderMsg struct {
	Exchange              string `json:"exchange"`
	Maker                 string `json:"maker"`
	Taker                 string `json:"taker,omitempty"`
	FeeRecipient          string `json:"fee_recipient,omitempty"`
	MakerAssetData        string `json:"maker_asset_data"`
	TakerAssetData        string `json:"taker_asset_data"`
	MakerAssetAmount      string `json:"maker_asset_amount"`
	TakerAssetAmount      string `json:"taker_asset_amount"`
	MakerFee              string `json:"maker_fee,omitempty"`
	TakerFee              string `json:"taker_fee,omitempty"`
	Salt                  string `json:"salt"`
	ExpirationTimeSeconds uint64 `json:"expiration_time_seconds"`
	Signature             string `json:"signature"`
}

type MatchOrdersRequest struct {
	LeftOrder  *OrderMsg `json:"left_order"`
	RightOrder *OrderMsg `json:"right_order"`
	Taker      string    `json:"taker,omitempty"`
}

type FillMsg struct {
	MakerAssetFilledAmount string `json:"maker_asset_filled_amount"`
	TakerAssetFilledAmount string `json:"taker_asset_filled_amount"`
	MakerFeePaid           string `json:"maker_fee_paid"`
	TakerFeePaid           string `json:"taker_fee_paid"`
}

type OrderInfoMsg struct {
	OrderHash              string `json:"order_hash"`
	Status                 string `json:"status"`
	FilledTakerAssetAmount string `json:"filled_taker_asset_amount"`
}

type MatchOrdersResponse struct {
	Status                     string        `json:"status"`
	Left                       *OrderInfoMsg `json:"left"`
	Right                      *OrderInfoMsg `json:"right"`
	LeftFill                   *FillMsg      `json:"left_fill,omitempty"`
	RightFill                  *FillMsg      `json:"right_fill,omitempty"`
	LeftMakerAssetSpreadAmount string        `json:"left_maker_asset_spread_amount,omitempty"`
}

type CancelOrderRequest struct {
	Order *OrderMsg `json:"order"`
}

type CancelOrderResponse struct {
	Info *OrderInfoMsg `json:"info"`
}

type GetOrderInfoRequest struct {
	Order *OrderMsg `json:"order"`
}

type GetOrderInfoResponse struct {
	Info *OrderInfoMsg `json:"info"`
}

// -------------------- Converters --------------------

func toSignedOrder(m *OrderMsg) (*order.SignedOrder, error) {
	if m == nil {
		return nil, fmt.Errorf("order is required")
	}

	makerAsset, err := hexutil.Decode(m.MakerAssetData)
	if err != nil {
		return nil, fmt.Errorf("maker_asset_data: %w", err)
	}
	takerAsset, err := hexutil.Decode(m.TakerAssetData)
	if err != nil {
		return nil, fmt.Errorf("taker_asset_data: %w", err)
	}
	sig, err := hexutil.Decode(m.Signature)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}

	makerAmount, err := toAmount("maker_asset_amount", m.MakerAssetAmount)
	if err != nil {
		return nil, err
	}
	takerAmount, err := toAmount("taker_asset_amount", m.TakerAssetAmount)
	if err != nil {
		return nil, err
	}
	makerFee, err := toOptionalAmount("maker_fee", m.MakerFee)
	if err != nil {
		return nil, err
	}
	takerFee, err := toOptionalAmount("taker_fee", m.TakerFee)
	if err != nil {
		return nil, err
	}
	salt, err := toAmount("salt", m.Salt)
	if err != nil {
		return nil, err
	}

	maker, err := toAddress("maker", m.Maker)
	if err != nil {
		return nil, err
	}
	exchange, err := toAddress("exchange", m.Exchange)
	if err != nil {
		return nil, err
	}
	taker, err := toOptionalAddress("taker", m.Taker)
	if err != nil {
		return nil, err
	}
	feeRecipient, err := toOptionalAddress("fee_recipient", m.FeeRecipient)
	if err != nil {
		return nil, err
	}

	return &order.SignedOrder{
		Order: order.Order{
			Exchange:              exchange,
			Maker:                 maker,
			Taker:                 taker,
			FeeRecipient:          feeRecipient,
			MakerAssetData:        makerAsset,
			TakerAssetData:        takerAsset,
			MakerAssetAmount:      makerAmount,
			TakerAssetAmount:      takerAmount,
			MakerFee:              makerFee,
			TakerFee:              takerFee,
			Salt:                  salt,
			ExpirationTimeSeconds: m.ExpirationTimeSeconds,
		},
		Signature: sig,
	}, nil
}

func toAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s: %q is not a non-negative decimal", field, s)
	}
	return v, nil
}

func toOptionalAmount(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return toAmount(field, s)
}

func toAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", field, s)
	}
	return common.HexToAddress(s), nil
}

func toOptionalAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	return toAddress(field, s)
}
