package gateway

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/types"
)

// TradeSuccess is the trade_status value that marks a paid order.
const TradeSuccess = "TRADE_SUCCESS"

// Notification is a parsed inbound settlement callback. The gateway may
// append extension fields at any time; everything it sent is retained in
// Raw so signature verification covers fields this struct does not model.
type Notification struct {
	PID         string
	TradeNo     string
	OutTradeNo  string
	APITradeNo  string
	PayType     string
	TradeStatus string
	AddTime     string
	Name        string
	Money       decimal.Decimal
	Sign        string
	SignType    SignType

	Raw url.Values
}

// ParseNotification reads a callback's query parameters. Unknown fields are
// tolerated; missing required fields are not.
func ParseNotification(params url.Values) (*Notification, error) {
	n := &Notification{
		PID:         params.Get("pid"),
		TradeNo:     params.Get("trade_no"),
		OutTradeNo:  params.Get("out_trade_no"),
		APITradeNo:  params.Get("api_trade_no"),
		PayType:     params.Get("type"),
		TradeStatus: params.Get("trade_status"),
		AddTime:     params.Get("addtime"),
		Name:        params.Get("name"),
		Sign:        params.Get("sign"),
		SignType:    SignType(params.Get("sign_type")),
		Raw:         params,
	}
	if n.OutTradeNo == "" {
		return nil, fmt.Errorf("gateway: notification missing out_trade_no")
	}
	if n.Sign == "" {
		return nil, fmt.Errorf("gateway: notification missing sign")
	}
	if money := params.Get("money"); money != "" {
		d, err := types.ParseAmount(money)
		if err != nil {
			return nil, fmt.Errorf("gateway: notification money: %w", err)
		}
		n.Money = d
	}
	return n, nil
}

// Succeeded reports whether the gateway marked the trade paid.
func (n *Notification) Succeeded() bool {
	return n.TradeStatus == TradeSuccess
}

// Verify checks the notification's signature over the raw parameter set.
// Returns ErrSignatureInvalid on mismatch.
func (n *Notification) Verify(signer Signer) error {
	if signer.Type() != n.SignType {
		return fmt.Errorf("%w: sign_type %q, expected %q",
			ErrSignatureInvalid, n.SignType, signer.Type())
	}
	return signer.Verify(n.Raw, n.Sign)
}
