package models

// LNURL response documents. Field names follow the LNURL withdraw/pay specs
// and must not change, wallets match on them.

const (
	LnurlTagWithdraw = "withdrawRequest"
	LnurlTagPay      = "payRequest"
)

// LnurlWithdrawResponse is the first-phase withdraw challenge.
type LnurlWithdrawResponse struct {
	Tag                string `json:"tag"`
	Callback           string `json:"callback"`
	K1                 string `json:"k1"`
	MinWithdrawable    int64  `json:"minWithdrawable"`
	MaxWithdrawable    int64  `json:"maxWithdrawable"`
	DefaultDescription string `json:"defaultDescription"`
}

// LnurlPayResponse is the first-phase document of an LNURL-pay endpoint,
// consumed when resolving lightning addresses as payout destinations.
type LnurlPayResponse struct {
	Tag         string `json:"tag"`
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Metadata    string `json:"metadata"`
}

// LnurlPayActionResponse is the second-phase document carrying the invoice.
type LnurlPayActionResponse struct {
	Pr     string   `json:"pr"`
	Routes []string `json:"routes"`
}

// LnurlErrorResponse is the standard LNURL error shape. LNURL errors are
// returned with HTTP 200, wallets only look at the status field.
type LnurlErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// LnurlSuccessResponse acknowledges a completed callback.
type LnurlSuccessResponse struct {
	Status string `json:"status"`
}

func LnurlError(reason string) LnurlErrorResponse {
	return LnurlErrorResponse{Status: "ERROR", Reason: reason}
}

func LnurlOK() LnurlSuccessResponse {
	return LnurlSuccessResponse{Status: "OK"}
}
