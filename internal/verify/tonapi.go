package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xssnick/tonutils-go/address"
)

// amountTolerance absorbs fee rounding between the quoted price and the
// on-chain value.
const amountTolerance = 0.01

// TonAPIVerifier implements types.OnChainVerifier against the TonAPI HTTP
// API. It fails closed: any lookup ambiguity is a non-confirmation.
type TonAPIVerifier struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewTonAPIVerifier(baseURL, apiToken string) *TonAPIVerifier {
	if baseURL == "" {
		baseURL = "https://tonapi.io"
	}
	return &TonAPIVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      apiToken,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

func (v *TonAPIVerifier) Confirm(ctx context.Context, txHash string, expectedAmount float64, expectedDestination string) (bool, error) {
	var out struct {
		Success bool `json:"success"`
		InMsg   struct {
			Value       int64 `json:"value"`
			Destination struct {
				Address string `json:"address"`
			} `json:"destination"`
		} `json:"in_msg"`
	}

	url := v.baseURL + "/v2/blockchain/transactions/" + txHash
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("Accept", "application/json")
	if v.token != "" {
		req.Header.Set("Authorization", "Bearer "+v.token)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Unknown hash is a verification failure, not a transport error.
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("tonapi http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	if !out.Success {
		return false, nil
	}

	if !SameAddress(out.InMsg.Destination.Address, expectedDestination) {
		log.Debug().Str("hash", txHash).Str("got", out.InMsg.Destination.Address).Msg("destination mismatch")
		return false, nil
	}

	got := float64(out.InMsg.Value) / 1e9
	if math.Abs(got-expectedAmount) > amountTolerance {
		log.Debug().Str("hash", txHash).Float64("got", got).Float64("want", expectedAmount).Msg("amount mismatch")
		return false, nil
	}
	return true, nil
}

// SameAddress compares two TON addresses in any representation (friendly
// base64 or raw workchain:hex) by their workchain and account ID.
func SameAddress(a, b string) bool {
	pa, err := parseAddress(a)
	if err != nil {
		return false
	}
	pb, err := parseAddress(b)
	if err != nil {
		return false
	}
	return addressKey(pa) == addressKey(pb)
}

func parseAddress(s string) (*address.Address, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return address.ParseRawAddr(s)
	}
	return address.ParseAddr(s)
}

func addressKey(a *address.Address) string {
	return fmt.Sprintf("%d:%x", a.Workchain(), a.Data())
}
