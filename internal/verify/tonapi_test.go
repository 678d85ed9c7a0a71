package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rawWallet      = "0:83dfd552e63929b1c8953bc12bba975bca83431066b179a2f1f004b95d1e991f"
	rawOtherWallet = "0:00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
)

func tonapiStub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v2/blockchain/transactions/")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func txBody(dest string, valueNano int64) string {
	return fmt.Sprintf(`{"success":true,"in_msg":{"value":%d,"destination":{"address":"%s"}}}`, valueNano, dest)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{name: "match", status: 200, body: txBody(rawWallet, 1_500_000_000), want: true},
		{name: "amount within tolerance", status: 200, body: txBody(rawWallet, 1_495_000_000), want: true},
		{name: "amount too low", status: 200, body: txBody(rawWallet, 1_200_000_000), want: false},
		{name: "wrong destination", status: 200, body: txBody(rawOtherWallet, 1_500_000_000), want: false},
		{name: "tx not successful", status: 200, body: `{"success":false}`, want: false},
		{name: "unknown hash", status: 404, body: `{"error":"not found"}`, want: false},
		{name: "server error", status: 503, body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tonapiStub(t, tt.status, tt.body)
			defer srv.Close()

			v := NewTonAPIVerifier(srv.URL, "")
			got, err := v.Confirm(context.Background(), testHash, 1.5, rawWallet)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameAddress(t *testing.T) {
	assert.True(t, SameAddress(rawWallet, rawWallet))
	assert.False(t, SameAddress(rawWallet, rawOtherWallet))
	assert.False(t, SameAddress("garbage", rawWallet))
	assert.False(t, SameAddress(rawWallet, ""))
}
