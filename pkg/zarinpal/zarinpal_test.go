package zarinpal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/counsel_backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.ZarinPalConfig{
		MerchantID:  "merchant-1",
		CallbackURL: "https://counsel.example/api/v1/payments/callback",
	}, WithBaseURL(srv.URL))
}

func TestRequestPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/payment/request.json", r.URL.Path)

		var body requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "merchant-1", body.MerchantID)
		assert.Equal(t, int64(500000), body.Amount)
		assert.Equal(t, "IRR", body.Currency)

		_, _ = w.Write([]byte(`{"data":{"code":100,"authority":"A000123"},"errors":[]}`))
	})

	p, err := c.RequestPayment(context.Background(), 500000, "platform fee")
	require.NoError(t, err)
	assert.Equal(t, "A000123", p.Authority)
	assert.Contains(t, p.PayURL, "/StartPay/A000123")
}

func TestVerifyPaymentCodes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
		already bool
	}{
		{name: "verified", payload: `{"data":{"code":100,"ref_id":77}}`},
		{name: "verified before", payload: `{"data":{"code":101,"ref_id":77}}`, already: true},
		{name: "amount mismatch", payload: `{"data":{"code":-50}}`, wantErr: ErrAmountMismatch},
		{name: "failed", payload: `{"data":{"code":-51}}`, wantErr: ErrPaymentFailed},
		{name: "unknown", payload: `{"data":{"code":-99}}`, wantErr: ErrUnexpectedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.payload))
			})

			v, err := c.VerifyPayment(context.Background(), "A1", 500000)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(77), v.RefID)
			assert.Equal(t, tt.already, v.AlreadyVerified)
		})
	}
}
