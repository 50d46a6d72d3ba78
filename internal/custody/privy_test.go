package custody

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
)

type fakeBroadcaster struct {
	signature string
	err       error
	sent      []string
}

func (f *fakeBroadcaster) SendTransaction(_ context.Context, signedTx string) (string, error) {
	f.sent = append(f.sent, signedTx)
	if f.err != nil {
		return "", f.err
	}
	return f.signature, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func signRequest() SignRequest {
	return SignRequest{
		AgentID:      "agent-1",
		WalletRef:    "wallet-ref-1",
		SerializedTx: "dW5zaWduZWQ=",
	}
}

func TestPrivySignAndSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/wallets/wallet-ref-1/rpc", r.URL.Path)
		assert.Equal(t, "app-1", r.Header.Get("privy-app-id"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "app-1", user)
		assert.Equal(t, "secret-1", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "signTransaction", body["method"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"signed_transaction": "c2lnbmVk"},
		})
	}))
	defer server.Close()

	broadcaster := &fakeBroadcaster{signature: "5Signature"}
	provider := NewPrivyProvider(testLogger(), broadcaster, PrivyOptions{
		BaseURL:   server.URL,
		AppID:     "app-1",
		AppSecret: "secret-1",
	})

	result, err := provider.SignAndSend(context.Background(), signRequest())
	require.NoError(t, err)
	assert.Equal(t, "5Signature", result.TxSignature)
	assert.Equal(t, "privy", result.Provider)
	assert.Equal(t, []string{"c2lnbmVk"}, broadcaster.sent)
}

func TestPrivyRejectsIncompleteRequests(t *testing.T) {
	provider := NewPrivyProvider(testLogger(), &fakeBroadcaster{}, PrivyOptions{})

	cases := []SignRequest{
		{WalletRef: "w", SerializedTx: "t"},
		{AgentID: "a", SerializedTx: "t"},
		{AgentID: "a", WalletRef: "w"},
	}
	for _, req := range cases {
		_, err := provider.SignAndSend(context.Background(), req)
		require.Error(t, err)
		code, ok := reason.FromError(err)
		require.True(t, ok)
		assert.Equal(t, reason.SigningFailed, code)
	}
}

func TestPrivySignFailureClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewPrivyProvider(testLogger(), &fakeBroadcaster{}, PrivyOptions{BaseURL: server.URL})

	_, err := provider.SignAndSend(context.Background(), signRequest())
	require.Error(t, err)
	code, ok := reason.FromError(err)
	require.True(t, ok)
	assert.Equal(t, reason.SigningFailed, code)
	assert.Contains(t, err.Error(), "Provider signing or broadcast failed.")
}

func TestPrivyBroadcastFailureClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"signed_transaction": "c2lnbmVk"},
		})
	}))
	defer server.Close()

	broadcaster := &fakeBroadcaster{err: errors.New("Transfer: insufficient lamports 10, need 20")}
	provider := NewPrivyProvider(testLogger(), broadcaster, PrivyOptions{BaseURL: server.URL})

	_, err := provider.SignAndSend(context.Background(), signRequest())
	require.Error(t, err)
	code, ok := reason.FromError(err)
	require.True(t, ok)
	assert.Equal(t, reason.InsufficientFunds, code)
}

func TestForName(t *testing.T) {
	privy := NewPrivyProvider(testLogger(), &fakeBroadcaster{}, PrivyOptions{})

	provider, err := ForName("privy", privy)
	require.NoError(t, err)
	assert.Equal(t, "privy", provider.Name())

	provider, err = ForName("", privy)
	require.NoError(t, err)
	assert.Equal(t, "privy", provider.Name())

	_, err = ForName("ledger", privy)
	assert.Error(t, err)
}
