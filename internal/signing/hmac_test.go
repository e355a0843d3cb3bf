package signing

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"destination":"U123","events":[]}`)
	sig := Sign(secret, body)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{name: "valid signature", body: body, signature: sig, secret: secret, want: true},
		{name: "tampered body", body: []byte(`{"destination":"U999","events":[]}`), signature: sig, secret: secret},
		{name: "wrong secret", body: body, signature: sig, secret: "other-secret"},
		{name: "empty signature", body: body, signature: "", secret: secret},
		{name: "empty secret", body: body, signature: sig, secret: ""},
		{name: "not base64", body: body, signature: "%%%not-base64%%%", secret: secret},
		{name: "truncated signature", body: body, signature: base64.StdEncoding.EncodeToString([]byte("short")), secret: secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.secret, tt.body, tt.signature))
		})
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	secrets := []string{"a", "channel-secret", "日本語の秘密"}
	for i := 0; i < 20; i++ {
		body := []byte(fmt.Sprintf(`{"events":[{"n":%d}]}`, i))
		for _, s := range secrets {
			assert.True(t, Verify(s, body, Sign(s, body)), "secret %q body %d", s, i)
			for _, other := range secrets {
				if other == s {
					continue
				}
				assert.False(t, Verify(s, body, Sign(other, body)), "signed with %q verified with %q", other, s)
			}
		}
	}
}

func TestSign_Deterministic(t *testing.T) {
	got := Sign("test-secret", []byte("test payload"))

	decoded, err := base64.StdEncoding.DecodeString(got)
	assert.NoError(t, err)
	assert.Len(t, decoded, 32)
	assert.Equal(t, got, Sign("test-secret", []byte("test payload")))
}
