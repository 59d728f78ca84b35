package signature

import (
	"strings"
	"testing"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	cases := []struct{ secret, message string }{
		{"whsec_abc", "1700000000.n1.payload"},
		{"s", "m"},
		{"longer-secret-with-unicode-ção", `{"event":"payment.paid"}`},
	}
	for _, tc := range cases {
		sig, err := Sign(tc.secret, tc.message)
		if err != nil {
			t.Fatalf("Sign(%q, %q) failed: %v", tc.secret, tc.message, err)
		}
		if !Verify(tc.secret, tc.message, sig) {
			t.Errorf("Verify failed for round-tripped signature of %q", tc.message)
		}
	}
}

func TestSign_Deterministic(t *testing.T) {
	a, _ := Sign("secret", "message")
	b, _ := Sign("secret", "message")
	if a != b {
		t.Errorf("Sign is not deterministic: %s != %s", a, b)
	}
}

func TestSign_Sensitivity(t *testing.T) {
	base, _ := Sign("secret", "message")

	changedMsg, _ := Sign("secret", "messagf")
	if base == changedMsg {
		t.Error("Single-byte message change produced identical signature")
	}

	changedSecret, _ := Sign("secres", "message")
	if base == changedSecret {
		t.Error("Single-byte secret change produced identical signature")
	}
}

func TestVerify_CrossVerificationFails(t *testing.T) {
	sig, _ := Sign("secret-a", "message")
	if Verify("secret-b", "message", sig) {
		t.Error("Signature verified under wrong secret")
	}
	if Verify("secret-a", "other-message", sig) {
		t.Error("Signature verified for wrong message")
	}
}

func TestSign_EmptyInputs(t *testing.T) {
	if _, err := Sign("", "message"); err != ErrEmptySecret {
		t.Errorf("Expected ErrEmptySecret, got %v", err)
	}
	if _, err := Sign("secret", ""); err != ErrEmptyMessage {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
}

func TestVerify_EmptyAndMalformed(t *testing.T) {
	sig, _ := Sign("secret", "message")
	if Verify("", "message", sig) {
		t.Error("Verified with empty secret")
	}
	if Verify("secret", "", sig) {
		t.Error("Verified with empty message")
	}
	if Verify("secret", "message", "") {
		t.Error("Verified with empty signature")
	}
	if Verify("secret", "message", "not-base64!!!") {
		t.Error("Verified with malformed signature")
	}
}

func TestCanonicalRequest_Format(t *testing.T) {
	msg := CanonicalRequest(1700000000, "nonce1", "POST", "/v1/payments", []byte(`{"a":1}`))

	parts := strings.Split(msg, ".")
	if len(parts) != 5 {
		t.Fatalf("Expected 5 dot-joined parts, got %d: %s", len(parts), msg)
	}
	if parts[0] != "1700000000" || parts[1] != "nonce1" || parts[2] != "POST" || parts[3] != "/v1/payments" {
		t.Errorf("Unexpected canonical prefix: %s", msg)
	}
	if len(parts[4]) != 64 || parts[4] != strings.ToLower(parts[4]) {
		t.Errorf("Body hash is not lowercase hex sha256: %s", parts[4])
	}
}

func TestCanonicalRequest_EmptyBody(t *testing.T) {
	// Absent body hashes as sha256 of the empty string.
	const emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	msg := CanonicalRequest(1, "n", "GET", "/v1/payments", nil)
	if !strings.HasSuffix(msg, emptySHA) {
		t.Errorf("Expected empty-body hash suffix, got %s", msg)
	}
}

func TestCanonicalDelivery_Format(t *testing.T) {
	msg := CanonicalDelivery(1700000000, "abc", []byte(`{"event":"payment.paid"}`))
	if msg != `1700000000.abc.{"event":"payment.paid"}` {
		t.Errorf("Unexpected canonical delivery message: %s", msg)
	}
}
