package gateway

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/url"
	"testing"
)

func testParams() url.Values {
	return url.Values{
		"pid":          {"1001"},
		"trade_no":     {"2026082912345"},
		"out_trade_no": {"txn_01h2xcejqtf2nbrexx3vqjhp41"},
		"type":         {"alipay"},
		"trade_status": {"TRADE_SUCCESS"},
		"name":         {"wallet top-up"},
		"money":        {"650.00"},
	}
}

func TestCanonicalString(t *testing.T) {
	params := testParams()
	params.Set("sign", "ignored")
	params.Set("sign_type", "MD5")
	params.Set("empty", "")

	got := canonicalString(params)
	want := "money=650.00&name=wallet top-up&out_trade_no=txn_01h2xcejqtf2nbrexx3vqjhp41&pid=1001&trade_no=2026082912345&trade_status=TRADE_SUCCESS&type=alipay"
	if got != want {
		t.Errorf("canonicalString =\n%s\nwant\n%s", got, want)
	}
}

func TestMD5RoundTrip(t *testing.T) {
	signer := NewMD5Signer("s3cret")
	params := testParams()

	sign, err := signer.Sign(params)
	if err != nil {
		t.Fatal(err)
	}
	if err := signer.Verify(params, sign); err != nil {
		t.Fatalf("Verify of own signature failed: %v", err)
	}

	// Mutating any signed field must break verification.
	for key := range params {
		mutated := testParams()
		mutated.Set(key, mutated.Get(key)+"x")
		if err := signer.Verify(mutated, sign); !errors.Is(err, ErrSignatureInvalid) {
			t.Errorf("Verify after mutating %q = %v, want ErrSignatureInvalid", key, err)
		}
	}

	// A different secret must not verify.
	other := NewMD5Signer("other")
	if err := other.Verify(params, sign); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify with wrong secret = %v, want ErrSignatureInvalid", err)
	}
}

func TestMD5SignIgnoresSignFields(t *testing.T) {
	signer := NewMD5Signer("s3cret")

	plain := testParams()
	signed := testParams()
	signed.Set("sign", "previous")
	signed.Set("sign_type", "MD5")

	a, _ := signer.Sign(plain)
	b, _ := signer.Sign(signed)
	if a != b {
		t.Errorf("sign/sign_type fields leaked into the canonical string")
	}
}

func TestRSARoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	signer := newRSASignerFromKeys(key, &key.PublicKey)
	params := testParams()

	sign, err := signer.Sign(params)
	if err != nil {
		t.Fatal(err)
	}
	if err := signer.Verify(params, sign); err != nil {
		t.Fatalf("Verify of own signature failed: %v", err)
	}

	mutated := testParams()
	mutated.Set("money", "100650.00")
	if err := signer.Verify(mutated, sign); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify after mutating money = %v, want ErrSignatureInvalid", err)
	}

	if err := signer.Verify(params, "not base64!!"); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify of garbage signature = %v, want ErrSignatureInvalid", err)
	}
}

func TestParseNotification(t *testing.T) {
	params := testParams()
	params.Set("sign", "abc")
	params.Set("sign_type", "MD5")
	params.Set("vendor_ext", "tolerated")

	n, err := ParseNotification(params)
	if err != nil {
		t.Fatal(err)
	}
	if n.OutTradeNo != "txn_01h2xcejqtf2nbrexx3vqjhp41" {
		t.Errorf("OutTradeNo = %q", n.OutTradeNo)
	}
	if !n.Succeeded() {
		t.Error("Succeeded() = false for TRADE_SUCCESS")
	}
	if n.Money.String() != "650" {
		t.Errorf("Money = %s, want 650", n.Money)
	}
}

func TestParseNotificationMissingFields(t *testing.T) {
	if _, err := ParseNotification(url.Values{"sign": {"x"}}); err == nil {
		t.Error("expected error for missing out_trade_no")
	}
	if _, err := ParseNotification(url.Values{"out_trade_no": {"x"}}); err == nil {
		t.Error("expected error for missing sign")
	}
}

func TestNotificationVerify(t *testing.T) {
	signer := NewMD5Signer("s3cret")
	params := testParams()
	sign, _ := signer.Sign(params)
	params.Set("sign", sign)
	params.Set("sign_type", "MD5")

	n, err := ParseNotification(params)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Verify(signer); err != nil {
		t.Fatalf("Verify = %v", err)
	}

	// sign_type mismatch is a signature failure, not a panic.
	params.Set("sign_type", "RSA")
	n, _ = ParseNotification(params)
	if err := n.Verify(signer); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify with mismatched sign_type = %v, want ErrSignatureInvalid", err)
	}
}
