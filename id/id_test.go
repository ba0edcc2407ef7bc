package id_test

import (
	"strings"
	"testing"

	"github.com/kadxy/wallet/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"WalletID", id.NewWalletID, "wlt_"},
		{"MemberID", id.NewMemberID, "wmb_"},
		{"TransactionID", id.NewTransactionID, "txn_"},
		{"APIKeyID", id.NewAPIKeyID, "key_"},
		{"UsageRecordID", id.NewUsageRecordID, "urec_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixWallet)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixWallet {
		t.Errorf("expected prefix %q, got %q", id.PrefixWallet, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"WalletID", id.NewWalletID, id.ParseWalletID},
		{"MemberID", id.NewMemberID, id.ParseMemberID},
		{"TransactionID", id.NewTransactionID, id.ParseTransactionID},
		{"APIKeyID", id.NewAPIKeyID, id.ParseAPIKeyID},
		{"UsageRecordID", id.NewUsageRecordID, id.ParseUsageRecordID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseWalletID rejects wmb_", id.NewMemberID().String(), id.ParseWalletID},
		{"ParseMemberID rejects txn_", id.NewTransactionID().String(), id.ParseMemberID},
		{"ParseTransactionID rejects key_", id.NewAPIKeyID().String(), id.ParseTransactionID},
		{"ParseAPIKeyID rejects urec_", id.NewUsageRecordID().String(), id.ParseAPIKeyID},
		{"ParseUsageRecordID rejects wlt_", id.NewWalletID().String(), id.ParseUsageRecordID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewWalletID(),
		id.NewMemberID(),
		id.NewTransactionID(),
		id.NewAPIKeyID(),
		id.NewUsageRecordID(),
	}

	for _, i := range ids {
		t.Run(i.String(), func(t *testing.T) {
			parsed, err := id.ParseAny(i.String())
			if err != nil {
				t.Fatalf("ParseAny(%q) failed: %v", i.String(), err)
			}
			if parsed.String() != i.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), i.String())
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	invalid := []string{"", "not-a-typeid", "wlt_", "_01h2xcejqtf2nbrexx3vqjhp41"}
	for _, s := range invalid {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", s)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil ID String should be empty, got %q", i.String())
	}

	v, err := i.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != nil {
		t.Errorf("nil ID Value should be nil, got %v", v)
	}
}

func TestScan(t *testing.T) {
	original := id.NewWalletID()

	var scanned id.ID
	if err := scanned.Scan(original.String()); err != nil {
		t.Fatalf("Scan(string) failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("Scan(string) mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if fromBytes.String() != original.String() {
		t.Errorf("Scan([]byte) mismatch: %q != %q", fromBytes.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("Scan(nil) should produce nil ID")
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}
