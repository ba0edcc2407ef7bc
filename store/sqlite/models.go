package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/apikey"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/member"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/types"
	"github.com/kadxy/wallet/usage"
)

// Monetary columns are TEXT in the SQLite schema and travel as strings
// in the models. Arithmetic on them happens in Go via decimal, never in SQL.

type walletModel struct {
	grove.BaseModel `grove:"table:wallet_accounts"`

	ID        string    `grove:"id,pk"`
	UID       string    `grove:"uid"`
	OwnerID   string    `grove:"owner_id"`
	Balance   string    `grove:"balance"`
	Version   int64     `grove:"version"`
	Status    string    `grove:"status"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toWalletModel(w *account.Wallet) *walletModel {
	return &walletModel{
		ID:        w.ID.String(),
		UID:       w.UID,
		OwnerID:   w.OwnerID,
		Balance:   w.Balance.String(),
		Version:   w.Version,
		Status:    string(w.Status),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func fromWalletModel(m *walletModel) (*account.Wallet, error) {
	walletID, err := id.ParseWalletID(m.ID)
	if err != nil {
		return nil, err
	}
	balance, err := types.ParseAmount(m.Balance)
	if err != nil {
		return nil, err
	}
	return &account.Wallet{
		Entity:  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:      walletID,
		UID:     m.UID,
		OwnerID: m.OwnerID,
		Balance: balance,
		Version: m.Version,
		Status:  account.Status(m.Status),
	}, nil
}

type memberModel struct {
	grove.BaseModel `grove:"table:wallet_members"`

	ID              string     `grove:"id,pk"`
	WalletID        string     `grove:"wallet_id"`
	UserID          string     `grove:"user_id"`
	CreditLimit     string     `grove:"credit_limit"`
	CreditAvailable string     `grove:"credit_available"`
	CreditUsed      string     `grove:"credit_used"`
	Version         int64      `grove:"version"`
	IsActive        bool       `grove:"is_active"`
	JoinedAt        time.Time  `grove:"joined_at"`
	LeftAt          *time.Time `grove:"left_at"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toMemberModel(m *member.Member) *memberModel {
	return &memberModel{
		ID:              m.ID.String(),
		WalletID:        m.WalletID.String(),
		UserID:          m.UserID,
		CreditLimit:     m.CreditLimit.String(),
		CreditAvailable: m.CreditAvailable.String(),
		CreditUsed:      m.CreditUsed.String(),
		Version:         m.Version,
		IsActive:        m.IsActive,
		JoinedAt:        m.JoinedAt,
		LeftAt:          m.LeftAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func fromMemberModel(mo *memberModel) (*member.Member, error) {
	memberID, err := id.ParseMemberID(mo.ID)
	if err != nil {
		return nil, err
	}
	walletID, err := id.ParseWalletID(mo.WalletID)
	if err != nil {
		return nil, err
	}
	limit, err := types.ParseAmount(mo.CreditLimit)
	if err != nil {
		return nil, err
	}
	available, err := types.ParseAmount(mo.CreditAvailable)
	if err != nil {
		return nil, err
	}
	used, err := types.ParseAmount(mo.CreditUsed)
	if err != nil {
		return nil, err
	}
	return &member.Member{
		Entity:          types.Entity{CreatedAt: mo.CreatedAt, UpdatedAt: mo.UpdatedAt},
		ID:              memberID,
		WalletID:        walletID,
		UserID:          mo.UserID,
		CreditLimit:     limit,
		CreditAvailable: available,
		CreditUsed:      used,
		Version:         mo.Version,
		IsActive:        mo.IsActive,
		JoinedAt:        mo.JoinedAt,
		LeftAt:          mo.LeftAt,
	}, nil
}

// transactionModel carries a credited marker on top of the domain fields.
// SQLite cannot flip the transaction and credit the wallet in one statement,
// so the marker records whether the wallet credit landed after the flip.
type transactionModel struct {
	grove.BaseModel `grove:"table:wallet_transactions"`

	ID         string     `grove:"id,pk"`
	BusinessID string     `grove:"business_id"`
	WalletID   string     `grove:"wallet_id"`
	UserID     string     `grove:"user_id"`
	Type       string     `grove:"type"`
	Amount     string     `grove:"amount"`
	Status     string     `grove:"status"`
	Desc       string     `grove:"description"`
	SettledAt  *time.Time `grove:"settled_at"`
	FailReason string     `grove:"fail_reason"`
	Credited   bool       `grove:"credited"`
	CreatedAt  time.Time  `grove:"created_at"`
	UpdatedAt  time.Time  `grove:"updated_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:         t.ID.String(),
		BusinessID: t.BusinessID,
		WalletID:   t.WalletID.String(),
		UserID:     t.UserID,
		Type:       string(t.Type),
		Amount:     t.Amount.String(),
		Status:     string(t.Status),
		Desc:       t.Description,
		SettledAt:  t.SettledAt,
		FailReason: t.FailReason,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	walletID, err := id.ParseWalletID(m.WalletID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &transaction.Transaction{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          txnID,
		BusinessID:  m.BusinessID,
		WalletID:    walletID,
		UserID:      m.UserID,
		Type:        transaction.Type(m.Type),
		Amount:      amount,
		Status:      transaction.Status(m.Status),
		Description: m.Desc,
		SettledAt:   m.SettledAt,
		FailReason:  m.FailReason,
	}, nil
}

type apiKeyModel struct {
	grove.BaseModel `grove:"table:wallet_api_keys"`

	ID         string     `grove:"id,pk"`
	WalletID   string     `grove:"wallet_id"`
	Name       string     `grove:"name"`
	Digest     string     `grove:"digest"`
	IsActive   bool       `grove:"is_active"`
	LastUsedAt *time.Time `grove:"last_used_at"`
	RevokedAt  *time.Time `grove:"revoked_at"`
	CreatedAt  time.Time  `grove:"created_at"`
	UpdatedAt  time.Time  `grove:"updated_at"`
}

func toAPIKeyModel(k *apikey.Key) *apiKeyModel {
	return &apiKeyModel{
		ID:         k.ID.String(),
		WalletID:   k.WalletID.String(),
		Name:       k.Name,
		Digest:     k.Digest,
		IsActive:   k.IsActive,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
		CreatedAt:  k.CreatedAt,
		UpdatedAt:  k.UpdatedAt,
	}
}

func fromAPIKeyModel(m *apiKeyModel) (*apikey.Key, error) {
	keyID, err := id.ParseAPIKeyID(m.ID)
	if err != nil {
		return nil, err
	}
	walletID, err := id.ParseWalletID(m.WalletID)
	if err != nil {
		return nil, err
	}
	return &apikey.Key{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         keyID,
		WalletID:   walletID,
		Name:       m.Name,
		Digest:     m.Digest,
		IsActive:   m.IsActive,
		LastUsedAt: m.LastUsedAt,
		RevokedAt:  m.RevokedAt,
	}, nil
}

type usageRecordModel struct {
	grove.BaseModel `grove:"table:wallet_usage_records"`

	ID         string    `grove:"id,pk"`
	WalletID   string    `grove:"wallet_id"`
	MemberID   string    `grove:"member_id"`
	UserID     string    `grove:"user_id"`
	Resource   string    `grove:"resource"`
	Quantity   string    `grove:"quantity"`
	Rate       string    `grove:"rate"`
	Amount     string    `grove:"amount"`
	OccurredAt time.Time `grove:"occurred_at"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toUsageRecordModel(r *usage.Record) *usageRecordModel {
	m := &usageRecordModel{
		ID:         r.ID.String(),
		WalletID:   r.WalletID.String(),
		UserID:     r.UserID,
		Resource:   r.Resource,
		Quantity:   r.Quantity.String(),
		Rate:       r.Rate.String(),
		Amount:     r.Amount.String(),
		OccurredAt: r.OccurredAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if !r.MemberID.IsNil() {
		m.MemberID = r.MemberID.String()
	}
	return m
}

func fromUsageRecordModel(m *usageRecordModel) (*usage.Record, error) {
	recordID, err := id.ParseUsageRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	walletID, err := id.ParseWalletID(m.WalletID)
	if err != nil {
		return nil, err
	}
	memberID := id.Nil
	if m.MemberID != "" {
		memberID, err = id.ParseMemberID(m.MemberID)
		if err != nil {
			return nil, err
		}
	}
	quantity, err := types.ParseAmount(m.Quantity)
	if err != nil {
		return nil, err
	}
	rate, err := types.ParseAmount(m.Rate)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &usage.Record{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         recordID,
		WalletID:   walletID,
		MemberID:   memberID,
		UserID:     m.UserID,
		Resource:   m.Resource,
		Quantity:   quantity,
		Rate:       rate,
		Amount:     amount,
		OccurredAt: m.OccurredAt,
	}, nil
}
