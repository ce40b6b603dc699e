package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepo struct {
	accounts map[uuid.UUID]decimal.Decimal
	entries  []models.WalletTransaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[uuid.UUID]decimal.Decimal)}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	balance, ok := f.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Account{ID: id, WalletBalance: balance}, nil
}

func (f *fakeRepo) DebitBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (bool, error) {
	balance, ok := f.accounts[ownerID]
	if !ok || balance.LessThan(amount) {
		return false, nil
	}
	f.accounts[ownerID] = balance.Sub(amount)
	return true, nil
}

func (f *fakeRepo) CreditBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (bool, error) {
	balance, ok := f.accounts[ownerID]
	if !ok {
		return false, nil
	}
	f.accounts[ownerID] = balance.Add(amount)
	return true, nil
}

func (f *fakeRepo) GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	balance, ok := f.accounts[ownerID]
	if !ok {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (f *fakeRepo) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	entry.ID = uuid.New()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepo) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var out []models.WalletTransaction
	for _, entry := range f.entries {
		if entry.WalletOwnerID == ownerID {
			out = append(out, entry)
		}
	}
	return out, nil
}
