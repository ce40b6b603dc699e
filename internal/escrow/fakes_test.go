package escrow

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

type fakeRepo struct {
	wallet  *models.SystemWallet
	entries []models.SystemWalletTransaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{}
}

func (f *fakeRepo) seed(balance decimal.Decimal) {
	f.wallet = &models.SystemWallet{
		ID:         uuid.New(),
		WalletType: enums.SystemWalletTypeEscrow,
		Balance:    balance,
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindWallet(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error) {
	if f.wallet == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.wallet, nil
}

func (f *fakeRepo) CreateWallet(ctx context.Context, wallet *models.SystemWallet) error {
	wallet.ID = uuid.New()
	f.wallet = wallet
	return nil
}

func (f *fakeRepo) IncreaseBalance(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	if f.wallet == nil {
		return false, nil
	}
	f.wallet.Balance = f.wallet.Balance.Add(amount)
	return true, nil
}

func (f *fakeRepo) DecreaseBalance(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	if f.wallet == nil || f.wallet.Balance.LessThan(amount) {
		return false, nil
	}
	f.wallet.Balance = f.wallet.Balance.Sub(amount)
	return true, nil
}

func (f *fakeRepo) GetBalance(ctx context.Context, walletType enums.SystemWalletType) (decimal.Decimal, error) {
	if f.wallet == nil {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return f.wallet.Balance, nil
}

func (f *fakeRepo) CreateTransaction(ctx context.Context, entry *models.SystemWalletTransaction) error {
	entry.ID = uuid.New()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepo) ListTransactions(ctx context.Context, walletType enums.SystemWalletType, limit, offset int) ([]models.SystemWalletTransaction, error) {
	return f.entries, nil
}
