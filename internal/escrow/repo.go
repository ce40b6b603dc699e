package escrow

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// Repository manages the pooled system wallets and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindWallet(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error)
	CreateWallet(ctx context.Context, wallet *models.SystemWallet) error
	IncreaseBalance(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error)
	// DecreaseBalance atomically subtracts amount when the pooled balance
	// covers it. Returns false without error when it does not.
	DecreaseBalance(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error)
	GetBalance(ctx context.Context, walletType enums.SystemWalletType) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, entry *models.SystemWalletTransaction) error
	ListTransactions(ctx context.Context, walletType enums.SystemWalletType, limit, offset int) ([]models.SystemWalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindWallet(ctx context.Context, walletType enums.SystemWalletType) (*models.SystemWallet, error) {
	var wallet models.SystemWallet
	err := r.db.WithContext(ctx).Where("wallet_type = ?", walletType).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) CreateWallet(ctx context.Context, wallet *models.SystemWallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) IncreaseBalance(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE system_wallets
		SET balance = balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE wallet_type = ?
	`, amount, walletType)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DecreaseBalance(ctx context.Context, walletType enums.SystemWalletType, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE system_wallets
		SET balance = balance - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE wallet_type = ? AND balance >= ?
	`, amount, walletType, amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) GetBalance(ctx context.Context, walletType enums.SystemWalletType) (decimal.Decimal, error) {
	var wallet models.SystemWallet
	err := r.db.WithContext(ctx).Select("balance").Where("wallet_type = ?", walletType).First(&wallet).Error
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.SystemWalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletType enums.SystemWalletType, limit, offset int) ([]models.SystemWalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_type = ?", walletType).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var entries []models.SystemWalletTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
