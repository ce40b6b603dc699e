package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
)

// Repository manages account balances and the wallet transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// DebitBalance atomically subtracts amount when the balance covers it.
	// Returns false without error when it does not.
	DebitBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (bool, error)
	CreditBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (bool, error)
	GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error
	ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) DebitBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE accounts
		SET wallet_balance = wallet_balance - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND wallet_balance >= ?
	`, amount, ownerID, amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreditBalance(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE accounts
		SET wallet_balance = wallet_balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, ownerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Select("wallet_balance").Where("id = ?", ownerID).First(&account).Error
	if err != nil {
		return decimal.Zero, err
	}
	return account.WalletBalance, nil
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("wallet_owner_id = ?", ownerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var entries []models.WalletTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
