package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntryInput describes one ledger movement. Amount is always positive; the
// operation decides the sign recorded on the transaction row.
type EntryInput struct {
	OwnerID         uuid.UUID
	WalletType      enums.WalletType
	Amount          decimal.Decimal
	TransactionType enums.WalletTransactionType
	Description     string
	ReferenceID     *uuid.UUID
}

// Service owns the per-account wallet ledger. The tx-scoped Debit/Credit
// primitives are the only write path to account balances; composing services
// call them inside their own unit of work.
type Service interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.WalletTransaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService wires the wallet service.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}
	if description == "" {
		description = "Wallet deposit"
	}

	var entry *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.CreditTx(ctx, tx, EntryInput{
			OwnerID:         userID,
			WalletType:      enums.WalletTypeUser,
			Amount:          amount,
			TransactionType: enums.WalletTransactionTypeDeposit,
			Description:     description,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading wallet balance")
	}
	return balance, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	entries, err := s.repo.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing wallet transactions")
	}
	return entries, nil
}

// DebitTx subtracts input.Amount from the owner's balance and appends the
// matching ledger entry, all against the supplied transaction. The balance
// check and subtraction are one conditional update, so concurrent debits of
// the same account cannot overdraw it.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	repo, err := s.scopedRepo(tx)
	if err != nil {
		return nil, err
	}
	if err := validateEntry(input); err != nil {
		return nil, err
	}

	ok, err := repo.DebitBalance(ctx, input.OwnerID, input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debiting wallet")
	}
	if !ok {
		if _, findErr := repo.FindAccount(ctx, input.OwnerID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "loading account")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover the amount")
	}

	return s.appendEntry(ctx, repo, input, input.Amount.Neg())
}

// CreditTx adds input.Amount to the owner's balance and appends the matching
// ledger entry against the supplied transaction.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	repo, err := s.scopedRepo(tx)
	if err != nil {
		return nil, err
	}
	if err := validateEntry(input); err != nil {
		return nil, err
	}

	ok, err := repo.CreditBalance(ctx, input.OwnerID, input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "crediting wallet")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}

	return s.appendEntry(ctx, repo, input, input.Amount)
}

func (s *service) scopedRepo(tx *gorm.DB) (Repository, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet mutation")
	}
	return s.repo.WithTx(tx), nil
}

func (s *service) appendEntry(ctx context.Context, repo Repository, input EntryInput, signedAmount decimal.Decimal) (*models.WalletTransaction, error) {
	balance, err := repo.GetBalance(ctx, input.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading balance after mutation")
	}

	entry := &models.WalletTransaction{
		WalletOwnerID:   input.OwnerID,
		WalletType:      input.WalletType,
		Amount:          signedAmount,
		TransactionType: input.TransactionType,
		Description:     input.Description,
		BalanceAfter:    balance,
		ReferenceID:     input.ReferenceID,
	}
	if err := repo.CreateTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording wallet transaction")
	}
	return entry, nil
}

func validateEntry(input EntryInput) error {
	if input.OwnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet owner id required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.WalletType.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid wallet type %q", input.WalletType)
	}
	if !input.TransactionType.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", input.TransactionType)
	}
	return nil
}
