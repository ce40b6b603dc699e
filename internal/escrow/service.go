package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/internal/wallet"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

type walletCreditor interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
}

// Service owns the pooled Escrow wallet. All three operations are tx-scoped:
// the caller's unit of work carries the escrow mutation together with
// whatever order/stock/wallet changes triggered it.
type Service interface {
	Hold(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error
	ReleaseToShop(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, shopOwnerID uuid.UUID) error
	RefundToCustomer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]models.SystemWalletTransaction, error)
}

type service struct {
	repo    Repository
	wallets walletCreditor
	logg    *logger.Logger
}

// NewService wires the escrow service.
func NewService(repo Repository, wallets walletCreditor, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	return &service{repo: repo, wallets: wallets, logg: logg}, nil
}

// Hold moves a customer payment into the pooled Escrow wallet. The wallet is
// created lazily at zero on first use.
func (s *service) Hold(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error {
	repo, err := s.scopedRepo(tx)
	if err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}

	if err := s.ensureWallet(ctx, repo); err != nil {
		return err
	}

	ok, err := repo.IncreaseBalance(ctx, enums.SystemWalletTypeEscrow, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increasing escrow balance")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "escrow wallet missing after creation")
	}

	return s.appendEntry(ctx, repo, entryInput{
		amount:          amount,
		transactionType: enums.SystemWalletTransactionTypeHoldFromCustomer,
		orderID:         orderID,
		relatedUserID:   customerID,
		description:     fmt.Sprintf("Hold payment for order %s", orderID),
	})
}

// ReleaseToShop pays the shop owner out of escrow. An escrow balance that
// cannot cover the amount is a ledger inconsistency, not a user failure: the
// release becomes a logged no-op and the order flow continues.
func (s *service) ReleaseToShop(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, shopOwnerID uuid.UUID) error {
	return s.payOut(ctx, tx, payout{
		amount:          amount,
		orderID:         orderID,
		beneficiaryID:   shopOwnerID,
		beneficiaryType: enums.WalletTypeShop,
		transactionType: enums.SystemWalletTransactionTypeReleaseToShop,
		walletTxType:    enums.WalletTransactionTypeSale,
		description:     fmt.Sprintf("Release sale proceeds for order %s", orderID),
	})
}

// RefundToCustomer returns escrowed funds to the customer's wallet. Same
// silent no-op guard as ReleaseToShop.
func (s *service) RefundToCustomer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error {
	return s.payOut(ctx, tx, payout{
		amount:          amount,
		orderID:         orderID,
		beneficiaryID:   customerID,
		beneficiaryType: enums.WalletTypeUser,
		transactionType: enums.SystemWalletTransactionTypeRefundToCustomer,
		walletTxType:    enums.WalletTransactionTypeRefund,
		description:     fmt.Sprintf("Refund order %s", orderID),
	})
}

func (s *service) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	balance, err := s.repo.GetBalance(ctx, enums.SystemWalletTypeEscrow)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading escrow balance")
	}
	return balance, nil
}

func (s *service) ListTransactions(ctx context.Context, limit, offset int) ([]models.SystemWalletTransaction, error) {
	entries, err := s.repo.ListTransactions(ctx, enums.SystemWalletTypeEscrow, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing escrow transactions")
	}
	return entries, nil
}

type payout struct {
	amount          decimal.Decimal
	orderID         uuid.UUID
	beneficiaryID   uuid.UUID
	beneficiaryType enums.WalletType
	transactionType enums.SystemWalletTransactionType
	walletTxType    enums.WalletTransactionType
	description     string
}

func (s *service) payOut(ctx context.Context, tx *gorm.DB, p payout) error {
	repo, err := s.scopedRepo(tx)
	if err != nil {
		return err
	}
	if err := validateAmount(p.amount); err != nil {
		return err
	}
	if p.beneficiaryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "beneficiary id required")
	}

	ok, err := repo.DecreaseBalance(ctx, enums.SystemWalletTypeEscrow, p.amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decreasing escrow balance")
	}
	if !ok {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("escrow balance cannot cover %s for order %s, payout skipped", p.amount, p.orderID))
		}
		return nil
	}

	if err := s.appendEntry(ctx, repo, entryInput{
		amount:          p.amount.Neg(),
		transactionType: p.transactionType,
		orderID:         p.orderID,
		relatedUserID:   p.beneficiaryID,
		description:     p.description,
	}); err != nil {
		return err
	}

	orderID := p.orderID
	_, err = s.wallets.CreditTx(ctx, tx, wallet.EntryInput{
		OwnerID:         p.beneficiaryID,
		WalletType:      p.beneficiaryType,
		Amount:          p.amount,
		TransactionType: p.walletTxType,
		Description:     p.description,
		ReferenceID:     &orderID,
	})
	return err
}

type entryInput struct {
	amount          decimal.Decimal
	transactionType enums.SystemWalletTransactionType
	orderID         uuid.UUID
	relatedUserID   uuid.UUID
	description     string
}

func (s *service) appendEntry(ctx context.Context, repo Repository, input entryInput) error {
	balance, err := repo.GetBalance(ctx, enums.SystemWalletTypeEscrow)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading escrow balance after mutation")
	}

	entry := &models.SystemWalletTransaction{
		WalletType:      enums.SystemWalletTypeEscrow,
		Amount:          input.amount,
		TransactionType: input.transactionType,
		BalanceAfter:    balance,
		Description:     input.description,
	}
	if input.orderID != uuid.Nil {
		orderID := input.orderID
		entry.OrderID = &orderID
	}
	if input.relatedUserID != uuid.Nil {
		userID := input.relatedUserID
		entry.RelatedUserID = &userID
	}
	if err := repo.CreateTransaction(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording escrow transaction")
	}
	return nil
}

func (s *service) ensureWallet(ctx context.Context, repo Repository) error {
	_, err := repo.FindWallet(ctx, enums.SystemWalletTypeEscrow)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading escrow wallet")
	}

	wallet := &models.SystemWallet{
		WalletType:  enums.SystemWalletTypeEscrow,
		Balance:     decimal.Zero,
		Description: "Pooled escrow for unsettled orders",
	}
	if err := repo.CreateWallet(ctx, wallet); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating escrow wallet")
	}
	return nil
}

func (s *service) scopedRepo(tx *gorm.DB) (Repository, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for escrow mutation")
	}
	return s.repo.WithTx(tx), nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
