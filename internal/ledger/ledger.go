// Package ledger реализует ядро системы баллов: атомарные начисления,
// списания и переводы с журналом операций.
//
// Каждая операция несёт correlation id бизнес-события. Повтор операции
// с тем же correlation id не изменяет состояние — это позволяет безопасно
// ретраить операции после таймаутов хранилища.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/avdeyev/score-ledger-system/internal/metrics"
	"github.com/avdeyev/score-ledger-system/internal/model"
	"github.com/avdeyev/score-ledger-system/internal/repository"
)

// ErrInvalidAmount возвращается при неположительной сумме операции.
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrMissingCorrelation возвращается, если операция пришла без correlation id.
	ErrMissingCorrelation = errors.New("correlation id required")
	// ErrSameAccount возвращается при попытке перевода самому себе.
	ErrSameAccount = errors.New("transfer to the same account")
	// ErrRecipientNotFound возвращается, если получатель перевода не найден.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrDailyLimitExceeded возвращается при исчерпании дневного лимита активности.
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	// ErrCompensationFailed возвращается, когда списание прошло, зачисление не
	// удалось и компенсирующее зачисление отправителю тоже не удалось.
	// Требует ручной сверки по correlation id.
	ErrCompensationFailed = errors.New("transfer compensation failed")
	// ErrTransferCompensated возвращается при повторе перевода, который уже
	// был компенсирован. Такой перевод завершён окончательно: новый перевод
	// требует нового correlation id.
	ErrTransferCompensated = errors.New("transfer already compensated")
)

// OpState описывает состояние операции журнала.
type OpState string

const (
	StateValidating         OpState = "VALIDATING"
	StateReserving          OpState = "RESERVING"
	StateCommitting         OpState = "COMMITTING"
	StateCommitted          OpState = "COMMITTED"
	StateFailedValidation   OpState = "FAILED_VALIDATION"
	StateFailedInsufficient OpState = "FAILED_INSUFFICIENT"
	StateFailedCompensated  OpState = "FAILED_COMPENSATED"
)

// Storage описывает контракт атомарного хранилища, используемый журналом.
type Storage interface {
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	ApplyCredit(ctx context.Context, e model.TransactionEntry) (*model.Balance, bool, error)
	ApplyDebit(ctx context.Context, e model.TransactionEntry) (*model.Balance, bool, error)
	HasEntry(ctx context.Context, category model.Category, correlationID string) (bool, error)
}

// Result описывает исход операции начисления или списания.
// Applied=false означает, что операция с этим correlation id уже
// применялась раньше и состояние не изменилось.
type Result struct {
	Balance *model.Balance
	Applied bool
}

// TransferResult описывает исход успешного перевода.
type TransferResult struct {
	FromBalance *model.Balance
	ToBalance   *model.Balance
}

// Ledger предоставляет атомарные операции над балансами пользователей.
type Ledger struct {
	store  Storage
	logger *zap.Logger
}

// New создаёт журнал над указанным хранилищем.
func New(store Storage, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
	}
}

func validateOp(amount int64, correlationID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if correlationID == "" {
		return ErrMissingCorrelation
	}
	return nil
}

// Credit начисляет amount баллов пользователю и записывает операцию в журнал.
func (l *Ledger) Credit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*Result, error) {
	if err := validateOp(amount, correlationID); err != nil {
		metrics.LedgerOperations.WithLabelValues("credit", string(StateFailedValidation)).Inc()
		return nil, err
	}

	balance, applied, err := l.store.ApplyCredit(ctx, model.TransactionEntry{
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		Category:      category,
		CorrelationID: correlationID,
	})
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("credit", "error").Inc()
		return nil, fmt.Errorf("credit: %w", err)
	}

	if !applied {
		l.logger.Debug("duplicate credit suppressed",
			zap.Int64("userID", userID),
			zap.String("correlationID", correlationID),
		)
	}

	metrics.LedgerOperations.WithLabelValues("credit", string(StateCommitted)).Inc()
	return &Result{Balance: balance, Applied: applied}, nil
}

// Debit списывает amount баллов, если средств достаточно. При нехватке
// средств состояние не меняется и возвращается ошибка хранилища
// repository.ErrInsufficientBalance.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*Result, error) {
	if err := validateOp(amount, correlationID); err != nil {
		metrics.LedgerOperations.WithLabelValues("debit", string(StateFailedValidation)).Inc()
		return nil, err
	}

	balance, applied, err := l.store.ApplyDebit(ctx, model.TransactionEntry{
		UserID:        userID,
		Amount:        -amount,
		Reason:        reason,
		Category:      category,
		CorrelationID: correlationID,
	})
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("debit", debitOutcome(err)).Inc()
		return nil, fmt.Errorf("debit: %w", err)
	}

	if !applied {
		l.logger.Debug("duplicate debit suppressed",
			zap.Int64("userID", userID),
			zap.String("correlationID", correlationID),
		)
	}

	metrics.LedgerOperations.WithLabelValues("debit", string(StateCommitted)).Inc()
	return &Result{Balance: balance, Applied: applied}, nil
}

// Transfer переводит amount баллов от fromUserID к toUserID, удерживая
// с отправителя комиссию fee. Списание и зачисление связаны общим
// correlation id; если зачисление не удалось, отправителю возвращается
// полная сумма компенсирующим зачислением.
//
// Компенсированный перевод завершён окончательно: повтор с тем же
// correlation id возвращает ErrTransferCompensated, повторять бизнес-событие
// нужно с новым correlation id.
func (l *Ledger) Transfer(ctx context.Context, fromUserID, toUserID, amount, fee int64, reason, correlationID string) (*TransferResult, error) {
	if correlationID == "" {
		metrics.LedgerOperations.WithLabelValues("transfer", string(StateFailedValidation)).Inc()
		return nil, ErrMissingCorrelation
	}
	if amount <= 0 || fee < 0 {
		metrics.LedgerOperations.WithLabelValues("transfer", string(StateFailedValidation)).Inc()
		return nil, ErrInvalidAmount
	}
	if fromUserID == toUserID {
		metrics.LedgerOperations.WithLabelValues("transfer", string(StateFailedValidation)).Inc()
		return nil, ErrSameAccount
	}

	l.logger.Debug("transfer state",
		zap.String("state", string(StateReserving)),
		zap.String("correlationID", correlationID),
	)

	fromBalance, applied, err := l.store.ApplyDebit(ctx, model.TransactionEntry{
		UserID:        fromUserID,
		Amount:        -(amount + fee),
		Reason:        reason,
		Category:      model.CategoryTransfer,
		CorrelationID: correlationID + ":out",
	})
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("transfer", debitOutcome(err)).Inc()
		return nil, fmt.Errorf("transfer debit: %w", err)
	}

	if !applied {
		// Списание с этим correlation id уже применялось. Если прошлую
		// попытку пришлось компенсировать, кредитную ногу выполнять нельзя:
		// отправителю уже вернули сумму, и повторное зачисление получателю
		// создало бы баллы из ничего.
		compensated, cerr := l.store.HasEntry(ctx, model.CategoryTransfer, correlationID+":comp")
		if cerr != nil {
			metrics.LedgerOperations.WithLabelValues("transfer", "error").Inc()
			return nil, fmt.Errorf("check compensation: %w", cerr)
		}
		if compensated {
			metrics.LedgerOperations.WithLabelValues("transfer", string(StateFailedCompensated)).Inc()
			return nil, fmt.Errorf("correlation %s: %w", correlationID, ErrTransferCompensated)
		}
	}

	l.logger.Debug("transfer state",
		zap.String("state", string(StateCommitting)),
		zap.String("correlationID", correlationID),
	)

	toBalance, _, err := l.store.ApplyCredit(ctx, model.TransactionEntry{
		UserID:        toUserID,
		Amount:        amount,
		Reason:        reason,
		Category:      model.CategoryTransfer,
		CorrelationID: correlationID + ":in",
	})
	if err != nil {
		return nil, l.compensate(ctx, fromUserID, amount+fee, correlationID, err)
	}

	metrics.LedgerOperations.WithLabelValues("transfer", string(StateCommitted)).Inc()
	return &TransferResult{FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// compensate возвращает отправителю полную сумму неудавшегося перевода.
func (l *Ledger) compensate(ctx context.Context, fromUserID, total int64, correlationID string, creditErr error) error {
	_, _, err := l.store.ApplyCredit(ctx, model.TransactionEntry{
		UserID:        fromUserID,
		Amount:        total,
		Reason:        "transfer compensation",
		Category:      model.CategoryTransfer,
		CorrelationID: correlationID + ":comp",
	})
	if err != nil {
		// Средства списаны и не возвращены. Единственный случай, который
		// обязан попасть в журнал ошибок целиком.
		l.logger.Error("transfer compensation failed",
			zap.String("correlationID", correlationID),
			zap.Int64("userID", fromUserID),
			zap.Int64("amount", total),
			zap.NamedError("creditError", creditErr),
			zap.NamedError("compensationError", err),
		)
		metrics.CompensationFailures.Inc()
		metrics.LedgerOperations.WithLabelValues("transfer", "failed").Inc()
		return fmt.Errorf("%w: correlation %s: credit: %v: compensation: %v",
			ErrCompensationFailed, correlationID, creditErr, err)
	}

	l.logger.Warn("transfer credit leg failed, sender compensated",
		zap.String("correlationID", correlationID),
		zap.Int64("userID", fromUserID),
		zap.Int64("amount", total),
		zap.Error(creditErr),
	)
	metrics.LedgerOperations.WithLabelValues("transfer", string(StateFailedCompensated)).Inc()
	return fmt.Errorf("transfer credit: %w", creditErr)
}

func debitOutcome(err error) string {
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return string(StateFailedInsufficient)
	}
	return "error"
}
