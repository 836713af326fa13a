// Package repository содержит реализацию доступа к данным в PostgreSQL.
//
// Все изменяющие операции выполняются атомарно на стороне хранилища:
// условные UPDATE, upsert с ON CONFLICT и блокировки строк. Никакого
// «прочитал — посчитал — записал» на уровне приложения здесь нет.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/avdeyev/score-ledger-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrBalanceNotFound возвращается, если у пользователя нет записи баланса.
var (
	ErrBalanceNotFound = errors.New("balance not found")
	// ErrInsufficientBalance возвращается при попытке списания суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrPoolNotFound возвращается, если конверт с указанным идентификатором не существует.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrPoolFinished возвращается, если все доли конверта уже разобраны.
	ErrPoolFinished = errors.New("pool already completed")
	// ErrPoolExpired возвращается при попытке получить долю из просроченного конверта.
	ErrPoolExpired = errors.New("pool expired")
	// ErrAlreadyClaimed возвращается, если пользователь уже получал долю из этого конверта.
	ErrAlreadyClaimed = errors.New("pool share already claimed")
	// ErrClaimNotFound возвращается, если пользователь не получал долю из конверта.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrStorageUnavailable возвращается, когда хранилище недоступно и ретраи исчерпаны.
	// Вызывающий не должен считать исход операции известным.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных сбоях хранилища: serialization failure,
// deadlock и сетевых ошибках. Повтор безопасен, потому что все изменяющие
// операции дедуплицируются по (category, correlation_id).
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность хранилища.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// GetBalance возвращает запись баланса пользователя.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, total_points, activity_count, last_updated
		 FROM balances
		 WHERE user_id = $1`,
		userID,
	)

	var b model.Balance
	err := row.Scan(&b.UserID, &b.TotalPoints, &b.ActivityCount, &b.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBalanceNotFound
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}

	return &b, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// applyDelta атомарно прибавляет delta к балансу пользователя.
// Запись создаётся при первом обращении со значением max(delta, 0).
func applyDelta(ctx context.Context, q rowQuerier, userID, delta int64) (*model.Balance, error) {
	row := q.QueryRow(ctx,
		`INSERT INTO balances (user_id, total_points, activity_count, last_updated)
		 VALUES ($1, GREATEST($2, 0), 1, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_points   = balances.total_points + $2,
		     activity_count = balances.activity_count + 1,
		     last_updated   = now()
		 RETURNING user_id, total_points, activity_count, last_updated`,
		userID, delta,
	)

	var b model.Balance
	if err := row.Scan(&b.UserID, &b.TotalPoints, &b.ActivityCount, &b.LastUpdated); err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}
	return &b, nil
}

// appendEntry вставляет запись журнала операций. Возвращает false, если запись
// с той же парой (category, correlation_id) уже существует.
func appendEntry(ctx context.Context, tx pgx.Tx, e model.TransactionEntry) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO transactions (user_id, amount, reason, category, correlation_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT transactions_dedup DO NOTHING`,
		e.UserID, e.Amount, e.Reason, string(e.Category), e.CorrelationID,
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyCredit атомарно записывает начисление: строка журнала и увеличение
// баланса выполняются в одной транзакции. Повторный вызов с тем же
// correlation_id не изменяет состояние и возвращает inserted=false.
func (r *PostgresRepository) ApplyCredit(ctx context.Context, e model.TransactionEntry) (*model.Balance, bool, error) {
	var (
		balance  *model.Balance
		inserted bool
	)

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		inserted, err = appendEntry(ctx, tx, e)
		if err != nil {
			return err
		}

		if !inserted {
			balance, err = r.GetBalance(ctx, e.UserID)
			if errors.Is(err, ErrBalanceNotFound) {
				balance, err = &model.Balance{UserID: e.UserID}, nil
			}
			return err
		}

		balance, err = applyDelta(ctx, tx, e.UserID, e.Amount)
		if err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return balance, inserted, nil
}

// ApplyDebit атомарно записывает списание. Сумма в e.Amount отрицательная.
// Баланс уменьшается условным UPDATE, который срабатывает только при
// достаточных средствах; иначе транзакция откатывается целиком и
// возвращается ErrInsufficientBalance.
func (r *PostgresRepository) ApplyDebit(ctx context.Context, e model.TransactionEntry) (*model.Balance, bool, error) {
	if e.Amount >= 0 {
		return nil, false, fmt.Errorf("apply debit: amount must be negative, got %d", e.Amount)
	}

	var (
		balance  *model.Balance
		inserted bool
	)

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		inserted, err = appendEntry(ctx, tx, e)
		if err != nil {
			return err
		}

		if !inserted {
			balance, err = r.GetBalance(ctx, e.UserID)
			return err
		}

		row := tx.QueryRow(ctx,
			`UPDATE balances
			 SET total_points   = total_points + $2,
			     activity_count = activity_count + 1,
			     last_updated   = now()
			 WHERE user_id = $1 AND total_points >= -$2
			 RETURNING user_id, total_points, activity_count, last_updated`,
			e.UserID, e.Amount,
		)

		var b model.Balance
		if err := row.Scan(&b.UserID, &b.TotalPoints, &b.ActivityCount, &b.LastUpdated); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInsufficientBalance
			}
			return fmt.Errorf("conditional debit: %w", err)
		}
		balance = &b

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return balance, inserted, nil
}

// ListTransactionsByUser возвращает последние операции пользователя,
// отсортированные по убыванию времени создания.
func (r *PostgresRepository) ListTransactionsByUser(ctx context.Context, userID int64, limit int) ([]model.TransactionEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount, reason, category, correlation_id, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.TransactionEntry
	for rows.Next() {
		var (
			e        model.TransactionEntry
			category string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &category, &e.CorrelationID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		e.Category = model.Category(category)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// HasEntry сообщает, есть ли в журнале запись с указанной парой
// (category, correlation_id).
func (r *PostgresRepository) HasEntry(ctx context.Context, category model.Category, correlationID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM transactions WHERE category = $1 AND correlation_id = $2
		 )`,
		string(category), correlationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check entry: %w", err)
	}
	return exists, nil
}

// SumTransactionsByUser возвращает сумму всех операций пользователя.
// Используется для сверки с текущим балансом.
func (r *PostgresRepository) SumTransactionsByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// ReserveDailySlot атомарно увеличивает счётчик активности за день, но только
// пока текущее значение меньше maxAllowed. При достигнутом потолке счётчик
// не меняется и возвращается allowed=false с текущим значением.
func (r *PostgresRepository) ReserveDailySlot(ctx context.Context, userID int64, kind, statDate string, maxAllowed int) (bool, int, error) {
	var count int

	err := r.withRetry(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO daily_counters (user_id, activity_kind, stat_date, play_count, last_activity_at)
			 VALUES ($1, $2, $3, 1, now())
			 ON CONFLICT (user_id, activity_kind, stat_date) DO UPDATE
			 SET play_count       = daily_counters.play_count + 1,
			     last_activity_at = now()
			 WHERE daily_counters.play_count < $4
			 RETURNING play_count`,
			userID, kind, statDate, maxAllowed,
		)
		return row.Scan(&count)
	})
	if err == nil {
		return true, count, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, fmt.Errorf("reserve daily slot: %w", err)
	}

	// Потолок достигнут: читаем текущее значение счётчика.
	err = r.pool.QueryRow(ctx,
		`SELECT play_count FROM daily_counters
		 WHERE user_id = $1 AND activity_kind = $2 AND stat_date = $3`,
		userID, kind, statDate,
	).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("read daily counter: %w", err)
	}

	return false, count, nil
}

// ReleaseDailySlot возвращает один ранее занятый слот активности за день.
// Счётчик не опускается ниже нуля.
func (r *PostgresRepository) ReleaseDailySlot(ctx context.Context, userID int64, kind, statDate string) error {
	err := r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`UPDATE daily_counters
			 SET play_count = play_count - 1
			 WHERE user_id = $1 AND activity_kind = $2 AND stat_date = $3 AND play_count > 0`,
			userID, kind, statDate,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("release daily slot: %w", err)
	}
	return nil
}

// CreatePool сохраняет новый красный конверт.
func (r *PostgresRepository) CreatePool(ctx context.Context, p model.Pool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pools (id, creator_id, kind, message, total_amount, total_count,
		                    remaining_amount, remaining_count, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CreatorID, string(p.Kind), p.Message, p.TotalAmount, p.TotalCount,
		p.RemainingAmount, p.RemainingCount, string(p.Status), p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

func scanPool(row pgx.Row) (*model.Pool, error) {
	var (
		p            model.Pool
		kind, status string
	)
	err := row.Scan(&p.ID, &p.CreatorID, &kind, &p.Message, &p.TotalAmount, &p.TotalCount,
		&p.RemainingAmount, &p.RemainingCount, &status, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Kind = model.PoolKind(kind)
	p.Status = model.PoolStatus(status)
	return &p, nil
}

const poolColumns = `id, creator_id, kind, message, total_amount, total_count,
	remaining_amount, remaining_count, status, expires_at, created_at`

// GetPool возвращает красный конверт по идентификатору.
func (r *PostgresRepository) GetPool(ctx context.Context, poolID string) (*model.Pool, error) {
	p, err := scanPool(r.pool.QueryRow(ctx,
		`SELECT `+poolColumns+` FROM pools WHERE id = $1`, poolID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return p, nil
}

// GetClaim возвращает запись о полученной доле конверта.
func (r *PostgresRepository) GetClaim(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error) {
	var c model.ClaimEntry
	err := r.pool.QueryRow(ctx,
		`SELECT pool_id, user_id, amount, claimed_at
		 FROM pool_claims
		 WHERE pool_id = $1 AND user_id = $2`,
		poolID, userID,
	).Scan(&c.PoolID, &c.UserID, &c.Amount, &c.ClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &c, nil
}

// ListPoolClaims возвращает все полученные доли конверта в порядке получения.
func (r *PostgresRepository) ListPoolClaims(ctx context.Context, poolID string) ([]model.ClaimEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pool_id, user_id, amount, claimed_at
		 FROM pool_claims
		 WHERE pool_id = $1
		 ORDER BY claimed_at`,
		poolID,
	)
	if err != nil {
		return nil, fmt.Errorf("select claims: %w", err)
	}
	defer rows.Close()

	var res []model.ClaimEntry
	for rows.Next() {
		var c model.ClaimEntry
		if err := rows.Scan(&c.PoolID, &c.UserID, &c.Amount, &c.ClaimedAt); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ClaimFromPool выдаёт одну долю конверта пользователю. Строка конверта
// блокируется FOR UPDATE, размер доли вычисляет draw над заблокированным
// состоянием, после чего остаток и счётчик уменьшаются в той же транзакции.
// Конверт с исчерпанным счётчиком переводится в COMPLETED. Просроченный
// конверт отклоняется без смены статуса: в EXPIRED его переводит только
// ExpireOverduePools, чтобы остаток гарантированно вернулся создателю.
func (r *PostgresRepository) ClaimFromPool(ctx context.Context, poolID string, userID int64, draw func(p *model.Pool) int64) (*model.ClaimEntry, error) {
	var claim *model.ClaimEntry

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		p, err := scanPool(tx.QueryRow(ctx,
			`SELECT `+poolColumns+` FROM pools WHERE id = $1 FOR UPDATE`, poolID,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPoolNotFound
			}
			return fmt.Errorf("lock pool: %w", err)
		}

		if p.Status == model.PoolStatusExpired {
			return ErrPoolExpired
		}

		if p.Status == model.PoolStatusActive && time.Now().After(p.ExpiresAt) {
			return ErrPoolExpired
		}

		if p.Status == model.PoolStatusCompleted || p.RemainingCount <= 0 {
			return ErrPoolFinished
		}

		amount := draw(p)

		row := tx.QueryRow(ctx,
			`INSERT INTO pool_claims (pool_id, user_id, amount)
			 VALUES ($1, $2, $3)
			 RETURNING pool_id, user_id, amount, claimed_at`,
			poolID, userID, amount,
		)

		var c model.ClaimEntry
		if err := row.Scan(&c.PoolID, &c.UserID, &c.Amount, &c.ClaimedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrAlreadyClaimed
			}
			return fmt.Errorf("insert claim: %w", err)
		}

		status := model.PoolStatusActive
		if p.RemainingCount-1 == 0 {
			status = model.PoolStatusCompleted
		}

		_, err = tx.Exec(ctx,
			`UPDATE pools
			 SET remaining_amount = remaining_amount - $2,
			     remaining_count  = remaining_count - 1,
			     status           = $3
			 WHERE id = $1`,
			poolID, amount, string(status),
		)
		if err != nil {
			return fmt.Errorf("update pool: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		claim = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claim, nil
}

// ExpireOverduePools переводит просроченные активные конверты в EXPIRED
// и возвращает их для возврата остатка создателям.
func (r *PostgresRepository) ExpireOverduePools(ctx context.Context) ([]model.Pool, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE pools
		 SET status = $1
		 WHERE status = $2 AND expires_at <= now()
		 RETURNING id, creator_id, remaining_amount, remaining_count`,
		string(model.PoolStatusExpired), string(model.PoolStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("expire pools: %w", err)
	}
	defer rows.Close()

	var res []model.Pool
	for rows.Next() {
		p := model.Pool{Status: model.PoolStatusExpired}
		if err := rows.Scan(&p.ID, &p.CreatorID, &p.RemainingAmount, &p.RemainingCount); err != nil {
			return nil, fmt.Errorf("scan expired pool: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// TopBalances возвращает первые n строк таблицы лидеров. При равенстве
// баллов выше стоит тот, кто достиг их раньше.
func (r *PostgresRepository) TopBalances(ctx context.Context, n int) ([]model.RankedBalance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, total_points, last_updated
		 FROM balances
		 ORDER BY total_points DESC, last_updated ASC
		 LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("select top balances: %w", err)
	}
	defer rows.Close()

	var res []model.RankedBalance
	for rows.Next() {
		var b model.RankedBalance
		if err := rows.Scan(&b.UserID, &b.TotalPoints, &b.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan ranked balance: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// RankOfUser возвращает место пользователя: 1 + число пользователей
// со строго большим количеством баллов.
func (r *PostgresRepository) RankOfUser(ctx context.Context, userID int64) (int64, error) {
	var points int64
	err := r.pool.QueryRow(ctx,
		`SELECT total_points FROM balances WHERE user_id = $1`,
		userID,
	).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrBalanceNotFound
		}
		return 0, fmt.Errorf("get user points: %w", err)
	}

	var rank int64
	err = r.pool.QueryRow(ctx,
		`SELECT 1 + COUNT(*) FROM balances WHERE total_points > $1`,
		points,
	).Scan(&rank)
	if err != nil {
		return 0, fmt.Errorf("count greater balances: %w", err)
	}

	return rank, nil
}
