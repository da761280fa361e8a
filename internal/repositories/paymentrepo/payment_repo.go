package paymentrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/internal/infrastructure/database"
)

const uniqueViolationCode = "23505"

type paymentRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) interfaces.PaymentRepository {
	return &paymentRepository{
		db:     db.Db,
		logger: logger.With().Str("component", "payment_repository").Logger(),
	}
}

const insertPayment = `
INSERT INTO payments (
	id, provider, chain_id, external_id, status, request, response,
	raw_response, source_address, source_tx_hash, withdraw_tx_hash,
	withdraw_id, status_updated_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func (r *paymentRepository) Create(ctx context.Context, record *domain.PaymentRecord) error {
	requestJSON, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal payment request: %w", err)
	}
	responseJSON, err := json.Marshal(record.Response)
	if err != nil {
		return fmt.Errorf("failed to marshal payment response: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertPayment,
		record.ID,
		record.Provider,
		record.ChainID,
		record.ExternalID,
		string(record.Status),
		requestJSON,
		responseJSON,
		pqtype.NullRawMessage{RawMessage: record.RawResponse, Valid: record.RawResponse != nil},
		nullString(record.SourceAddress),
		nullString(record.SourceTxHash),
		nullString(record.WithdrawTxHash),
		nullString(record.WithdrawID),
		record.StatusUpdatedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolationCode {
			return fmt.Errorf("payment %s already exists: %w", record.ID, err)
		}
		r.logger.Error().Err(err).Str("payment_id", record.ID).Msg("Failed to create payment record")
		return fmt.Errorf("failed to create payment record: %w", err)
	}

	return nil
}

const selectPayment = `
SELECT id, provider, chain_id, external_id, status, request, response,
	raw_response, source_address, source_tx_hash, withdraw_tx_hash,
	withdraw_id, status_updated_at, created_at, updated_at
FROM payments `

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		// Not an internal id. Callers fall through to the external id lookup.
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, selectPayment+`WHERE id = $1`, id)
	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_id", id).Msg("Failed to get payment by id")
		return nil, fmt.Errorf("failed to get payment by id: %w", err)
	}
	return record, nil
}

func (r *paymentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, selectPayment+`WHERE external_id = $1`, externalID)
	record, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("external_id", externalID).Msg("Failed to get payment by external id")
		return nil, fmt.Errorf("failed to get payment by external id: %w", err)
	}
	return record, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, rawResponse json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2,
			raw_response = COALESCE($3, raw_response),
			status_updated_at = $4,
			updated_at = $4
		WHERE id = $1`,
		id,
		string(status),
		pqtype.NullRawMessage{RawMessage: rawResponse, Valid: rawResponse != nil},
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", id).Str("status", string(status)).Msg("Failed to update payment status")
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func (r *paymentRepository) UpdateSourceTx(ctx context.Context, id, payerAddress, txHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET source_address = $2, source_tx_hash = $3, updated_at = $4
		WHERE id = $1`,
		id, nullString(payerAddress), nullString(txHash), time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", id).Msg("Failed to update payment source tx")
		return fmt.Errorf("failed to update payment source tx: %w", err)
	}
	return nil
}

func (r *paymentRepository) UpdateWithdrawal(ctx context.Context, id, withdrawID, txHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET withdraw_id = $2, withdraw_tx_hash = $3, updated_at = $4
		WHERE id = $1`,
		id, nullString(withdrawID), nullString(txHash), time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", id).Msg("Failed to update payment withdrawal fields")
		return fmt.Errorf("failed to update payment withdrawal fields: %w", err)
	}
	return nil
}

func (r *paymentRepository) ListUnsettled(ctx context.Context, limit, offset int) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectPayment+`
		WHERE status NOT IN ($1, $2, $3)
		ORDER BY created_at
		LIMIT $4 OFFSET $5`,
		string(domain.PaymentStatusCompleted),
		string(domain.PaymentStatusBounced),
		string(domain.PaymentStatusRefunded),
		limit, offset,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list unsettled payments")
		return nil, fmt.Errorf("failed to list unsettled payments: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unsettled payment: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unsettled payments: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*domain.PaymentRecord, error) {
	var (
		record         domain.PaymentRecord
		requestJSON    []byte
		responseJSON   []byte
		rawResponse    pqtype.NullRawMessage
		sourceAddress  sql.NullString
		sourceTxHash   sql.NullString
		withdrawTxHash sql.NullString
		withdrawID     sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&record.Provider,
		&record.ChainID,
		&record.ExternalID,
		&record.Status,
		&requestJSON,
		&responseJSON,
		&rawResponse,
		&sourceAddress,
		&sourceTxHash,
		&withdrawTxHash,
		&withdrawID,
		&record.StatusUpdatedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(requestJSON, &record.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored request: %w", err)
	}
	if err := json.Unmarshal(responseJSON, &record.Response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored response: %w", err)
	}
	if rawResponse.Valid {
		record.RawResponse = rawResponse.RawMessage
	}
	record.SourceAddress = sourceAddress.String
	record.SourceTxHash = sourceTxHash.String
	record.WithdrawTxHash = withdrawTxHash.String
	record.WithdrawID = withdrawID.String

	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
