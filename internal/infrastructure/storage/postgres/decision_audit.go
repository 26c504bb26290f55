package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/approval"
)

// CompressionAlgo specifies the compression algorithm used for a stored
// decision snapshot.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DecisionAudit persists approval decision snapshots. Large line sets are
// zstd-compressed; small payloads are stored as plain JSONB so they stay
// queryable.
type DecisionAudit struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ approval.DecisionRecorder = (*DecisionAudit)(nil)

// NewDecisionAudit creates a decision audit store.
func NewDecisionAudit(txManager *TxManager) (*DecisionAudit, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &DecisionAudit{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record stores one decision snapshot.
func (s *DecisionAudit) Record(ctx context.Context, rec *approval.DecisionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	var compressed []byte
	algo := CompressionNone
	if len(payload) > s.compressThreshold {
		compressed = s.encoder.EncodeAll(payload, nil)
		payload = nil
		algo = CompressionZstd
	}

	decidedAt := rec.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now().UTC()
	}

	sql := `
		INSERT INTO sys_decision_audit (
			id, issue_id, number, action, status, decided_by,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		id.New(), rec.IssueID, rec.Number, rec.Action, string(rec.Status),
		rec.DecidedBy, payload, compressed, algo, decidedAt,
	)
	return err
}

// History returns the decision trail of one issue, newest first.
func (s *DecisionAudit) History(ctx context.Context, issueID id.ID, limit int) ([]approval.DecisionRecord, error) {
	sql := `
		SELECT payload, payload_compressed, compression_algo
		FROM sys_decision_audit
		WHERE issue_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, issueID, limit)
	if err != nil {
		return nil, fmt.Errorf("query decision history: %w", err)
	}
	defer rows.Close()

	var records []approval.DecisionRecord
	for rows.Next() {
		var payload, compressed []byte
		var algo CompressionAlgo
		if err := rows.Scan(&payload, &compressed, &algo); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}

		if algo == CompressionZstd && len(compressed) > 0 {
			payload, err = s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress decision: %w", err)
			}
		}

		var rec approval.DecisionRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal decision: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
