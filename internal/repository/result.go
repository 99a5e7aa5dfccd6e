package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.impostor/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id             BIGSERIAL PRIMARY KEY,
	room_code      VARCHAR(6)  NOT NULL,
	winners        VARCHAR(16) NOT NULL,
	secret_word    TEXT        NOT NULL,
	category       VARCHAR(64) NOT NULL DEFAULT '',
	language       VARCHAR(16) NOT NULL DEFAULT 'en',
	player_count   INT         NOT NULL,
	impostor_count INT         NOT NULL,
	ejected_id     TEXT        NOT NULL,
	ejected_name   TEXT        NOT NULL,
	impostor_ids   TEXT[]      NOT NULL,
	impostor_names TEXT[]      NOT NULL,
	votes          JSONB       NOT NULL DEFAULT '{}'::jsonb,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_results_room ON game_results (room_code, finished_at DESC);
`

// GameResult 一条对局记录
type GameResult struct {
	ID            int64             `json:"id"`
	RoomCode      string            `json:"roomCode"`
	Winners       string            `json:"winners"`
	SecretWord    string            `json:"secretWord"`
	Category      string            `json:"category"`
	Language      string            `json:"language"`
	PlayerCount   int               `json:"playerCount"`
	ImpostorCount int               `json:"impostorCount"`
	EjectedID     string            `json:"ejectedId"`
	EjectedName   string            `json:"ejectedName"`
	ImpostorIDs   []string          `json:"impostorIds"`
	ImpostorNames []string          `json:"impostorNames"`
	Votes         map[string]string `json:"votes"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
}

// ResultRepository 对局结果数据访问
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository 创建对局结果仓库
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

// EnsureSchema 建表
func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// RecordResult 保存一轮结果
func (r *ResultRepository) RecordResult(ctx context.Context, result *session.Result) error {
	ids := make([]string, len(result.Impostors))
	names := make([]string, len(result.Impostors))
	for i, p := range result.Impostors {
		ids[i] = p.ID
		names[i] = p.Name
	}
	votes := result.Votes
	if votes == nil {
		votes = map[string]string{}
	}
	encodedVotes, err := json.Marshal(votes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO game_results (room_code, winners, secret_word, category, language, player_count,
			impostor_count, ejected_id, ejected_name, impostor_ids, impostor_names, votes, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13, $14)
	`
	_, err = r.db.Exec(ctx, query,
		result.RoomCode,
		string(result.Winners),
		result.SecretWord,
		result.Category,
		result.Language,
		result.PlayerCount,
		result.ImpostorCount,
		result.Ejected.ID,
		result.Ejected.Name,
		ids,
		names,
		string(encodedVotes),
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// ListByRoom 房间最近的对局记录
func (r *ResultRepository) ListByRoom(ctx context.Context, roomCode string, limit int) ([]*GameResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT id, room_code, winners, secret_word, category, language, player_count, impostor_count,
			ejected_id, ejected_name, impostor_ids, impostor_names, votes::text, started_at, finished_at
		FROM game_results
		WHERE room_code = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, roomCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*GameResult, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (*GameResult, error) {
	res := &GameResult{}
	var votes string
	err := row.Scan(
		&res.ID,
		&res.RoomCode,
		&res.Winners,
		&res.SecretWord,
		&res.Category,
		&res.Language,
		&res.PlayerCount,
		&res.ImpostorCount,
		&res.EjectedID,
		&res.EjectedName,
		&res.ImpostorIDs,
		&res.ImpostorNames,
		&votes,
		&res.StartedAt,
		&res.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(votes), &res.Votes); err != nil {
		return nil, fmt.Errorf("decode votes: %w", err)
	}
	return res, nil
}
