package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id          TEXT    NOT NULL PRIMARY KEY,
	subject_id  TEXT    NOT NULL,
	type        TEXT    NOT NULL,
	version     INTEGER NOT NULL,
	parent_id   TEXT    NOT NULL DEFAULT '',
	payload     BLOB    NOT NULL,
	created_at  TEXT    NOT NULL,
	UNIQUE (subject_id, type, version)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_subject_type
	ON artifacts (subject_id, type, version);
`

// SQLiteStore は modernc.org/sqlite を背景にした永続ストアです。
// (subject_id, type, version) のユニーク制約が追記専用のバージョン連続性を守ります。
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite は path のデータベースを開き、スキーマを初期化して返します。
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("SQLiteデータベースのオープンに失敗しました (%s): %w", path, err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマの初期化に失敗しました: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close はデータベース接続を閉じます。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, subjectID string, artifactType domain.ArtifactType, payload []byte, parentID string) (*domain.Artifact, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var (
		maxVersion sql.NullInt64
		latestID   sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT MAX(version),
		       (SELECT id FROM artifacts
		         WHERE subject_id = ? AND type = ?
		         ORDER BY version DESC LIMIT 1)
		  FROM artifacts
		 WHERE subject_id = ? AND type = ?`,
		subjectID, string(artifactType), subjectID, string(artifactType),
	).Scan(&maxVersion, &latestID)
	if err != nil {
		return nil, fmt.Errorf("最大バージョンの取得に失敗しました: %w", err)
	}

	version := int(maxVersion.Int64) + 1
	if parentID == "" && latestID.Valid {
		parentID = latestID.String
	}

	stored := &domain.Artifact{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Type:      artifactType,
		Version:   version,
		ParentID:  parentID,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (id, subject_id, type, version, parent_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.SubjectID, string(stored.Type), stored.Version,
		stored.ParentID, []byte(stored.Payload), stored.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("成果物の挿入に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return stored, nil
}

func (s *SQLiteStore) GetLatest(ctx context.Context, subjectID string, artifactType domain.ArtifactType) (*domain.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, type, version, parent_id, payload, created_at
		  FROM artifacts
		 WHERE subject_id = ? AND type = ?
		 ORDER BY version DESC LIMIT 1`,
		subjectID, string(artifactType),
	)

	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("最新バージョンの取得に失敗しました: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) List(ctx context.Context, subjectID string, artifactType domain.ArtifactType) ([]*domain.Artifact, error) {
	query := `
		SELECT id, subject_id, type, version, parent_id, payload, created_at
		  FROM artifacts
		 WHERE subject_id = ?`
	args := []any{subjectID}
	if artifactType != "" {
		query += ` AND type = ?`
		args = append(args, string(artifactType))
	}
	query += ` ORDER BY type, version`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("成果物一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("成果物行の読み取りに失敗しました: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("成果物一覧の走査に失敗しました: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*domain.Artifact, error) {
	var (
		a         domain.Artifact
		typeStr   string
		payload   []byte
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.SubjectID, &typeStr, &a.Version, &a.ParentID, &payload, &createdAt); err != nil {
		return nil, err
	}

	a.Type = domain.ArtifactType(typeStr)
	a.Payload = payload

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("created_at の解析に失敗しました (%q): %w", createdAt, err)
	}
	a.CreatedAt = ts

	return &a, nil
}
