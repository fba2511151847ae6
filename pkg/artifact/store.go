// Package artifact はステージ成果物の追記専用・バージョン付きストアを提供します。
package artifact

import (
	"context"
	"errors"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// ErrNotFound は指定した (subject, type) に成果物が存在しないことを表します。
var ErrNotFound = errors.New("artifact: 成果物が見つかりません")

// Store は (subject, type) ごとに 1 から連続するバージョンを払い出す
// 追記専用ストアの契約です。成果物は作成後に変更も削除もされません。
type Store interface {
	// Create は max(既存バージョン)+1 のバージョンで新しい成果物を記録します。
	// parentID が空の場合、直前バージョンが存在すればそれを親として採用します。
	Create(ctx context.Context, subjectID string, artifactType domain.ArtifactType, payload []byte, parentID string) (*domain.Artifact, error)

	// GetLatest は最大バージョンの成果物を返します。無ければ ErrNotFound です。
	GetLatest(ctx context.Context, subjectID string, artifactType domain.ArtifactType) (*domain.Artifact, error)

	// List は対象の成果物をバージョン昇順で返します。
	// artifactType が空の場合は subject の全種別を種別・バージョン順で返します。
	List(ctx context.Context, subjectID string, artifactType domain.ArtifactType) ([]*domain.Artifact, error)
}
