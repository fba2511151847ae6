package artifact

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// MemoryStore はプロセス内完結のストア実装です。テストと単発実行に使います。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey][]*domain.Artifact
	now     func() time.Time
}

type memoryKey struct {
	subjectID    string
	artifactType domain.ArtifactType
}

// NewMemoryStore はインメモリストアを生成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[memoryKey][]*domain.Artifact),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, subjectID string, artifactType domain.ArtifactType, payload []byte, parentID string) (*domain.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{subjectID: subjectID, artifactType: artifactType}
	versions := s.records[key]

	version := len(versions) + 1
	if parentID == "" && len(versions) > 0 {
		parentID = versions[len(versions)-1].ID
	}

	stored := &domain.Artifact{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Type:      artifactType,
		Version:   version,
		ParentID:  parentID,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: s.now().UTC(),
	}
	s.records[key] = append(versions, stored)

	return cloneArtifact(stored), nil
}

func (s *MemoryStore) GetLatest(ctx context.Context, subjectID string, artifactType domain.ArtifactType) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.records[memoryKey{subjectID: subjectID, artifactType: artifactType}]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return cloneArtifact(versions[len(versions)-1]), nil
}

func (s *MemoryStore) List(ctx context.Context, subjectID string, artifactType domain.ArtifactType) ([]*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Artifact
	if artifactType != "" {
		for _, a := range s.records[memoryKey{subjectID: subjectID, artifactType: artifactType}] {
			result = append(result, cloneArtifact(a))
		}
		return result, nil
	}

	for key, versions := range s.records {
		if key.subjectID != subjectID {
			continue
		}
		for _, a := range versions {
			result = append(result, cloneArtifact(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// cloneArtifact は呼び出し側の書き換えからストア内部を守るためのコピーです。
func cloneArtifact(a *domain.Artifact) *domain.Artifact {
	cloned := *a
	cloned.Payload = append([]byte(nil), a.Payload...)
	return &cloned
}
