package artifact

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// storeUnderTest は両実装に同じ契約テストをかけるためのファクトリです。
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			path := filepath.Join(t.TempDir(), "artifacts.db")
			store, err := OpenSQLite(context.Background(), path)
			if err != nil {
				t.Fatalf("SQLiteストアを開けなかったのだ: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("バージョンは1から欠番なく連続するのだ", func(t *testing.T) {
				store := factory(t)
				for i := 1; i <= 5; i++ {
					a, err := store.Create(ctx, "scene-1", domain.TypePanelPlan, []byte(`{"panels":[]}`), "")
					if err != nil {
						t.Fatalf("Create に失敗したのだ: %v", err)
					}
					if a.Version != i {
						t.Errorf("バージョンは %d のはずが %d なのだ", i, a.Version)
					}
				}

				latest, err := store.GetLatest(ctx, "scene-1", domain.TypePanelPlan)
				if err != nil {
					t.Fatalf("GetLatest に失敗したのだ: %v", err)
				}
				if latest.Version != 5 {
					t.Errorf("最新は5のはずが %d なのだ", latest.Version)
				}
			})

			t.Run("親IDは省略時に直前バージョンを指すのだ", func(t *testing.T) {
				store := factory(t)
				first, _ := store.Create(ctx, "scene-2", domain.TypeSceneIntent, []byte(`{}`), "")
				if first.ParentID != "" {
					t.Errorf("初版に親はいないはずなのだ: %q", first.ParentID)
				}

				second, _ := store.Create(ctx, "scene-2", domain.TypeSceneIntent, []byte(`{}`), "")
				if second.ParentID != first.ID {
					t.Errorf("第2版の親は初版のはずなのだ: got=%q want=%q", second.ParentID, first.ID)
				}

				explicit, _ := store.Create(ctx, "scene-2", domain.TypeSceneIntent, []byte(`{}`), "custom-parent")
				if explicit.ParentID != "custom-parent" {
					t.Errorf("明示した親が保持されないのだ: %q", explicit.ParentID)
				}
			})

			t.Run("種別とサブジェクトでバージョン空間は独立なのだ", func(t *testing.T) {
				store := factory(t)
				a1, _ := store.Create(ctx, "scene-3", domain.TypePanelPlan, []byte(`{}`), "")
				a2, _ := store.Create(ctx, "scene-3", domain.TypeQCReport, []byte(`{}`), "")
				a3, _ := store.Create(ctx, "scene-4", domain.TypePanelPlan, []byte(`{}`), "")

				for _, a := range []*domain.Artifact{a1, a2, a3} {
					if a.Version != 1 {
						t.Errorf("独立した空間ではどれも初版のはずなのだ: %s/%s = %d", a.SubjectID, a.Type, a.Version)
					}
				}
			})

			t.Run("存在しない成果物は ErrNotFound なのだ", func(t *testing.T) {
				store := factory(t)
				if _, err := store.GetLatest(ctx, "ghost", domain.TypePanelPlan); !errors.Is(err, ErrNotFound) {
					t.Errorf("ErrNotFound のはずが %v なのだ", err)
				}
			})

			t.Run("Listはバージョン昇順、種別指定なしは全種別を返すのだ", func(t *testing.T) {
				store := factory(t)
				store.Create(ctx, "scene-5", domain.TypePanelPlan, []byte(`{}`), "")
				store.Create(ctx, "scene-5", domain.TypePanelPlan, []byte(`{}`), "")
				store.Create(ctx, "scene-5", domain.TypeQCReport, []byte(`{}`), "")

				plans, err := store.List(ctx, "scene-5", domain.TypePanelPlan)
				if err != nil {
					t.Fatalf("List に失敗したのだ: %v", err)
				}
				if len(plans) != 2 || plans[0].Version != 1 || plans[1].Version != 2 {
					t.Errorf("バージョン昇順になっていないのだ: %+v", plans)
				}

				all, err := store.List(ctx, "scene-5", "")
				if err != nil {
					t.Fatalf("種別なしListに失敗したのだ: %v", err)
				}
				if len(all) != 3 {
					t.Errorf("全種別で3件のはずが %d 件なのだ", len(all))
				}
			})
		})
	}
}
