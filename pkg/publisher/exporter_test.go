package publisher

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// memwriter は書き込み内容をメモリに貯めるだけの OutputWriter なのだ。
type memWriter struct {
	files map[string][]byte
}

func newMemWriter() *memWriter {
	return &memWriter{files: map[string][]byte{}}
}

func (w *memWriter) Write(_ context.Context, path string, data []byte) error {
	w.files[path] = append([]byte(nil), data...)
	return nil
}

func seed(t *testing.T, store artifact.Store, subjectID string, artifactType domain.ArtifactType, v any) {
	t.Helper()
	payload, err := domain.EncodePayload(v)
	if err != nil {
		t.Fatalf("ペイロードの変換に失敗したのだ: %v", err)
	}
	if _, err := store.Create(context.Background(), subjectID, artifactType, payload, ""); err != nil {
		t.Fatalf("成果物の登録に失敗したのだ: %v", err)
	}
}

func TestExport_画像と要約を書き出すのだ(t *testing.T) {
	store := artifact.NewMemoryStore()
	subjectID := "scene-101"

	plan := domain.PanelPlan{
		Title:           "決闘",
		SceneImportance: "climax",
		Panels: domain.Panels{
			{Index: 1, GrammarID: domain.TagEstablishing, Description: "夜の路地"},
			{Index: 2, GrammarID: domain.TagAction, Description: "白刃の交錯", Dialogue: "……遅い", SpeakerID: "kenshi_a"},
			{Index: 3, GrammarID: domain.TagReaction, Description: "崩れ落ちる影"},
		},
	}
	seed(t, store, subjectID, domain.TypePanelPlanNormalized, plan)
	seed(t, store, subjectID, domain.TypeLayoutTemplate, domain.LayoutTemplate{
		ID: "3-dominant",
		Regions: []domain.Region{
			{X: 0, Y: 0, W: 1, H: 0.6},
			{X: 0, Y: 0.6, W: 0.5, H: 0.4},
			{X: 0.5, Y: 0.6, W: 0.5, H: 0.4},
		},
	})
	seed(t, store, subjectID, domain.TypeQCReport, domain.QCReport{Passed: true})
	seed(t, store, subjectID, domain.TypeRenderResult, domain.RenderResult{
		MimeType: "image/png",
		Data:     base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		ByteSize: 9,
	})

	writer := newMemWriter()
	exporter := NewExporter(store, writer)

	result, err := exporter.Export(context.Background(), subjectID, Options{OutputDir: "out"})
	if err != nil {
		t.Fatalf("エクスポートに失敗したのだ: %v", err)
	}

	img, ok := writer.files[result.ImagePath]
	if !ok || string(img) != "png-bytes" {
		t.Errorf("画像が正しく書き出されていないのだ: %s", result.ImagePath)
	}
	if !strings.HasSuffix(result.ImagePath, subjectID+".png") {
		t.Errorf("画像ファイル名が想定と違うのだ: %s", result.ImagePath)
	}

	md, ok := writer.files[result.MarkdownPath]
	if !ok {
		t.Fatalf("Markdownが書き出されていないのだ: %s", result.MarkdownPath)
	}
	content := string(md)
	for _, want := range []string{"# 決闘", "layout: 3-dominant", "speaker: kenshi_a", "result: passed", "images/scene-101.png"} {
		if !strings.Contains(content, want) {
			t.Errorf("Markdownに %q が見つからないのだ", want)
		}
	}
}

func TestExport_レンダリング結果がなくても要約は出るのだ(t *testing.T) {
	store := artifact.NewMemoryStore()
	subjectID := "scene-102"
	seed(t, store, subjectID, domain.TypePanelPlanNormalized, domain.PanelPlan{
		Panels: domain.Panels{{Index: 1, GrammarID: domain.TagEstablishing, Description: "朝の教室"}},
	})

	writer := newMemWriter()
	result, err := NewExporter(store, writer).Export(context.Background(), subjectID, Options{OutputDir: "out"})
	if err != nil {
		t.Fatalf("エクスポートに失敗したのだ: %v", err)
	}
	if result.ImagePath != "" {
		t.Errorf("画像パスが空のはずなのだ: %s", result.ImagePath)
	}
	if _, ok := writer.files[result.MarkdownPath]; !ok {
		t.Error("Markdownが書き出されていないのだ")
	}
}

func TestExport_プランがなければ失敗するのだ(t *testing.T) {
	store := artifact.NewMemoryStore()
	_, err := NewExporter(store, newMemWriter()).Export(context.Background(), "scene-404", Options{OutputDir: "out"})
	if err == nil {
		t.Fatal("エラーが返らないのだ")
	}
}

func TestResolveOutputPath_GCSとローカルを使い分けるのだ(t *testing.T) {
	got, err := ResolveOutputPath("gs://bucket/storyboards", "storyboard.md")
	if err != nil {
		t.Fatalf("GCSパスの解決に失敗したのだ: %v", err)
	}
	if got != "gs://bucket/storyboards/storyboard.md" {
		t.Errorf("GCSパスが %s なのだ", got)
	}

	local, err := ResolveOutputPath("out", "storyboard.md")
	if err != nil {
		t.Fatalf("ローカルパスの解決に失敗したのだ: %v", err)
	}
	if !strings.HasSuffix(local, "storyboard.md") {
		t.Errorf("ローカルパスが %s なのだ", local)
	}
}
