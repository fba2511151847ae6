// Package pipeline はステージ依存グラフに沿って成果物を積み上げるオーケストレーターです。
package pipeline

import (
	"errors"
	"fmt"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// StageName はステージ表の中での一意な名前です。
type StageName string

const (
	StageIntent    StageName = "intent-extraction"
	StagePanelPlan StageName = "panel-plan"
	StageNormalize StageName = "normalization"
	StageLayout    StageName = "layout-resolution"
	StageSemantics StageName = "panel-semantics"
	StageQC        StageName = "qc-check"
	StageCompile   StageName = "prompt-compilation"
	StageRender    StageName = "rendering"
	StageBlindTest StageName = "blind-test"
)

// Stage はステージ表の1行です。Requires の成果物がすべて揃っていなければ
// 実行できず、成功すると Produces の新バージョンを1つ生みます。
type Stage struct {
	Name     StageName
	Requires []domain.ArtifactType
	Produces domain.ArtifactType

	// HasFallback は生成呼び出しの失敗時に決定的ヒューリスティックで
	// 代替できるステージかどうかです。
	HasFallback bool
}

// Stages は依存順に固定されたステージ表です。静的なデータであり、
// グラフ実行は明示的な依存チェック付きの反復にすぎません。
var Stages = []Stage{
	{Name: StageIntent, Requires: nil, Produces: domain.TypeSceneIntent},
	{Name: StagePanelPlan, Requires: []domain.ArtifactType{domain.TypeSceneIntent}, Produces: domain.TypePanelPlan, HasFallback: true},
	{Name: StageNormalize, Requires: []domain.ArtifactType{domain.TypePanelPlan}, Produces: domain.TypePanelPlanNormalized, HasFallback: true},
	{Name: StageLayout, Requires: []domain.ArtifactType{domain.TypePanelPlanNormalized}, Produces: domain.TypeLayoutTemplate, HasFallback: true},
	{Name: StageSemantics, Requires: []domain.ArtifactType{domain.TypeSceneIntent, domain.TypePanelPlanNormalized, domain.TypeLayoutTemplate}, Produces: domain.TypePanelSemantics, HasFallback: true},
	{Name: StageQC, Requires: []domain.ArtifactType{domain.TypePanelPlanNormalized, domain.TypePanelSemantics}, Produces: domain.TypeQCReport},
	{Name: StageCompile, Requires: []domain.ArtifactType{domain.TypePanelSemantics, domain.TypeLayoutTemplate}, Produces: domain.TypeRenderSpec},
	{Name: StageRender, Requires: []domain.ArtifactType{domain.TypeRenderSpec}, Produces: domain.TypeRenderResult},
	{Name: StageBlindTest, Requires: []domain.ArtifactType{domain.TypeSceneIntent, domain.TypePanelSemantics}, Produces: domain.TypeBlindTestReport},
}

// FindStage は名前でステージ表を引きます。
func FindStage(name StageName) (Stage, bool) {
	for _, s := range Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// ErrMalformedOutput は抽出器が全ティアを使い切ったことを表します。
var ErrMalformedOutput = errors.New("pipeline: モデル出力から構造化データを復元できませんでした")

// MissingPrerequisiteError は前提成果物の欠落です。呼び出し順序のバグであり、
// 再試行の対象にはなりません。
type MissingPrerequisiteError struct {
	Stage   StageName
	Missing domain.ArtifactType
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("ステージ %s の前提成果物 %s が存在しません（呼び出し順序のバグです）", e.Stage, e.Missing)
}

// StageError はステージ実行の失敗を、元の分類を保ったまま包みます。
type StageError struct {
	Stage     StageName
	SubjectID string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("サブジェクト %s のステージ %s が失敗しました: %v", e.SubjectID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
