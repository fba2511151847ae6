package domain

import (
	"encoding/json"
	"time"
)

// ArtifactType はパイプラインの各ステージが生み出す成果物の種別です。
type ArtifactType string

const (
	TypeSceneIntent         ArtifactType = "scene_intent"
	TypePanelPlan           ArtifactType = "panel_plan"
	TypePanelPlanNormalized ArtifactType = "panel_plan_normalized"
	TypeLayoutTemplate      ArtifactType = "layout_template"
	TypePanelSemantics      ArtifactType = "panel_semantics"
	TypeRenderSpec          ArtifactType = "render_spec"
	TypeRenderResult        ArtifactType = "render_result"
	TypeQCReport            ArtifactType = "qc_report"
	TypeBlindTestReport     ArtifactType = "blind_test_report"
	TypeDialogueSuggestions ArtifactType = "dialogue_suggestions"
)

// Artifact はステージ出力の不変・バージョン付きレコードです。
// 同一 (SubjectID, Type) のバージョンは 1 から欠番なく連続し、
// 一度作成されたら変更も削除もされません。
type Artifact struct {
	ID        string          `json:"id"`
	SubjectID string          `json:"subject_id"`
	Type      ArtifactType    `json:"type"`
	Version   int             `json:"version"`
	ParentID  string          `json:"parent_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// DecodePayload は Payload を指定の構造体へデコードします。
func (a *Artifact) DecodePayload(v any) error {
	return json.Unmarshal(a.Payload, v)
}

// EncodePayload は任意の構造体を Artifact の Payload 形式へ変換するヘルパーです。
func EncodePayload(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}
