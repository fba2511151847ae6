package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義
const (
	DefaultLocationID       = "asia-northeast1"
	DefaultGeminiModel      = "gemini-3-flash-preview"
	DefaultGeminiImageModel = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultCallTimeout      = 90 * time.Second
	DefaultMaxRetries       = 3
	DefaultRepairAttempts   = 2
	DefaultRateInterval     = 10 * time.Second
	DefaultStorePath        = "output/artifacts.db"
	DefaultAspectRatio      = "3:4"
	DefaultStyleSuffix      = "Japanese anime style, official art, cel-shaded, clean line art, high-quality manga coloring, expressive eyes, vibrant colors, cinematic lighting, masterpiece, ultra-detailed, flat shading, clear character features, no 3D effect, high resolution"
	DefaultNegativePrompt   = "deformed faces, mismatched eyes, cross-eyed, low-quality faces, blurry facial features, melting faces, extra limbs, merged panels, messy lineart, distorted anatomy"
)

// Config は各ステージとクライアントを動作させるための基本設定です。
type Config struct {
	// --- AI Model Settings ---
	GeminiModel      string
	GeminiImageModel string
	RepairModel      string // 抽出ティア4の修復依頼に使うモデル

	// --- Google AI (Gemini API) Settings ---
	GeminiAPIKey string

	// --- Vertex AI Settings ---
	ProjectID  string // Google Cloud Project ID
	LocationID string // 例: "us-central1"

	// --- Persistence & Catalog ---
	StorePath   string // SQLite成果物ストアのパス
	CatalogPath string // レイアウトカタログYAML。空なら同梱デフォルト

	// --- Generation Settings ---
	StyleSuffix    string
	NegativePrompt string
	AspectRatio    string
	RateInterval   time.Duration

	// --- Timeout & Retries ---
	HTTPTimeout    time.Duration
	CallTimeout    time.Duration
	MaxRetries     int
	RepairAttempts int
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		LocationID:       DefaultLocationID,
		GeminiModel:      DefaultGeminiModel,
		GeminiImageModel: DefaultGeminiImageModel,
		RepairModel:      DefaultGeminiModel,
		StorePath:        DefaultStorePath,
		StyleSuffix:      DefaultStyleSuffix,
		NegativePrompt:   DefaultNegativePrompt,
		AspectRatio:      DefaultAspectRatio,
		RateInterval:     DefaultRateInterval,
		HTTPTimeout:      DefaultHTTPTimeout,
		CallTimeout:      DefaultCallTimeout,
		MaxRetries:       DefaultMaxRetries,
		RepairAttempts:   DefaultRepairAttempts,
	}
}

// LoadConfig は環境変数を反映した設定を返します。
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.ProjectID = envutil.GetEnv("PROJECT_ID", "")
	cfg.LocationID = envutil.GetEnv("REGION", DefaultLocationID)
	cfg.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", "")
	cfg.GeminiModel = envutil.GetEnv("GEMINI_MODEL", DefaultGeminiModel)
	cfg.GeminiImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultGeminiImageModel)
	cfg.RepairModel = envutil.GetEnv("REPAIR_GEMINI_MODEL", cfg.GeminiModel)
	cfg.StorePath = envutil.GetEnv("ARTIFACT_STORE_PATH", DefaultStorePath)
	cfg.CatalogPath = envutil.GetEnv("LAYOUT_CATALOG_PATH", "")
	return cfg
}
