// Package workflow は設定からパイプライン一式を組み立てる合成ルートです。
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	imageKit "github.com/shouni/gemini-image-kit/pkg/adapters"
	"github.com/shouni/go-ai-client/v2/pkg/ai/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"google.golang.org/genai"

	"github.com/shouni/go-storyboard-kit/pkg/artifact"
	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/genclient"
	"github.com/shouni/go-storyboard-kit/pkg/parser"
	"github.com/shouni/go-storyboard-kit/pkg/pipeline"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

const (
	defaultGeminiTemperature = float32(0.2)
	defaultCacheExpiration   = 30 * time.Minute
	cacheCleanupInterval     = 1 * time.Hour
	defaultCacheTTL          = 1 * time.Hour
)

// ManagerArgs は Manager の組み立てに必要な材料です。nil のフィールドは
// Config を基にデフォルト実装が補われます。
type ManagerArgs struct {
	Config     config.Config
	HTTPClient httpkit.ClientInterface
	Store      artifact.Store
	Builder    prompts.PromptBuilder
}

// Manager はワークフローの構成要素を保持し、実行窓口を提供します。
type Manager struct {
	cfg     config.Config
	store   artifact.Store
	client  *genclient.Client
	catalog *config.CatalogProvider
	runner  *pipeline.Runner
}

// New は設定を基に全コラボレータを初期化した Manager を返します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GeminiAPIKey は必須です")
	}

	aiClient, err := initializeAIClient(ctx, args.Config.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	httpClient := args.HTTPClient
	if httpClient == nil {
		httpClient = httpkit.New(args.Config.HTTPTimeout)
	}

	imageAdapter, err := initializeImageAdapter(httpClient, aiClient, args.Config)
	if err != nil {
		return nil, err
	}

	client := genclient.New(
		genclient.NewGeminiTextTransport(aiClient),
		genclient.NewGeminiImageTransport(imageAdapter, args.Config.AspectRatio),
		genclient.WithModels(args.Config.GeminiModel, args.Config.GeminiImageModel),
		genclient.WithMaxRetries(args.Config.MaxRetries),
		genclient.WithCallTimeout(args.Config.CallTimeout),
	)

	builder := args.Builder
	if builder == nil {
		builder, err = prompts.NewTextPromptBuilder()
		if err != nil {
			return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
		}
	}

	store := args.Store
	if store == nil {
		store, err = artifact.OpenSQLite(ctx, args.Config.StorePath)
		if err != nil {
			return nil, fmt.Errorf("成果物ストアの初期化に失敗しました: %w", err)
		}
	}

	catalog, err := config.NewCatalogProvider(args.Config.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("レイアウトカタログの初期化に失敗しました: %w", err)
	}

	extractor := parser.NewExtractor(client, args.Config.RepairModel, args.Config.RepairAttempts)

	runner, err := pipeline.NewRunner(store, client, extractor, builder, catalog, args.Config)
	if err != nil {
		catalog.Close()
		return nil, err
	}

	return &Manager{
		cfg:     args.Config,
		store:   store,
		client:  client,
		catalog: catalog,
		runner:  runner,
	}, nil
}

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializeImageAdapter は参照画像キャッシュ付きの画像生成アダプターを組み立てます。
func initializeImageAdapter(httpClient httpkit.ClientInterface, aiClient gemini.GenerativeModel, cfg config.Config) (genclient.PanelImageAdapter, error) {
	imgCache := cache.New(defaultCacheExpiration, cacheCleanupInterval)
	core := imageKit.NewGeminiImageCore(httpClient, imgCache, defaultCacheTTL)

	adapter, err := imageKit.NewGeminiImageAdapter(core, aiClient, cfg.GeminiImageModel, cfg.StyleSuffix)
	if err != nil {
		return nil, fmt.Errorf("画像アダプターの初期化に失敗しました: %w", err)
	}
	return adapter, nil
}

// Runner はパイプライン実行体を返します。
func (m *Manager) Runner() *pipeline.Runner {
	return m.runner
}

// Store は成果物ストアを返します。
func (m *Manager) Store() artifact.Store {
	return m.store
}

// Client は回復性クライアントを返します。ブレーカーの観測や手動リセットに使います。
func (m *Manager) Client() *genclient.Client {
	return m.client
}

// Config は組み立て時の設定を返します。
func (m *Manager) Config() config.Config {
	return m.cfg
}

// Close はカタログ監視などの背景リソースを解放します。
func (m *Manager) Close() error {
	return m.catalog.Close()
}
