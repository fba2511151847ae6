package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storyboard-kit/pkg/config"
	"github.com/shouni/go-storyboard-kit/pkg/workflow"
)

// opts は全サブコマンドで共有するフラグ値の置き場なのだ。
var opts struct {
	// --- ソース入力関連 ---
	Text      string
	InputFile string
	SubjectID string

	// --- 出力・永続化 ---
	OutputDir   string
	StorePath   string
	CatalogPath string

	// --- AIモデル・挙動設定 ---
	AIModel        string
	ImageModel     string
	HTTPTimeout    time.Duration
	Workers        int
	ExcludeLayouts []string
}

// rootCmd は ap-storyboard-go のエントリポイントなのだ。
var rootCmd = &cobra.Command{
	Use:   "ap-storyboard-go",
	Short: "物語テキストからストーリーボード（コマ割り・レイアウト・ページ画像）を生成するのだ。",
	Long: `物語のシーンを解析して意図を抽出し、コマ割りの正規化、レイアウト決定、
ページ画像のレンダリングまでを一気通貫で実行するのだ。
各工程の成果物は追記専用ストアに世代管理されるのだよ。`,
	SilenceUsage: true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags() {
	rootCmd.PersistentFlags().StringVarP(&opts.SubjectID, "subject", "s", "", "成果物を束ねるサブジェクトIDなのだ（未指定なら自動採番）。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "output", "生成物の保存先ディレクトリ（ローカル）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.StorePath, "store", config.DefaultStorePath, "成果物ストア（SQLite）のパスなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.CatalogPath, "catalog", "", "レイアウトカタログYAMLのパスなのだ（空なら同梱デフォルト）。")
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultGeminiModel, "使用する Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultGeminiImageModel, "使用する画像生成モデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// requireAPIKeyE は、生成エンドポイントを叩くコマンドの実行前チェックなのだ。
func requireAPIKeyE(cmd *cobra.Command, args []string) error {
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// loadConfig は環境変数ベースの設定にフラグの上書きを反映するのだ。
func loadConfig() config.Config {
	cfg := config.LoadConfig()
	cfg.GeminiModel = opts.AIModel
	cfg.GeminiImageModel = opts.ImageModel
	cfg.HTTPTimeout = opts.HTTPTimeout
	if rootCmd.PersistentFlags().Changed("store") {
		cfg.StorePath = opts.StorePath
	}
	if opts.CatalogPath != "" {
		cfg.CatalogPath = opts.CatalogPath
	}
	return cfg
}

// newManager は設定からワークフロー一式を組み立てるのだ。
func newManager(cmd *cobra.Command) (*workflow.Manager, error) {
	manager, err := workflow.New(cmd.Context(), workflow.ManagerArgs{Config: loadConfig()})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗したのだ: %w", err)
	}
	return manager, nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	addAppFlags()
	rootCmd.AddCommand(
		buildCmd,
		batchCmd,
		dialogueCmd,
		exportCmd,
		statusCmd,
		catalogCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
