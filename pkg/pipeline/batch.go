package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ProgressSink はバッチ実行の進捗通知先です。実装はCLI側が持ちます。
type ProgressSink interface {
	StageCompleted(subject Subject, stage StageName)
	SubjectFinished(subject Subject, err error)
}

// SubjectResult は1サブジェクト分の実行結果です。Err はステージ失敗の分類
// （StageError とその中身）をそのまま保持します。
type SubjectResult struct {
	Subject Subject
	Err     error
}

// RunBatch は複数サブジェクトを並列実行します。1件の失敗でバッチ全体は
// 止めず、結果に記録して続行します。中断はコンテキストの取り消しだけです。
func (r *Runner) RunBatch(ctx context.Context, subjects []Subject, sink ProgressSink, workers int) ([]SubjectResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]SubjectResult, len(subjects))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	// エンドポイント保護のためのペーシング。interval 0 なら制限なしで動くのだ。
	var limiter *rate.Limiter
	if r.cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.cfg.RateInterval), 2)
	}

	for i, subject := range subjects {
		i, subject := i, subject
		results[i].Subject = subject

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			if limiter != nil {
				if err := limiter.Wait(egCtx); err != nil {
					results[i].Err = err
					return err
				}
			}

			err := r.RunPipeline(egCtx, subject, func(stage StageName) {
				if sink != nil {
					sink.StageCompleted(subject, stage)
				}
			})
			results[i].Err = err
			if sink != nil {
				sink.SubjectFinished(subject, err)
			}
			if err != nil {
				slog.Error("サブジェクトの実行に失敗しました", "subject", subject.ID, "error", err)
			}

			// ステージ失敗はバッチを道連れにしません。取り消しだけを伝播します。
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
