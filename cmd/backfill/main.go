package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/parser"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/types"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

// 重建向量的维护工具。
// 逐个档案从对象存储取回解析文本，重新生成嵌入并写回Qdrant，
// 用于embedding模型升级或向量库数据丢失后的回填。
const (
	concurrency        = 5
	batchSize          = 20
	batchPauseInterval = 5 * time.Second
)

type profileRef struct {
	Identifier     string
	ParsedTextPath string
}

func main() {
	var configPath string
	var kindFlag string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVar(&kindFlag, "kind", "all", "Profile kind to backfill: candidate, requirement or all")
	pflag.Parse()

	logFile, err := os.Create("backfill.log")
	if err != nil {
		log.Fatalf("创建日志文件失败: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	runID := uuid.New().String()
	log.Printf("回填任务启动 run_id=%s kind=%s", runID, kindFlag)

	ctx := context.Background()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()

	if storageManager.MySQL == nil || storageManager.Qdrant == nil || storageManager.MinIO == nil {
		log.Fatal("回填依赖 MySQL、Qdrant 与 MinIO，请检查配置")
	}

	embedder, err := parser.NewAliyunEmbedder(cfg.Embedding.APIKey, cfg.Embedding)
	if err != nil {
		log.Fatalf("初始化embedder失败: %v", err)
	}

	kinds := []types.ProfileKind{}
	switch kindFlag {
	case "candidate":
		kinds = append(kinds, types.KindCandidateProfile)
	case "requirement":
		kinds = append(kinds, types.KindRequirementProfile)
	case "all":
		kinds = append(kinds, types.KindCandidateProfile, types.KindRequirementProfile)
	default:
		log.Fatalf("未知的kind参数: %s", kindFlag)
	}

	for _, kind := range kinds {
		refs, err := listProfilesToBackfill(ctx, storageManager, kind)
		if err != nil {
			log.Fatalf("获取待回填档案列表失败 (%s): %v", kind, err)
		}
		log.Printf("类别 %s 共找到 %d 个档案需要回填", kind, len(refs))
		processKind(ctx, storageManager, embedder, cfg, kind, refs)
	}

	log.Printf("回填任务完成 run_id=%s", runID)
}

// listProfilesToBackfill 列出指定类别下所有已有解析文本的档案
func listProfilesToBackfill(ctx context.Context, storageManager *storage.Storage, kind types.ProfileKind) ([]profileRef, error) {
	var refs []profileRef

	var query string
	if kind == types.KindCandidateProfile {
		query = `
			SELECT candidate_id AS identifier, parsed_text_path
			FROM candidates
			WHERE parsed_text_path != ''
			ORDER BY candidate_id`
	} else {
		query = `
			SELECT requirement_id AS identifier, parsed_text_path
			FROM requirements
			WHERE parsed_text_path != ''
			ORDER BY requirement_id`
	}

	err := storageManager.MySQL.DB().WithContext(ctx).Raw(query).Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("查询待回填档案失败: %w", err)
	}
	return refs, nil
}

// processKind 分批并发处理一个类别下的所有档案
func processKind(ctx context.Context, storageManager *storage.Storage, embedder *parser.AliyunEmbedder, cfg *config.Config, kind types.ProfileKind, refs []profileRef) {
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < len(refs); i += batchSize {
		end := i + batchSize
		if end > len(refs) {
			end = len(refs)
		}

		currentBatch := refs[i:end]
		log.Printf("处理批次 %d-%d (%s), 共 %d 个档案", i, end-1, kind, len(currentBatch))

		for _, ref := range currentBatch {
			wg.Add(1)
			semaphore <- struct{}{}

			go func(ref profileRef) {
				defer func() {
					<-semaphore
					wg.Done()
				}()

				if err := backfillProfile(ctx, storageManager, embedder, cfg, kind, ref); err != nil {
					log.Printf("回填档案 %s (%s) 失败: %v", ref.Identifier, kind, err)
				} else {
					log.Printf("✅ 档案 %s (%s) 回填完成", ref.Identifier, kind)
				}
			}(ref)
		}

		wg.Wait()
		if end < len(refs) {
			log.Printf("批次 %d-%d 处理完成，休息%s...", i, end-1, batchPauseInterval)
			time.Sleep(batchPauseInterval)
		}
	}
}

// backfillProfile 重建单个档案的向量
func backfillProfile(ctx context.Context, storageManager *storage.Storage, embedder *parser.AliyunEmbedder, cfg *config.Config, kind types.ProfileKind, ref profileRef) error {
	text, err := storageManager.MinIO.GetParsedText(ctx, ref.ParsedTextPath)
	if err != nil {
		return fmt.Errorf("下载解析文本失败: %w", err)
	}
	if text == "" {
		return fmt.Errorf("解析文本为空")
	}

	vectors, err := embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("生成嵌入向量失败: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("嵌入返回向量数异常: %d", len(vectors))
	}
	if len(vectors[0]) != cfg.Qdrant.Dimension {
		return fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", cfg.Qdrant.Dimension, len(vectors[0]))
	}

	pointID, err := storageManager.Qdrant.UpsertProfileVector(ctx, kind, ref.Identifier, vectors[0])
	if err != nil {
		return fmt.Errorf("写入Qdrant失败: %w", err)
	}
	log.Printf("档案 %s 的向量已写入Qdrant, point_id=%s", ref.Identifier, pointID)

	// 缓存刷新失败不阻断回填
	if storageManager.Redis != nil {
		if err := storageManager.Redis.SetProfileVector(ctx, kind, ref.Identifier, vectors[0], cfg.Embedding.Model); err != nil {
			log.Printf("警告: 刷新档案 %s 的向量缓存失败: %v", ref.Identifier, err)
		}
	}

	return nil
}
