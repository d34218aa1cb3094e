package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
	"github.com/AvivElectis/electisSpace-sub007/internal/store"
)

// ArticleGateway 商品服务依赖的网关能力（测试用 mock 实现）
type ArticleGateway interface {
	PullArticles(ctx context.Context, storeID string) ([]domain.Article, error)
	PushArticles(ctx context.Context, storeID string, articles []domain.Article) error
	DeleteArticles(ctx context.Context, storeID string, articleIDs []string) error
}

// ArticleService 商品同步服务
// 空间(Space) -> 商品(Article) 的映射、站点全量同步、厂家侧商品的
// Redis 快照缓存和 Excel 导入导出都在这一层；网关只负责传输
type ArticleService struct {
	gateway     ArticleGateway
	spaces      repository.SpacesRepository
	kv          store.KV
	snapshotTTL time.Duration
	logger      *zap.Logger
}

// NewArticleService 创建商品服务
func NewArticleService(gateway ArticleGateway, spaces repository.SpacesRepository, kv store.KV, snapshotTTL time.Duration, logger *zap.Logger) *ArticleService {
	if snapshotTTL <= 0 {
		snapshotTTL = 5 * time.Minute
	}
	return &ArticleService{
		gateway:     gateway,
		spaces:      spaces,
		kv:          kv,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// 空间占用状态（标签上展示的 STATUS 字段值）
const (
	spaceStatusFree     = "FREE"
	spaceStatusOccupied = "OCCUPIED"
)

// ArticleFromSpace 空间 -> 商品映射
// space_code 即厂家侧 articleId；占用人、容量等进 data 自定义字段，
// 键名与租户默认 article format 对齐
func ArticleFromSpace(space *domain.Space) domain.Article {
	status := spaceStatusFree
	if space.OccupantName != "" {
		status = spaceStatusOccupied
	}
	return domain.Article{
		ArticleID:   space.SpaceCode,
		ArticleName: space.SpaceName,
		Data: map[string]string{
			"SPACE_TYPE": space.SpaceType,
			"CAPACITY":   strconv.Itoa(space.Capacity),
			"OCCUPANT":   space.OccupantName,
			"STATUS":     status,
		},
	}
}

// SyncStore 站点全量同步：库内全部空间映射为商品后整体上行
// 返回同步的商品数；站点没有空间时不发任何厂家请求
func (s *ArticleService) SyncStore(ctx context.Context, storeID string) (int, error) {
	spaces, err := s.spaces.ListAllSpaces(ctx, storeID)
	if err != nil {
		return 0, fmt.Errorf("failed to load spaces for sync: %w", err)
	}
	if len(spaces) == 0 {
		return 0, nil
	}

	articles := make([]domain.Article, 0, len(spaces))
	for _, space := range spaces {
		articles = append(articles, ArticleFromSpace(space))
	}

	if err := s.gateway.PushArticles(ctx, storeID, articles); err != nil {
		return 0, err
	}

	// 同步改变了厂家侧数据，旧快照作废
	s.dropSnapshot(ctx, storeID)

	s.logger.Info("Synced spaces to AIMS",
		zap.String("store_id", storeID),
		zap.Int("count", len(articles)),
	)
	return len(articles), nil
}

// ListArticles 取站点的厂家侧商品列表
// useCache 时先读 Redis 快照（UI 轮询不打厂家）；未命中或不用缓存则实拉，
// 拉取结果尽力写回快照（写失败只记日志）
func (s *ArticleService) ListArticles(ctx context.Context, storeID string, useCache bool) ([]domain.Article, bool, error) {
	key := articleSnapshotKey(storeID)

	if useCache && s.kv != nil {
		raw, err := s.kv.Get(ctx, key)
		if err == nil {
			var articles []domain.Article
			if err := json.Unmarshal([]byte(raw), &articles); err == nil {
				return articles, true, nil
			}
			// 快照损坏：当作未命中，走实拉覆盖
			s.logger.Warn("Corrupt article snapshot, refetching", zap.String("store_id", storeID))
		} else if err != store.ErrMiss {
			s.logger.Warn("Failed to read article snapshot", zap.String("store_id", storeID), zap.Error(err))
		}
	}

	articles, err := s.gateway.PullArticles(ctx, storeID)
	if err != nil {
		return nil, false, err
	}

	if s.kv != nil {
		if raw, err := json.Marshal(articles); err == nil {
			if err := s.kv.Set(ctx, key, string(raw), s.snapshotTTL); err != nil {
				s.logger.Warn("Failed to write article snapshot", zap.String("store_id", storeID), zap.Error(err))
			}
		}
	}
	return articles, false, nil
}

// PushArticles 直接上行一批商品（Excel 导入和 API 推送共用）
func (s *ArticleService) PushArticles(ctx context.Context, storeID string, articles []domain.Article) error {
	if err := s.gateway.PushArticles(ctx, storeID, articles); err != nil {
		return err
	}
	if len(articles) > 0 {
		s.dropSnapshot(ctx, storeID)
	}
	return nil
}

// DeleteArticles 删除厂家侧商品
func (s *ArticleService) DeleteArticles(ctx context.Context, storeID string, articleIDs []string) error {
	if err := s.gateway.DeleteArticles(ctx, storeID, articleIDs); err != nil {
		return err
	}
	if len(articleIDs) > 0 {
		s.dropSnapshot(ctx, storeID)
	}
	return nil
}

// ImportArticles 解析上传的 Excel 并整体上行，返回导入的商品数
func (s *ArticleService) ImportArticles(ctx context.Context, storeID string, fileBytes []byte) (int, error) {
	articles, err := ParseArticleImport(fileBytes)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, nil
	}
	if err := s.PushArticles(ctx, storeID, articles); err != nil {
		return 0, err
	}
	return len(articles), nil
}

// ExportArticles 实拉站点商品并生成 Excel
func (s *ArticleService) ExportArticles(ctx context.Context, storeID string) ([]byte, error) {
	articles, _, err := s.ListArticles(ctx, storeID, false)
	if err != nil {
		return nil, err
	}
	return GenerateArticleExport(articles)
}

func articleSnapshotKey(storeID string) string {
	return "aims:articles:" + storeID
}

func (s *ArticleService) dropSnapshot(ctx context.Context, storeID string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Del(ctx, articleSnapshotKey(storeID)); err != nil {
		s.logger.Warn("Failed to drop article snapshot", zap.String("store_id", storeID), zap.Error(err))
	}
}
