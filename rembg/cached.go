package rembg

import (
	"context"

	"github.com/chaos-io/maskbrush/util"
	"go.uber.org/zap"
)

// ResultCache 由 cache.RedisCache 实现，未命中时返回 nil, nil
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// CachedRemover 按原图 MD5 缓存抠图结果，缓存出错只记日志
type CachedRemover struct {
	next  Remover
	cache ResultCache
}

func NewCachedRemover(next Remover, cache ResultCache) *CachedRemover {
	return &CachedRemover{next: next, cache: cache}
}

func (r *CachedRemover) Remove(ctx context.Context, name string, data []byte) ([]byte, error) {
	key := util.BytesMD5(data)

	cached, err := r.cache.Get(ctx, key)
	if err != nil {
		util.Logger.Warn("failed to get cache", zap.String("key", key), zap.Error(err))
	}
	if cached != nil {
		util.Logger.Info("cache hit", zap.String("key", key))
		return cached, nil
	}

	out, err := r.next.Remove(ctx, name, data)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, out); err != nil {
		util.Logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}
