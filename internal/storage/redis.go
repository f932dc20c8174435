package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/constants"
	"talent-match-go/internal/tracing"
	"talent-match-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("talent-match-go/storage/redis")

// Redis操作前缀采样率配置
var redisKeySamplingRates = map[string]float64{
	"app:profile:":     0.05, // 档案向量缓存采样5%
	"app:requirement:": 0.05, // 需求向量缓存采样5%
	"app:document:":    0.1,  // 文档去重操作采样10%
	"app:match:":       0.25, // 匹配会话相关采样25%
}

// 随机数生成器
var (
	rnd      *rand.Rand
	rndMutex sync.Mutex
)

// 初始化随机数生成器
func init() {
	source := rand.NewSource(time.Now().UnixNano())
	rnd = rand.New(source)
}

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	// key为空一定不采样
	if key == "" {
		return false
	}

	// 遍历前缀采样率配置
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			// 使用线程安全的随机数
			return randFloat() < rate
		}
	}

	// 默认采样率5%
	return randFloat() < 0.05
}

// 生成0-1之间的随机数
func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	// 使用扩展的配置选项
	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,     // 默认10
		MinIdleConns: cfg.MinIdleConns, // 默认2

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,  // 默认5秒
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,  // 默认3秒
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second, // 默认3秒

		// 重试设置
		MaxRetries:      cfg.MaxRetries,                                          // 默认3次
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond, // 默认8毫秒
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond, // 默认512毫秒

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute, // 默认60分钟
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute, // 默认30分钟
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	// Ping to check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365 // 默认1年
	}
	return time.Duration(days) * 24 * time.Hour
}

// profileVectorKey 按档案类型选择向量缓存key
func profileVectorKey(kind types.ProfileKind, identifier string) string {
	if kind == types.KindRequirementProfile {
		return fmt.Sprintf(constants.KeyRequirementVector, identifier)
	}
	return fmt.Sprintf(constants.KeyProfileVector, identifier)
}

// SetProfileVector 将档案向量和模型版本存入 Redis HASH。
// 使用 HASH 可以将向量和模型版本存在同一个 key 下，便于管理。
func (r *Redis) SetProfileVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64, modelVersion string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	cacheKey := profileVectorKey(kind, identifier)

	// 将向量序列化为 JSON
	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}

	// 使用 pipeline 原子化操作
	pipe := r.Client.Pipeline()
	pipe.HSet(ctx, cacheKey, "vector", vectorJSON)
	pipe.HSet(ctx, cacheKey, "model_version", modelVersion)
	pipe.Expire(ctx, cacheKey, constants.ProfileVectorCacheDuration)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("设置档案向量缓存失败: %w", err)
	}
	return nil
}

// GetProfileVector 从 Redis HASH 中获取档案向量和模型版本。
func (r *Redis) GetProfileVector(ctx context.Context, kind types.ProfileKind, identifier string) ([]float64, string, error) {
	if r.Client == nil {
		return nil, "", fmt.Errorf("redis client is not initialized")
	}

	cacheKey := profileVectorKey(kind, identifier)

	// 使用 HMGet 一次性获取两个字段
	vals, err := r.Client.HMGet(ctx, cacheKey, "vector", "model_version").Result()
	if err != nil {
		return nil, "", err
	}

	// 检查返回结果的有效性
	if len(vals) < 2 {
		return nil, "", ErrNotFound
	}

	// 字段 "vector"
	if vals[0] == nil {
		return nil, "", fmt.Errorf("未找到档案向量缓存，identifier=%s: %w", identifier, ErrNotFound)
	}
	vectorJSON, ok := vals[0].(string)
	if !ok || vectorJSON == "" {
		return nil, "", fmt.Errorf("向量缓存格式错误")
	}
	var vector []float64
	if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
		return nil, "", fmt.Errorf("反序列化向量失败: %w", err)
	}

	// 字段 "model_version"
	if vals[1] == nil {
		return vector, "", fmt.Errorf("向量模型版本未找到")
	}
	modelVersion, ok := vals[1].(string)
	if !ok {
		return vector, "", fmt.Errorf("向量模型版本格式错误")
	}

	return vector, modelVersion, nil
}

// CheckAndAddDocumentMD5 检查并添加文档MD5到去重集合，是一个原子操作。
// 返回true表示该MD5此前已存在（重复文档）。
func (r *Redis) CheckAndAddDocumentMD5(ctx context.Context, md5Hex string) (exists bool, err error) {
	// 创建一个命名span
	ctx, span := redisTracer.Start(ctx, "Redis.CheckAndAddDocumentMD5",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// 添加属性
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.database", fmt.Sprintf("%d", r.config.DB)),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "EVAL"), // Lua脚本执行
		attribute.String("db.redis.key", constants.KeyDocumentMD5Set),
		attribute.String("db.redis.member", md5Hex),
	)

	// 验证客户端是否初始化
	if r.Client == nil {
		err = fmt.Errorf("redis client is not initialized")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	// 这里使用Redis LUA脚本进行原子检查和添加
	script := `
		local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
		redis.call('SADD', KEYS[1], ARGV[1])
		redis.call('EXPIRE', KEYS[1], ARGV[2])
		return exists
	`

	expiry := r.GetMD5ExpireDuration().Seconds()

	// 执行lua脚本
	res, err := r.Client.Eval(ctx, script, []string{constants.KeyDocumentMD5Set}, md5Hex, expiry).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("执行原子检查和添加操作失败: %w", err)
	}

	// Lua脚本返回0表示不存在，1表示存在
	existsVal, ok := res.(int64)
	if !ok {
		err := fmt.Errorf("意外的Redis返回类型: %T", res)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	exists = existsVal == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")

	return exists, nil
}

// CheckAndSetDocumentMD5 检查文档MD5是否已关联某个档案标识符；
// 不存在时原子地写入md5到标识符的映射。
// 返回 (已存在, 已关联的标识符, 错误)。
func (r *Redis) CheckAndSetDocumentMD5(ctx context.Context, md5Hex string, identifier string) (bool, string, error) {
	if r.Client == nil {
		return false, "", fmt.Errorf("redis client is not initialized")
	}

	setKey := constants.KeyDocumentMD5Set
	// 检查MD5是否存在
	exists, err := r.Client.SIsMember(ctx, setKey, md5Hex).Result()
	if err != nil {
		return false, "", fmt.Errorf("检查MD5是否存在失败: %w", err)
	}
	if exists {
		// MD5已存在，获取关联的档案标识符
		mapKey := fmt.Sprintf(constants.KeyDocumentMD5ToID, md5Hex)
		existingID, err := r.Client.Get(ctx, mapKey).Result()
		if err != nil && err != redis.Nil {
			return true, "", fmt.Errorf("获取已关联的档案标识符失败: %w", err)
		}
		return true, existingID, nil
	}
	// MD5不存在，原子地添加
	pipe := r.Client.Pipeline()
	setCmd := pipe.SAdd(ctx, setKey, md5Hex)
	mapKey := fmt.Sprintf(constants.KeyDocumentMD5ToID, md5Hex)
	setNXCmd := pipe.SetNX(ctx, mapKey, identifier, r.GetMD5ExpireDuration())
	// 确保集合本身也有过期时间
	pipe.Expire(ctx, setKey, r.GetMD5ExpireDuration())
	_, err = pipe.Exec(ctx)
	if err != nil {
		return false, "", fmt.Errorf("执行原子添加MD5操作失败: %w", err)
	}
	// 再次检查是否是自己成功设置了值
	if setCmd.Val() > 0 && setNXCmd.Val() {
		return false, "", nil // 成功设置了新的MD5
	}
	// 在极小的并发窗口中，另一个进程设置了它，重新获取
	existingID, err := r.Client.Get(ctx, mapKey).Result()
	if err != nil {
		return true, "", fmt.Errorf("获取已关联的档案标识符失败: %w", err)
	}
	return true, existingID, nil
}

// RemoveDocumentMD5 从去重集合中移除文档MD5
func (r *Redis) RemoveDocumentMD5(ctx context.Context, md5Hex string) error {
	// 创建一个命名span
	ctx, span := redisTracer.Start(ctx, "Redis.RemoveDocumentMD5",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// 添加属性
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.database", fmt.Sprintf("%d", r.config.DB)),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "SREM"),
		attribute.String("db.redis.key", constants.KeyDocumentMD5Set),
		attribute.String("db.redis.member", md5Hex),
	)

	result, err := r.Client.SRem(ctx, constants.KeyDocumentMD5Set, md5Hex).Result()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("从集合中移除MD5失败: %w", err)
	}

	span.SetAttributes(attribute.Int64("removed_count", result))
	span.SetStatus(codes.Ok, "")

	return nil
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	// 检查客户端是否已初始化
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span

	// 根据key前缀决定是否创建span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			// 设置标志位，表示不要在子span中传播，避免与redisotel hook产生的span重复
			attribute.Bool("otel.propagate_to_child", false),
		)
	}

	// 执行Get操作
	val, err := r.Client.Get(ctx, key).Result()

	// 如果span被创建，则记录结果
	if span != nil {
		if err != nil {
			// 对于key不存在的情况，不应该算作错误
			if err == redis.Nil {
				span.SetStatus(codes.Ok, "key not found")
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return "", err
		}

		span.SetAttributes(
			attribute.Bool("db.redis.key_exists", true),
			attribute.Int("db.redis.value_length", len(val)),
		)
		span.SetStatus(codes.Ok, "")
	}

	return val, nil
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	// 检查客户端是否已初始化
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span

	// 根据key前缀决定是否创建span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		span.SetAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
			attribute.Int("db.redis.value_length", len(value)),
			// 设置标志位，表示不要在子span中传播，避免与redisotel hook产生的span重复
			attribute.Bool("otel.propagate_to_child", false),
		)

		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	// 执行Set操作
	err := r.Client.Set(ctx, key, value, expiration).Err()

	// 如果span被创建，则记录结果
	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
	}

	return nil
}

// CacheMatchSession 将一次推荐会话的完整排序结果缓存到Redis的ZSET中。
// 分数直接使用最终匹配分，ZREVRANGE 即按匹配分从高到低取出。
func (r *Redis) CacheMatchSession(ctx context.Context, requirementID string, matches []*types.ScoredMatch, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	if len(matches) == 0 {
		return nil // 不缓存空结果
	}

	cacheKey := fmt.Sprintf(constants.KeyMatchSession, requirementID)

	// 使用pipeline提高性能
	pipe := r.Client.Pipeline()

	// 先删除旧的key，确保缓存是最新的
	pipe.Del(ctx, cacheKey)

	// 准备ZSET的成员
	members := make([]redis.Z, len(matches))
	for i, m := range matches {
		members[i] = redis.Z{
			Score:  m.FinalScore,
			Member: m.CandidateID,
		}
	}

	// 批量添加到ZSET
	pipe.ZAdd(ctx, cacheKey, members...)

	// 设置过期时间
	pipe.Expire(ctx, cacheKey, ttl)

	// 执行
	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedMatchSession 从Redis ZSET中获取分页的推荐会话结果。
func (r *Redis) GetCachedMatchSession(ctx context.Context, requirementID string, cursor, limit int64) (candidateIDs []string, totalCount int64, err error) {
	cacheKey := fmt.Sprintf(constants.KeyMatchSession, requirementID)

	ctx, span := redisTracer.Start(ctx, "GetCachedMatchSession", trace.WithAttributes(
		semconv.DBSystemRedis,
		attribute.String("redis.key", cacheKey),
		attribute.Int64("redis.cursor", cursor),
		attribute.Int64("redis.limit", limit),
	))
	defer span.End()

	pipe := r.Client.Pipeline()
	countCmd := pipe.ZCard(ctx, cacheKey)
	// 使用 ZRevRange 以确保按分数从高到低排序
	rangeCmd := pipe.ZRevRange(ctx, cacheKey, cursor, cursor+limit-1)
	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		return nil, 0, err
	}

	// 从 ZRevRange 获取结果
	candidateIDs, err = rangeCmd.Result()
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to get cached match session members: %w", err)
	}

	totalCount, err = countCmd.Result()
	if err != nil {
		return candidateIDs, 0, err
	}

	return candidateIDs, totalCount, nil
}

// AcquireMatchLock 尝试获取某个需求的推荐计算锁，避免并发重复计算
func (r *Redis) AcquireMatchLock(ctx context.Context, requirementID string, expiration time.Duration) (string, error) {
	return r.AcquireLock(ctx, fmt.Sprintf(constants.KeyMatchLock, requirementID), expiration)
}

// ReleaseMatchLock 释放推荐计算锁
func (r *Redis) ReleaseMatchLock(ctx context.Context, requirementID string, lockValue string) (bool, error) {
	return r.ReleaseLock(ctx, fmt.Sprintf(constants.KeyMatchLock, requirementID), lockValue)
}

// AcquireLock 尝试获取一个分布式锁
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	// 生成一个随机值作为锁的持有者标识
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	// 尝试设置一个带过期时间的key，NX保证了原子性
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		// 成功获取锁
		return lockValue, nil
	}
	// 未能获取锁
	return "", nil
}

// ReleaseLock 释放一个分布式锁，使用Lua脚本保证原子性
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	// Lua脚本: 如果key存在且值匹配，则删除key
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil // 成功释放
	}

	return false, nil // 锁不存在或不属于当前持有者
}
