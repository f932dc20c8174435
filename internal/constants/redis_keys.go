package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ProfileModulePrefix 档案模块
	ProfileModulePrefix = "profile"
	// RequirementModulePrefix 需求模块
	RequirementModulePrefix = "requirement"
	// DocumentModulePrefix 文档模块
	DocumentModulePrefix = "document"
	// MatchModulePrefix 匹配模块
	MatchModulePrefix = "match"

	// EntityVector 向量实体
	EntityVector = "vector"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToID MD5到档案标识符的映射实体
	EntityMD5ToID = "md5_to_id"
	// EntitySession 推荐会话实体
	EntitySession = "session"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyProfileVector 候选人档案向量缓存 (HASH)
	// 格式: app:profile:vector:{identifier}
	KeyProfileVector = AppPrefix + ":" + ProfileModulePrefix + ":" + EntityVector + ":%s"

	// KeyRequirementVector 需求档案向量缓存 (HASH)
	// 格式: app:requirement:vector:{identifier}
	KeyRequirementVector = AppPrefix + ":" + RequirementModulePrefix + ":" + EntityVector + ":%s"

	// KeyDocumentMD5Set 文档MD5集合，用于快速去重 (SET)
	// 格式: app:document:dedup_set
	KeyDocumentMD5Set = AppPrefix + ":" + DocumentModulePrefix + ":" + EntityDedupSet

	// KeyDocumentMD5ToID MD5到档案标识符的映射 (STRING)
	// 格式: app:document:md5_to_id:{md5}
	KeyDocumentMD5ToID = AppPrefix + ":" + DocumentModulePrefix + ":" + EntityMD5ToID + ":%s"

	// KeyMatchSession 推荐会话缓存 (ZSET)
	// 格式: app:match:session:{requirementID}
	KeyMatchSession = AppPrefix + ":" + MatchModulePrefix + ":" + EntitySession + ":%s"

	// KeyMatchLock 推荐计算分布式锁 (STRING)
	// 格式: app:match:lock:{requirementID}
	KeyMatchLock = AppPrefix + ":" + MatchModulePrefix + ":" + EntityLock + ":%s"
)
