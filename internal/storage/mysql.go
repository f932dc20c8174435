package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/textproc"
	"talent-match-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("talent-match-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", tracing.SafeSQL(sqlStatement)),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// SkillCount 技能统计条目
type SkillCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CandidateSkillMatch 按技能查询候选人的结果行
type CandidateSkillMatch struct {
	CandidateID     string `json:"candidate_id"`
	MatchedSkills   int    `json:"matched_skills"`
	ExperienceYears int    `json:"experience_years"`
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true, // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.SkillRecord{},
		&models.CandidateRecord{},
		&models.RequirementRecord{},
		&models.CandidateSkill{},
		&models.RequirementSkill{},
		&models.MatchResult{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// UpsertSkills 按名称幂等写入技能词表并返回技能ID。
// 名称在入库前统一归一化；已存在的技能不重复插入（唯一约束 +
// ON CONFLICT DO NOTHING），随后统一查询拿到全部ID。
func (m *MySQL) UpsertSkills(ctx context.Context, tx *gorm.DB, names []string) ([]uint64, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.UpsertSkills",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("skills.count", len(names)))

	db := m.db
	if tx != nil {
		db = tx
	}

	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = textproc.NormalizeTerm(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	if len(normalized) == 0 {
		span.SetStatus(codes.Ok, "no skills to upsert")
		return nil, nil
	}

	records := make([]models.SkillRecord, len(normalized))
	for i, name := range normalized {
		records[i] = models.SkillRecord{
			Name:     name,
			Category: models.CategorizeSkill(name),
		}
	}

	err := db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&records).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("写入技能词表失败: %w", err)
	}

	// DoNothing 情况下冲突行拿不到ID，统一回查
	var stored []models.SkillRecord
	if err := db.WithContext(ctx).Where("name IN ?", normalized).Find(&stored).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("查询技能词表失败: %w", err)
	}

	ids := make([]uint64, 0, len(stored))
	for _, record := range stored {
		ids = append(ids, record.SkillID)
	}
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// SaveCandidateWithSkills 在单个事务内保存候选人主记录及其技能关联。
// 技能关联采用先清空后重挂的方式，重复执行产生相同的关联集合。
func (m *MySQL) SaveCandidateWithSkills(ctx context.Context, record *models.CandidateRecord, skillNames []string) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveCandidateWithSkills",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("candidate.id", record.CandidateID),
			attribute.Int("skills.count", len(skillNames)),
		))
	defer span.End()

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			UpdateAll: true,
		}).Omit("Skills").Create(record).Error; err != nil {
			return fmt.Errorf("保存候选人记录失败: %w", err)
		}

		skillIDs, err := m.UpsertSkills(ctx, tx, skillNames)
		if err != nil {
			return err
		}

		// 清空旧关联再重建
		if err := tx.Where("candidate_id = ?", record.CandidateID).
			Delete(&models.CandidateSkill{}).Error; err != nil {
			return fmt.Errorf("清理候选人技能关联失败: %w", err)
		}
		if len(skillIDs) == 0 {
			return nil
		}
		links := make([]models.CandidateSkill, len(skillIDs))
		for i, skillID := range skillIDs {
			links[i] = models.CandidateSkill{CandidateID: record.CandidateID, SkillID: skillID}
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("写入候选人技能关联失败: %w", err)
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// SaveRequirementWithSkills 在单个事务内保存需求主记录及其技能关联。
func (m *MySQL) SaveRequirementWithSkills(ctx context.Context, record *models.RequirementRecord, skillNames []string) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveRequirementWithSkills",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("requirement.id", record.RequirementID),
			attribute.Int("skills.count", len(skillNames)),
		))
	defer span.End()

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "requirement_id"}},
			UpdateAll: true,
		}).Omit("Skills").Create(record).Error; err != nil {
			return fmt.Errorf("保存需求记录失败: %w", err)
		}

		skillIDs, err := m.UpsertSkills(ctx, tx, skillNames)
		if err != nil {
			return err
		}

		if err := tx.Where("requirement_id = ?", record.RequirementID).
			Delete(&models.RequirementSkill{}).Error; err != nil {
			return fmt.Errorf("清理需求技能关联失败: %w", err)
		}
		if len(skillIDs) == 0 {
			return nil
		}
		links := make([]models.RequirementSkill, len(skillIDs))
		for i, skillID := range skillIDs {
			links[i] = models.RequirementSkill{RequirementID: record.RequirementID, SkillID: skillID}
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("写入需求技能关联失败: %w", err)
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetCandidateByID 获取候选人记录及其技能
func (m *MySQL) GetCandidateByID(ctx context.Context, candidateID string) (*models.CandidateRecord, error) {
	var record models.CandidateRecord
	err := m.db.WithContext(ctx).Preload("Skills").
		Where("candidate_id = ?", candidateID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询候选人失败: %w", err)
	}
	return &record, nil
}

// GetRequirementByID 获取需求记录及其技能
func (m *MySQL) GetRequirementByID(ctx context.Context, requirementID string) (*models.RequirementRecord, error) {
	var record models.RequirementRecord
	err := m.db.WithContext(ctx).Preload("Skills").
		Where("requirement_id = ?", requirementID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("查询需求失败: %w", err)
	}
	return &record, nil
}

// ListCandidateIDs 返回全部候选人ID
func (m *MySQL) ListCandidateIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := m.db.WithContext(ctx).Model(&models.CandidateRecord{}).
		Pluck("candidate_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询候选人列表失败: %w", err)
	}
	return ids, nil
}

// FindCandidatesBySkills 按技能名查找候选人。
// 返回至少命中 minMatch 个技能的候选人，按命中数降序、经验年限降序排列。
func (m *MySQL) FindCandidatesBySkills(ctx context.Context, skillNames []string, minMatch, limit int) ([]CandidateSkillMatch, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.FindCandidatesBySkills",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("skills.count", len(skillNames))))
	defer span.End()

	if len(skillNames) == 0 {
		span.SetStatus(codes.Ok, "no skills given")
		return nil, nil
	}
	if minMatch <= 0 {
		minMatch = 1
	}
	if limit <= 0 {
		limit = 50
	}

	normalized := make([]string, 0, len(skillNames))
	for _, name := range skillNames {
		if name = textproc.NormalizeTerm(name); name != "" {
			normalized = append(normalized, name)
		}
	}

	var rows []CandidateSkillMatch
	err := m.db.WithContext(ctx).
		Table("candidate_skills AS cs").
		Select("cs.candidate_id AS candidate_id, COUNT(DISTINCT s.skill_id) AS matched_skills, c.experience_years AS experience_years").
		Joins("JOIN skills s ON s.skill_id = cs.skill_id").
		Joins("JOIN candidates c ON c.candidate_id = cs.candidate_id").
		Where("s.name IN ?", normalized).
		Group("cs.candidate_id, c.experience_years").
		Having("COUNT(DISTINCT s.skill_id) >= ?", minMatch).
		Order("matched_skills DESC, experience_years DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("按技能查询候选人失败: %w", err)
	}

	span.SetAttributes(attribute.Int("result.count", len(rows)))
	span.SetStatus(codes.Ok, "")
	return rows, nil
}

// SaveMatchResults 批量写入一次推荐会话的匹配结果
func (m *MySQL) SaveMatchResults(ctx context.Context, results []models.MatchResult) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SaveMatchResults",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("batch.size", len(results))))
	defer span.End()

	if len(results) == 0 {
		span.SetStatus(codes.Ok, "no results to insert")
		return nil
	}

	if err := m.db.WithContext(ctx).Create(&results).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("写入匹配结果失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetMatchHistory 查询某需求的历史匹配结果，按时间倒序
func (m *MySQL) GetMatchHistory(ctx context.Context, requirementID string, limit int) ([]models.MatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []models.MatchResult
	err := m.db.WithContext(ctx).
		Where("requirement_id = ?", requirementID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("查询匹配历史失败: %w", err)
	}
	return results, nil
}

// TopSkills 统计被引用次数最多的技能
func (m *MySQL) TopSkills(ctx context.Context, limit int) ([]SkillCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []SkillCount
	err := m.db.WithContext(ctx).
		Table("candidate_skills AS cs").
		Select("s.name AS name, COUNT(*) AS count").
		Joins("JOIN skills s ON s.skill_id = cs.skill_id").
		Group("s.name").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计技能失败: %w", err)
	}
	return rows, nil
}

// CountProfiles 返回候选人与需求的总数
func (m *MySQL) CountProfiles(ctx context.Context) (candidates int64, requirements int64, err error) {
	if err = m.db.WithContext(ctx).Model(&models.CandidateRecord{}).Count(&candidates).Error; err != nil {
		return 0, 0, fmt.Errorf("统计候选人数量失败: %w", err)
	}
	if err = m.db.WithContext(ctx).Model(&models.RequirementRecord{}).Count(&requirements).Error; err != nil {
		return 0, 0, fmt.Errorf("统计需求数量失败: %w", err)
	}
	return candidates, requirements, nil
}

// DeleteCandidate 删除候选人记录及其技能关联
func (m *MySQL) DeleteCandidate(ctx context.Context, candidateID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", candidateID).
			Delete(&models.CandidateSkill{}).Error; err != nil {
			return fmt.Errorf("删除候选人技能关联失败: %w", err)
		}
		if err := tx.Where("candidate_id = ?", candidateID).
			Delete(&models.CandidateRecord{}).Error; err != nil {
			return fmt.Errorf("删除候选人记录失败: %w", err)
		}
		return nil
	})
}
