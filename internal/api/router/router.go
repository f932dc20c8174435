package router

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"talent-match-go/internal/api/handler"
	"talent-match-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, profileHandler *handler.ProfileHandler, matchHandler *handler.MatchHandler) {
	api := h.Group("/api/v1")

	api.POST("/candidates/upload", func(c context.Context, ctx *app.RequestContext) {
		handleDocumentUpload(c, ctx, profileHandler, types.KindCandidateProfile)
	})

	api.POST("/requirements/upload", func(c context.Context, ctx *app.RequestContext) {
		handleDocumentUpload(c, ctx, profileHandler, types.KindRequirementProfile)
	})

	api.GET("/candidates/:candidate_id", func(c context.Context, ctx *app.RequestContext) {
		candidateID := ctx.Param("candidate_id")
		profile, err := profileHandler.GetCandidate(c, candidateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "候选人不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, profile)
	})

	api.DELETE("/candidates/:candidate_id", func(c context.Context, ctx *app.RequestContext) {
		candidateID := ctx.Param("candidate_id")
		if err := profileHandler.DeleteCandidate(c, candidateID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "候选人不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "deleted"})
	})

	api.GET("/requirements/:requirement_id", func(c context.Context, ctx *app.RequestContext) {
		requirementID := ctx.Param("requirement_id")
		profile, err := profileHandler.GetRequirement(c, requirementID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "需求不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, profile)
	})

	api.GET("/requirements/:requirement_id/recommendations", func(c context.Context, ctx *app.RequestContext) {
		requirementID := ctx.Param("requirement_id")
		topN := intQuery(ctx, "top_n", 0)

		resp, err := matchHandler.RecommendCandidates(c, requirementID, topN)
		if err != nil {
			switch {
			case errors.Is(err, handler.ErrRequirementNotFound):
				ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
			case errors.Is(err, handler.ErrMatchInProgress):
				ctx.JSON(consts.StatusConflict, utils.H{"error": err.Error()})
			default:
				ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			}
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/requirements/:requirement_id/matches", func(c context.Context, ctx *app.RequestContext) {
		requirementID := ctx.Param("requirement_id")
		limit := intQuery(ctx, "limit", 50)

		entries, err := matchHandler.GetMatchHistory(c, requirementID, limit)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"requirement_id": requirementID, "matches": entries})
	})

	api.GET("/candidates/search/by-skills", func(c context.Context, ctx *app.RequestContext) {
		raw := ctx.Query("skills")
		if raw == "" {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "skills 参数不能为空"})
			return
		}
		var skills []string
		for _, s := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				skills = append(skills, trimmed)
			}
		}
		minMatch := intQuery(ctx, "min_match", 1)
		limit := intQuery(ctx, "limit", 20)

		results, err := matchHandler.SearchCandidatesBySkills(c, skills, minMatch, limit)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"results": results})
	})

	api.GET("/stats", func(c context.Context, ctx *app.RequestContext) {
		limit := intQuery(ctx, "top_skills", 20)
		stats, err := matchHandler.GetStats(c, limit)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, stats)
	})

	// 添加健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

// handleDocumentUpload 处理两类档案文档的multipart上传
func handleDocumentUpload(c context.Context, ctx *app.RequestContext, profileHandler *handler.ProfileHandler, kind types.ProfileKind) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	identifier := ctx.PostForm("identifier")
	if identifier == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "identifier 不能为空"})
		return
	}
	displayName := ctx.PostForm("display_name")
	sourceChannel := ctx.PostForm("source_channel")
	if sourceChannel == "" {
		sourceChannel = "web_upload" // 默认值
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	resp, err := profileHandler.HandleDocumentUpload(
		c,
		kind,
		identifier,
		file,
		fileHeader.Size,
		fileHeader.Filename,
		displayName,
		sourceChannel,
	)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	ctx.JSON(consts.StatusOK, resp)
}

// intQuery 解析整数查询参数，缺失或非法时返回默认值
func intQuery(ctx *app.RequestContext, key string, fallback int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
