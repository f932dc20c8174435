package textproc

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"talent-match-go/internal/constants"
	"talent-match-go/internal/types"
)

// AttributeExtractor 属性抽取器，把单个文档的非结构化文本转换为
// 结构化的 EntityProfile。
// 每个子抽取器都有确定性的正则/关键词保底路径：语言模型缺失只会
// 降低召回，不会让抽取失败。畸形输入（空文本）产出空值档案而非错误。
type AttributeExtractor struct {
	detector *TermDetector
}

// NewAttributeExtractor 创建属性抽取器。model 为 nil 时进入降级模式，
// 技能抽取回退到封闭词表匹配。
func NewAttributeExtractor(model LanguageModel) *AttributeExtractor {
	return &AttributeExtractor{
		detector: NewTermDetector(model),
	}
}

// Degraded 报告抽取器是否处于降级模式。
func (e *AttributeExtractor) Degraded() bool {
	return e.detector.Degraded()
}

// ExtractCandidateProfile 从候选人文档抽取档案。
// identifier 为外部分配的标识符，抽取前已确定。
func (e *AttributeExtractor) ExtractCandidateProfile(ctx context.Context, identifier, text string) *types.EntityProfile {
	profile := &types.EntityProfile{
		Identifier: identifier,
		Kind:       types.KindCandidateProfile,
	}
	if strings.TrimSpace(text) == "" {
		return profile
	}

	profile.Skills = e.extractSkills(ctx, text)
	profile.ExperienceYears = ExtractExperienceYears(text)
	profile.Education = ExtractEducationLines(text)
	profile.Languages = ExtractLanguages(text)
	profile.Certifications = ExtractCertifications(text)
	return profile
}

// ExtractRequirementProfile 从需求文档（岗位/课程要求）抽取档案。
func (e *AttributeExtractor) ExtractRequirementProfile(ctx context.Context, identifier, text string) *types.EntityProfile {
	profile := &types.EntityProfile{
		Identifier: identifier,
		Kind:       types.KindRequirementProfile,
	}
	if strings.TrimSpace(text) == "" {
		return profile
	}

	// tools_required 与技能走同一条检测路径，结果并入 Skills
	profile.Skills = e.extractSkills(ctx, text)
	profile.Topics = ExtractTopics(text)
	profile.Prerequisites = ExtractPrerequisites(text)
	return profile
}

// extractSkills 运行五遍检测加过滤；降级模式走封闭词表保底。
// 两条路径都过一遍规则链，保证 Skills 集合的不变式
// （无空串、单字符、纯数字、停用词条目）。
func (e *AttributeExtractor) extractSkills(ctx context.Context, text string) []string {
	if e.detector.Degraded() {
		return FilterCandidates(fallbackSkills(text))
	}
	return FilterCandidates(e.detector.Detect(ctx, text))
}

// fallbackPatterns 降级模式下的附加技能正则。
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(html5?|css3?|sass|scss)\b`),
	regexp.MustCompile(`\b(api|rest|graphql|microservices)\b`),
	regexp.MustCompile(`\b(agile|scrum|kanban)\b`),
	regexp.MustCompile(`\b(devops|ci/cd)\b`),
}

// fallbackSkills 封闭词表 + 固定正则的保底技能抽取。
func fallbackSkills(text string) map[string]struct{} {
	folded := Fold(text)
	found := make(map[string]struct{})
	for _, skill := range FallbackTechnicalVocabulary {
		if strings.Contains(folded, skill) {
			found[skill] = struct{}{}
		}
	}
	for _, pattern := range fallbackPatterns {
		for _, match := range pattern.FindAllString(folded, -1) {
			found[match] = struct{}{}
		}
	}
	return found
}

// ---------- 经验年限 ----------

// experiencePatterns 显式经验年限表述，按最大匹配取值。
var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*años?\s+de\s+experiencia`),
	regexp.MustCompile(`experiencia\s+de\s+(\d+)\s*años?`),
	regexp.MustCompile(`(\d+)\+?\s*años?\s+en`),
	regexp.MustCompile(`(\d+)\s*years?\s+of\s+experience`),
	regexp.MustCompile(`experience:\s*(\d+)\s*years?`),
}

// yearPattern 四位年份。
var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// ExtractExperienceYears 抽取经验年限。
// 优先匹配显式的"N 年经验"表述（多处匹配取最大值）；找不到时
// 退而求其次，用文中最早与最晚四位年份的跨度推断，并钳制在
// 合理上限内。两条路径都落空时返回 0，0 表示"未知"。
func ExtractExperienceYears(text string) int {
	folded := Fold(text)

	maxYears := 0
	for _, pattern := range experiencePatterns {
		for _, match := range pattern.FindAllStringSubmatch(folded, -1) {
			if years, err := strconv.Atoi(match[1]); err == nil && years > maxYears {
				maxYears = years
			}
		}
	}
	if maxYears > 0 {
		if maxYears > constants.MaxPlausibleExperienceYears {
			return constants.MaxPlausibleExperienceYears
		}
		return maxYears
	}

	// 回退：年份跨度推断
	years := yearPattern.FindAllString(folded, -1)
	if len(years) < 2 {
		return 0
	}
	minYear, maxYear := 9999, 0
	for _, y := range years {
		n, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		if n < minYear {
			minYear = n
		}
		if n > maxYear {
			maxYear = n
		}
	}
	span := maxYear - minYear
	if span < 0 {
		return 0
	}
	if span > constants.MaxPlausibleExperienceYears {
		return constants.MaxPlausibleExperienceYears
	}
	return span
}

// ---------- 教育经历 ----------

// ExtractEducationLines 抽取包含学位关键词的行，保持文档顺序，
// 允许重复，最多保留 MaxEducationLines 行。
func ExtractEducationLines(text string) []string {
	var out []string
	for _, line := range SplitLines(text) {
		if containsAny(Fold(line), DegreeKeywords) {
			out = append(out, line)
			if len(out) == constants.MaxEducationLines {
				break
			}
		}
	}
	return out
}

// ---------- 语言与证书 ----------

// ExtractLanguages 对封闭语言列表做直接成员测试，不做模糊匹配。
func ExtractLanguages(text string) []string {
	return matchClosedList(text, KnownLanguages)
}

// ExtractCertifications 对封闭证书列表做直接文本匹配。
func ExtractCertifications(text string) []string {
	return matchClosedList(text, KnownCertifications)
}

// matchClosedList 返回折叠文本中出现的列表成员，排序去重。
func matchClosedList(text string, list []string) []string {
	folded := Fold(text)
	found := make(map[string]struct{})
	for _, entry := range list {
		if strings.Contains(folded, entry) {
			found[entry] = struct{}{}
		}
	}
	out := make([]string, 0, len(found))
	for entry := range found {
		out = append(out, entry)
	}
	sort.Strings(out)
	return out
}

// ---------- 需求档案专用 ----------

// ExtractTopics 抽取主题列表：区块标题行（unidad/tema/module 等）
// 冒号后的内容；冒号后为空时取下一行。最多保留 MaxCourseTopics 条。
func ExtractTopics(text string) []string {
	lines := SplitLines(text)
	var out []string
	for i, line := range lines {
		if !containsAny(Fold(line), SectionHeaderKeywords) {
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 && strings.TrimSpace(line[idx+1:]) != "" {
			out = append(out, strings.TrimSpace(line[idx+1:]))
		} else if i+1 < len(lines) {
			out = append(out, lines[i+1])
		}
		if len(out) == constants.MaxCourseTopics {
			break
		}
	}
	return out
}

// ExtractPrerequisites 抽取先修要求：关键词行冒号后的内容；
// 冒号后为空时取下一行。
func ExtractPrerequisites(text string) []string {
	lines := SplitLines(text)
	var out []string
	for i, line := range lines {
		folded := Fold(line)
		if !containsAny(folded, PrerequisiteKeywords) {
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 && strings.TrimSpace(line[idx+1:]) != "" {
			out = append(out, strings.TrimSpace(line[idx+1:]))
			continue
		}
		if i+1 < len(lines) {
			out = append(out, lines[i+1])
		}
	}
	return out
}
