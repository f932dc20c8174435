package textproc

// 本文件集中维护抽取流水线使用的固定词表。
// 语料以西班牙语为主、夹杂英语技术词汇，词表两种语言都覆盖。
// 这些列表是领域策略的一部分，测试会直接引用，调整时需同步用例。

// Stopwords 抽取时生效的停用词集合。
// 除常见虚词外，还包含时间量词与学位称谓，这些词在简历里高频出现
// 但不构成技能。
var Stopwords = map[string]struct{}{}

func init() {
	for _, w := range stopwordList {
		Stopwords[w] = struct{}{}
	}
}

var stopwordList = []string{
	// 高频虚词
	"el", "la", "de", "que", "y", "a", "en", "un", "ser", "se", "no", "haber", "por",
	"con", "su", "para", "como", "estar", "tener", "le", "lo", "todo", "pero", "más",
	"hacer", "o", "poder", "decir", "este", "ir", "otro", "ese", "si", "me", "ya",
	"ver", "porque", "dar", "cuando", "él", "muy", "sin", "vez", "mucho", "saber", "qué",
	"sobre", "mi", "alguno", "mismo", "yo", "también", "hasta", "dos", "querer",
	"entre", "así", "primero", "desde", "grande", "eso", "ni", "nos", "llegar", "pasar",
	"tiempo", "ella", "sí", "uno", "bien", "poco", "deber", "entonces", "poner",
	"cosa", "tanto", "hombre", "parecer", "nuestro", "tan", "donde", "ahora", "parte",
	"después", "vida", "quedar", "siempre", "creer", "hablar", "llevar", "dejar", "nada",
	"cada", "seguir", "menos", "nuevo", "encontrar", "algo", "solo", "hecho",
	"the", "and", "for", "with", "from", "this", "that", "have", "has",
	// 时间量词
	"año", "años", "mes", "meses", "día", "días", "year", "years",
	// 学位/头衔称谓，单独出现时不是技能
	"ing", "ingeniero", "ingeniera", "licenciado", "licenciada", "bachiller",
	"magister", "maestro", "maestra", "doctor", "doctora", "profesor", "profesora",
	"docente", "universidad",
}

// InstitutionKeywords 教育机构名称关键词，命中的命名实体不作为技能候选。
var InstitutionKeywords = []string{
	"universidad", "instituto", "colegio", "escuela", "academy",
	"college", "school", "upao", "pucp", "católica", "nacional",
}

// TriggerPhrases 上下文触发短语，其后紧跟的词组视为技能候选。
var TriggerPhrases = []string{
	"experiencia en", "conocimientos de", "conocimiento de", "dominio de", "manejo de",
	"especialista en", "experto en", "competencias en", "habilidades en",
	"trabajo con", "desarrollo de", "implementación de", "uso de",
	"aplicación de", "gestión de", "administración de", "análisis de",
	"experience in", "knowledge of", "proficiency in", "mastery of", "expertise in",
}

// connectiveWords 截断触发短语捕获的连接词。
var connectiveWords = map[string]struct{}{
	"y": {}, "e": {}, "o": {}, "u": {}, "con": {}, "para": {}, "como": {},
	"and": {}, "or": {}, "with": {},
}

// TechnicalIndicators 名词短语筛选用的技术指示词。
// 2-4 词的名词短语至少要包含其中一个词才会被保留。
var TechnicalIndicators = map[string]struct{}{
	"software": {}, "hardware": {}, "datos": {}, "data": {}, "web": {},
	"cloud": {}, "código": {}, "code": {}, "programación": {}, "programming": {},
	"sistemas": {}, "systems": {}, "redes": {}, "networks": {}, "base": {},
	"database": {}, "learning": {}, "machine": {}, "backend": {}, "frontend": {},
	"devops": {}, "api": {}, "apis": {}, "framework": {}, "frameworks": {},
	"arquitectura": {}, "architecture": {}, "seguridad": {}, "security": {},
	"ingeniería": {}, "engineering": {}, "análisis": {}, "analytics": {},
}

// TechnicalAffixes 频率分析的技术词缀启发式。
// 命中任一词缀的词，出现 2 次即接受；其余词要求 3 次。
var TechnicalAffixes = []string{
	"tech", "data", "dev", "soft", "net", "sql", "script", "ware",
	"ops", "web", "cyber", "micro", "auto", "lab", "code", "cloud",
}

// GenericNoiseWords 过于泛化、不构成具体技能的名词。
var GenericNoiseWords = map[string]struct{}{
	"trabajo": {}, "experiencia": {}, "conocimiento": {}, "conocimientos": {},
	"proyecto": {}, "proyectos": {}, "desarrollo": {}, "sistema": {},
	"project": {}, "development": {}, "system": {}, "work": {},
	"experience": {}, "knowledge": {}, "skills": {}, "habilidades": {},
}

// PersonNameBlocklist 常见人名，防止署名行进入技能候选。
var PersonNameBlocklist = map[string]struct{}{
	"juan": {}, "maría": {}, "maria": {}, "carlos": {}, "josé": {}, "jose": {},
	"luis": {}, "ana": {}, "pedro": {}, "jorge": {}, "rosa": {}, "miguel": {},
	"laura": {}, "david": {}, "elena": {}, "pablo": {}, "lucía": {}, "lucia": {},
	"diego": {}, "sofía": {}, "sofia": {}, "andrés": {}, "andres": {},
	"pérez": {}, "perez": {}, "garcía": {}, "garcia": {}, "rodríguez": {},
	"rodriguez": {}, "lópez": {}, "lopez": {}, "martínez": {}, "martinez": {},
}

// DegreeKeywords 学历行识别关键词，前缀匹配（maestr 覆盖 maestría/maestro）。
var DegreeKeywords = []string{
	"doctor", "maestr", "master", "bachiller", "licenciad", "ingenier",
	"magister", "phd", "grado",
}

// KnownLanguages 语言识别的封闭列表，仅做直接成员测试，不做模糊匹配。
var KnownLanguages = []string{
	"español", "spanish", "inglés", "english", "francés", "french",
	"alemán", "german", "italiano", "italian", "portugués", "portuguese",
	"chino", "chinese", "japonés", "japanese", "quechua",
}

// KnownCertifications 证书识别的封闭列表，直接文本匹配。
var KnownCertifications = []string{
	"aws certified", "aws solutions architect", "azure certified",
	"google certified", "gcp certified", "cisco certified", "ccna", "ccnp",
	"oracle certified", "scrum master", "pmp", "itil", "cka", "ckad",
	"comptia security+", "microsoft certified",
}

// AdvancedLevelIndicators 暗示需求为高级水平的关键词。
var AdvancedLevelIndicators = []string{
	"avanzado", "advanced", "senior", "expert", "arquitectura", "architecture",
	"microservices", "machine learning", "deep learning", "devops", "cloud",
}

// IntermediateLevelIndicators 暗示需求为中级水平的关键词。
var IntermediateLevelIndicators = []string{
	"intermedio", "intermediate", "desarrollo", "development", "frameworks",
	"apis", "databases", "web development",
}

// UniversityKeywords 教育分量使用的高校关键词。
var UniversityKeywords = []string{
	"universidad", "university", "institute", "instituto",
}

// SectionHeaderKeywords 需求文档中主题区块的标题关键词。
var SectionHeaderKeywords = []string{
	"unidad", "tema", "capítulo", "módulo", "unit", "topic", "module", "chapter",
}

// PrerequisiteKeywords 先修要求区块的关键词。
var PrerequisiteKeywords = []string{
	"prerrequisito", "prerrequisitos", "requisito", "requisitos",
	"prerequisite", "prerequisites", "requirement", "requirements",
}

// FallbackTechnicalVocabulary 降级模式（语言模型不可用）下的封闭技能词表。
// 仅在无法运行五遍启发式检测时使用，保证抽取有确定性的保底结果。
var FallbackTechnicalVocabulary = []string{
	// 编程语言
	"python", "java", "javascript", "typescript", "c++", "c#", "php", "ruby",
	"go", "rust", "scala", "kotlin", "swift",
	// 框架
	"react", "angular", "vue", "django", "flask", "spring", "laravel", "rails",
	"express", "fastapi",
	// 数据库
	"mysql", "postgresql", "mongodb", "redis", "oracle", "sqlite", "cassandra",
	"dynamodb",
	// 工具与平台
	"git", "docker", "kubernetes", "jenkins", "aws", "azure", "gcp", "linux",
	"nginx",
	// 机器学习
	"machine learning", "deep learning", "tensorflow", "pytorch",
	"scikit-learn", "pandas", "numpy",
}
