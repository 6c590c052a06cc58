package constants

import "time"

// Redis 键格式
const (
	// KeySummaryCache 摘要缓存 (STRING)
	// 格式: summary:{md5(text)}
	KeySummaryCache = "summary:%s"

	// DefaultSummaryTTL 未配置时的摘要缓存时长
	DefaultSummaryTTL = 24 * time.Hour
)

// 消息事件
const (
	// EventAnalysisCompleted 分析完成事件名，同时作为默认路由键
	EventAnalysisCompleted = "analysis.completed"
)
