package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IssueSeverity 一致性问题严重程度
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityMajor    IssueSeverity = "major"
	SeverityMinor    IssueSeverity = "minor"
)

// ConsistencyIssue 一致性问题
type ConsistencyIssue struct {
	ChapterNumber int           `json:"chapterNumber"`
	Type          string        `json:"type"`
	Severity      IssueSeverity `json:"severity"`
	Description   string        `json:"description"`
	Suggestion    string        `json:"suggestion,omitempty"`
}

// HasCritical 是否存在 critical 级问题
func HasCritical(issues []ConsistencyIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ReportBody 一致性报告正文
type ReportBody struct {
	Issues         []ConsistencyIssue `json:"issues"`
	NarrativeScore int                `json:"narrativeScore"`
	StyleScore     int                `json:"styleScore"`
	FactualScore   int                `json:"factualScore"`
	Summary        string             `json:"summary"`
}

// ConsistencyReport 全书一致性报告，仅追加
type ConsistencyReport struct {
	ID           string                         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string                         `json:"project_id" gorm:"type:uuid;index;not null"`
	Report       datatypes.JSONType[ReportBody] `json:"report" gorm:"type:jsonb"`
	OverallScore int                            `json:"overall_score"`
	CreatedAt    time.Time                      `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (ConsistencyReport) TableName() string {
	return "consistency_reports"
}

// NewConsistencyReport 创建一致性报告
func NewConsistencyReport(projectID string, body ReportBody, overall int) *ConsistencyReport {
	return &ConsistencyReport{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Report:       datatypes.NewJSONType(body),
		OverallScore: ClampScore(overall),
		CreatedAt:    time.Now(),
	}
}

// Body 返回报告正文
func (r *ConsistencyReport) Body() ReportBody {
	return r.Report.Data()
}

// ClampScore 分数限制在 0-100
func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
