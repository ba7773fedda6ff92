package dto

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ghostwriter-ai-api/internal/domain/entity"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

// BindProjectID 从 URI 绑定项目 ID
func BindProjectID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("pid"))
}

// BindChapterNumber 从 URI 绑定章节号
func BindChapterNumber(c *gin.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		return 0, apperrors.Newf(apperrors.CodeValidationFailed, "invalid chapter number %q", c.Param("n"))
	}
	return n, nil
}

// IssueRequest 一致性问题
type IssueRequest struct {
	ChapterNumber int    `json:"chapter_number"`
	Type          string `json:"type" binding:"max=100"`
	Severity      string `json:"severity" binding:"omitempty,oneof=critical major minor"`
	Description   string `json:"description" binding:"required,max=4000"`
	Suggestion    string `json:"suggestion" binding:"max=4000"`
}

// ToEntity 转换为领域对象，章节号缺省为路径中的章节
func (r IssueRequest) ToEntity(n int) entity.ConsistencyIssue {
	number := r.ChapterNumber
	if number == 0 {
		number = n
	}
	return entity.ConsistencyIssue{
		ChapterNumber: number,
		Type:          r.Type,
		Severity:      entity.IssueSeverity(r.Severity),
		Description:   r.Description,
		Suggestion:    r.Suggestion,
	}
}

// ApplySuggestionRequest 应用修改建议请求
type ApplySuggestionRequest struct {
	Issue   IssueRequest `json:"issue" binding:"required"`
	Preview bool         `json:"preview"`
}

// UpdateContentRequest 手动编辑章节请求
type UpdateContentRequest struct {
	Content string `json:"content" binding:"required"`
}
