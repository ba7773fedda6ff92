package node

import (
	"strings"
)

// TextAttachment 注入提示词的附加文本
type TextAttachment struct {
	Name    string
	Content string
}

// BuildAttachmentsBlock 将附加材料渲染为提示词文本块
func BuildAttachmentsBlock(title string, attachments []TextAttachment) string {
	if len(attachments) == 0 {
		return ""
	}
	lines := make([]string, 0, len(attachments)+1)
	lines = append(lines, title+":")
	for _, a := range attachments {
		name := strings.TrimSpace(a.Name)
		content := strings.TrimSpace(a.Content)
		if content == "" {
			continue
		}
		if name == "" {
			name = "Attachment"
		}
		lines = append(lines, "### "+name+"\n"+content)
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n\n")
}

// Section 标题非空内容时渲染为带标题的文本段，否则返回空串
func Section(title, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return "## " + title + "\n" + body
}

// JoinSections 拼接非空文本段
func JoinSections(sections ...string) string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}
