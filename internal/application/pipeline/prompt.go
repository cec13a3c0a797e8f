package pipeline

import (
	"strings"
)

const (
	DefaultPreamble        = "Write a creative short story."
	DefaultContextSentence = "Create an imaginative story based on this image."
)

// PromptTemplate 故事生成提示词模板
type PromptTemplate struct {
	Preamble       string
	DefaultContext string
}

// Compose 组合提示词：前言 + 图片描述 + 附加上下文 + "Story:" 提示
// 用户提示为空白时使用默认上下文
func (t PromptTemplate) Compose(caption, prompt string) string {
	preamble := t.Preamble
	if preamble == "" {
		preamble = DefaultPreamble
	}
	extra := prompt
	if strings.TrimSpace(extra) == "" {
		extra = t.DefaultContext
		if extra == "" {
			extra = DefaultContextSentence
		}
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nImage Description: ")
	b.WriteString(caption)
	b.WriteString("\nAdditional Context: ")
	b.WriteString(extra)
	b.WriteString("\n\nStory:")
	return b.String()
}

// StripPrompt 删除生成文本中出现的提示词并去掉首尾空白
// 删除会反复进行直到不再出现，所以结果再次调用不会变化
func StripPrompt(generated, prompt string) string {
	out := generated
	if prompt != "" {
		for strings.Contains(out, prompt) {
			out = strings.ReplaceAll(out, prompt, "")
		}
	}
	return strings.TrimSpace(out)
}
