package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"

	"investment-digest/internal/digest"
)

const promptTemplate = `你是一位專業的投資分析師助理。請分析以下投資 Podcast / YouTube 影片的逐字稿，產出結構化的投資重點摘要。

影片標題：%s

逐字稿：
%s

請用繁體中文產出以下格式的 Markdown 摘要：

## 核心觀點
（3-5個主要投資觀點）

## 提及標的
（股票、ETF、產業、市場等，若無則標注「本集未提及具體標的」）

## 關鍵數據
（重要數字、指標、時間點）

## 投資機會
（值得關注的機會）

## 風險提示
（提到的風險或注意事項）

## 個人行動建議
（根據內容，投資人可以採取的具體行動）
`

// Summarizer turns an episode transcript into the six-section summary.
type Summarizer struct {
	complete func(ctx context.Context, prompt string) (string, error)
}

// New builds a Summarizer backed by the given LLM client.
func New(client *llm.Client) *Summarizer {
	return &Summarizer{
		complete: func(ctx context.Context, prompt string) (string, error) {
			return client.Complete(ctx, "", prompt)
		},
	}
}

// Summarize sends the transcript to the model and parses the sections out of
// the response. The transcript is capped to the configured rune budget before
// it enters the prompt. A response missing any required section is rejected.
func (s *Summarizer) Summarize(ctx context.Context, title, transcript string) (Sections, error) {
	excerpt := digest.TruncateRunes(transcript, digest.Cfg.MaxSummaryChars, "")
	prompt := fmt.Sprintf(promptTemplate, strings.TrimSpace(title), excerpt)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, &digest.SummarizationError{Err: err}
	}

	sections := parseSections(stripFences(raw))
	if missing := sections.Missing(); len(missing) > 0 {
		return nil, &digest.SummarizationError{Missing: missing}
	}
	return sections, nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseSections splits model output on ## headings. Heading text is matched
// against the required keys after trimming decoration the model sometimes
// adds (trailing colons, bold markers).
func parseSections(raw string) Sections {
	sections := make(Sections)
	var current string
	var buf strings.Builder
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(buf.String())
		}
		buf.Reset()
	}
	for _, line := range strings.Split(raw, "\n") {
		if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "## "); ok {
			flush()
			current = canonicalKey(heading)
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	flush()
	return sections
}

// canonicalKey maps a model heading to a required section key, or returns the
// cleaned heading verbatim when it matches none.
func canonicalKey(heading string) string {
	cleaned := strings.Trim(strings.TrimSpace(heading), "*:：")
	for _, key := range SectionKeys {
		if cleaned == key || strings.Contains(cleaned, key) {
			return key
		}
	}
	return cleaned
}
