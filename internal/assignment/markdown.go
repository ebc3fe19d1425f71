package assignment

import (
	"fmt"
	"strings"
)

type mdSection struct {
	ko, en string
	list   func(Assignment) []string
	text   func(Assignment) string
}

var mdSections = []mdSection{
	{ko: "요약", en: "Summary", text: func(a Assignment) string { return a.Summary }},
	{ko: "핵심 요구사항", en: "Requirements", list: func(a Assignment) []string { return a.Requirements }},
	{ko: "제출물", en: "Deliverables", list: func(a Assignment) []string { return a.Deliverables }},
	{ko: "AI 활용 가이드라인", en: "AI Guidelines", list: func(a Assignment) []string { return a.AIGuidelines }},
	{ko: "평가 기준", en: "Evaluation", list: func(a Assignment) []string { return a.Evaluation }},
	{ko: "예상 소요 시간", en: "Timeline", text: func(a Assignment) string { return a.Timeline }},
	{ko: "심층 토론 질문", en: "Discussion Questions", list: func(a Assignment) []string { return a.DiscussionQuestions }},
}

// Markdown renders a human-readable preview of doc. Section headings are
// Korean when lang is Korean and English otherwise.
func Markdown(doc *Document, lang string) string {
	ko := IsKorean(lang)
	var lines []string

	if doc.Company != "" || doc.JobRole != "" {
		suffix := "Take-Home Assignments"
		if ko {
			suffix = "테이크홈 과제"
		}
		lines = append(lines, strings.Join(strings.Fields(fmt.Sprintf("# %s %s %s %s", doc.Company, doc.JobLevel, doc.JobRole, suffix)), " "), "")
	}

	for i, a := range doc.Assignments {
		title := a.Title
		if title == "" {
			title = fmt.Sprintf("Assignment %d", i+1)
			if ko {
				title = "과제"
			}
		}
		lines = append(lines, "## "+title)
		if a.Mission != "" {
			lines = append(lines, a.Mission, "")
		}
		for _, sec := range mdSections {
			header := sec.en
			if ko {
				header = sec.ko
			}
			switch {
			case sec.list != nil:
				items := sec.list(a)
				if len(items) == 0 {
					continue
				}
				lines = append(lines, "### "+header)
				for _, item := range items {
					lines = append(lines, "- "+item)
				}
			default:
				v := sec.text(a)
				if v == "" {
					continue
				}
				lines = append(lines, "### "+header, v)
			}
			lines = append(lines, "")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
