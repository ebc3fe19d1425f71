package agents

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zulandar/takehome/internal/assignment"
	"github.com/zulandar/takehome/internal/pipeline"
)

//go:embed templates/portal.html.tmpl
var portalFS embed.FS

var portalTemplate = template.Must(template.ParseFS(portalFS, "templates/portal.html.tmpl"))

// portalCopy is the fixed prose around the assignments.
type portalCopy struct {
	Apply           string
	Homepage        string
	Choice          string
	SiteInvite      string
	NorthStarTitle  string
	NorthStarBody   string
	CultureTitle    string
	CultureBody     string
	CulturePoints   []culturePoint
	AIGuidanceTitle string
	AIGuidanceBody  string
	AIGuidanceNote  string
	AssignmentsLead string
	ApplyTitle      string
	ApplyBody       string
	Mission         string
	Requirements    string
	Deliverables    string
	Datasets        string
	StarterCode     string
	Discussion      string
	NoItems         string
	NoDatasets      string
	NoStarter       string
	StarterDefault  string
	AssignmentN     string
}

type culturePoint struct {
	Label string
	Text  string
}

var koreanCopy = portalCopy{
	Apply:          "지원하기",
	Homepage:       "회사 홈페이지",
	Choice:         "준비된 과제 중 수행 가능한 항목을 자유롭게 선택하여 제출하셔도 됩니다.",
	SiteInvite:     "%s이 제공하는 다양한 여행 상품과 서비스를 공식 홈페이지에서 확인해 주세요.",
	NorthStarTitle: `The North Star: "여행 경험의 완전한 연결"`,
	NorthStarBody: "%s은 모든 여행자들이 더 쉽게 취향에 맞는 여행을 계획하고 경험할 수 있는 세상을 만들어 갑니다. " +
		"비전을 이루기 위해 가장 창의적이고 혁신적인 방식으로 여행의 경험을 변화시켜 나갈 인재분들을 모시고 있습니다.",
	CultureTitle: "Product Engineer 개발 문화",
	CultureBody: "AI 시대, 개발자의 역할은 한 분야에만 머무르지 않습니다. Product Engineer는 고객의 문제를 발견하고, " +
		"해결책이 실제로 효과를 발휘할 때까지 끝까지 책임지는 개발자입니다.",
	CulturePoints: []culturePoint{
		{"고객 중심 문제 정의", "무엇을 만들 것인가보다 왜 만들어야 하는가를 먼저 고민하고, 문제 해결의 방향을 스스로 설정합니다."},
		{"경계 없는 문제 해결", "다양한 기술 영역의 경계를 넘나들며, 문제를 가장 빠르게 해결할 수 있는 방법을 스스로 찾아 실행합니다."},
		{"민첩하게 실행, 개선", "복잡한 절차를 줄여 빠르게 결정하고, 짧은 피드백 주기로 지속적으로 제품을 개선합니다."},
		{"끝까지 책임지는 태도", "릴리즈가 끝이 아니라, 고객의 문제가 사라질 때까지 개선과 운영을 이어갑니다."},
	},
	AIGuidanceTitle: "AI 도구 활용 안내",
	AIGuidanceBody:  "본 과제는 GitHub Copilot, ChatGPT 등 AI 도구를 자유롭게 활용하여 해결할 수 있습니다.",
	AIGuidanceNote:  "단, 제출 시 README.md 파일에 어떤 도구를 어떻게 활용하여 문제 해결에 도움을 받았는지 구체적으로 서술해 주셔야 합니다.",
	AssignmentsLead: "실무형 과제를 확인하고 데이터/스타터 코드를 내려받아 시작해 보세요.",
	ApplyTitle:      "지원 안내",
	ApplyBody:       "가장 자신 있는 과제를 선택하여 결과물, 구현 전략, 테스트 및 AI 도구 활용 내역을 정리해 제출해 주세요.",
	Mission:         "✔️ 과제 설명",
	Requirements:    "⚙️ 기술 요구사항",
	Deliverables:    "📦 제출물",
	Datasets:        "📂 데이터셋",
	StarterCode:     "🧰 스타터 코드",
	Discussion:      "💬 심층 토론 질문",
	NoItems:         "정보 없음",
	NoDatasets:      "제공된 데이터셋이 없습니다.",
	NoStarter:       "제공된 스타터 코드가 없습니다.",
	StarterDefault:  "핵심 로직 구현을 위한 기본 구조를 제공합니다.",
	AssignmentN:     "과제 %d",
}

var englishCopy = portalCopy{
	Apply:           "Apply",
	Homepage:        "Company website",
	Choice:          "Pick any of the prepared assignments that you can complete and submit it.",
	SiteInvite:      "Explore the travel products and services %s offers on the official website.",
	NorthStarTitle:  `The North Star: "Connecting every travel experience"`,
	NorthStarBody:   "%s builds a world where every traveler can plan and enjoy trips that fit their taste. We are looking for people who will change how travel is experienced.",
	CultureTitle:    "Product Engineering culture",
	CultureBody:     "A Product Engineer finds the customer's problem and owns the solution until it really works.",
	CulturePoints: []culturePoint{
		{"Customer-first problem framing", "Ask why before what, and set the direction of the solution yourself."},
		{"Problem solving without borders", "Cross technical boundaries to find the fastest way to solve the problem."},
		{"Ship and improve quickly", "Decide fast and improve the product in short feedback loops."},
		{"Ownership to the end", "A release is not the finish line; keep improving until the problem is gone."},
	},
	AIGuidanceTitle: "Using AI tools",
	AIGuidanceBody:  "You may use AI tools such as GitHub Copilot or ChatGPT to solve these assignments.",
	AIGuidanceNote:  "Describe in README.md which tools you used and how they helped.",
	AssignmentsLead: "Review the practical assignments and download the data and starter code to get going.",
	ApplyTitle:      "How to apply",
	ApplyBody:       "Choose the assignment you are most confident in and submit the result, your approach, tests and AI usage notes.",
	Mission:         "✔️ Mission",
	Requirements:    "⚙️ Technical requirements",
	Deliverables:    "📦 Deliverables",
	Datasets:        "📂 Datasets",
	StarterCode:     "🧰 Starter code",
	Discussion:      "💬 Discussion questions",
	NoItems:         "Not provided",
	NoDatasets:      "No datasets are provided.",
	NoStarter:       "No starter code is provided.",
	StarterDefault:  "A skeleton for the core logic.",
	AssignmentN:     "Assignment %d",
}

type portalPage struct {
	Lang        string
	Title       string
	HeroRole    string
	Company     string
	SiteURL     string
	CareersURL  string
	StylesHref  string
	Copy        portalCopy
	Assignments []portalAssignment
}

type portalAssignment struct {
	TabID        string
	Active       bool
	Title        string
	Summary      string
	Mission      string
	Requirements []string
	Deliverables []string
	Datasets     []portalDataset
	Starter      portalStarter
	Discussion   []string
}

type portalDataset struct {
	Name        string
	Href        string
	Meta        string
	Description string
}

type portalStarter struct {
	Href        string
	Filename    string
	Language    string
	Description string
}

func webStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StageWeb,
		Name:     "Web Builder",
		Icon:     "🌐",
		Role:     "Portal Creation",
		Progress: "Building the portal page...",
		Policy:   pipeline.Fatal,
		Requires: []string{pipeline.AssignmentsFile},
		Run: func(ctx context.Context, job *pipeline.Job) error {
			doc, err := assignment.Load(job.Layout.Assignments())
			if err != nil {
				return err
			}
			html, err := RenderPortal(doc, job.Request.Language, d.Config.Portal.SiteURL, d.Config.Portal.CareersURL)
			if err != nil {
				return err
			}
			if err := writeFile(job.Layout.IndexHTML(), html); err != nil {
				return err
			}
			job.Printf("--- Web page generated at %s ---", pipeline.IndexFile)
			return nil
		},
	}
}

// RenderPortal renders index.html for doc. Links are relative to the job
// directory; the starter code link points at the file the starter stage
// writes, whether or not it exists yet.
func RenderPortal(doc *assignment.Document, lang, siteURL, careersURL string) (string, error) {
	tag := assignment.LanguageTag(lang)
	cp := englishCopy
	if assignment.IsKorean(lang) {
		cp = koreanCopy
	}
	company := doc.Company
	cp.SiteInvite = fmt.Sprintf(cp.SiteInvite, company)
	cp.NorthStarBody = fmt.Sprintf(cp.NorthStarBody, company)

	htmlLang := "en"
	if tag != language.Und {
		htmlLang = tag.String()
	}

	title := cases.Title(tag)
	heroRole := strings.Join(strings.Fields(doc.JobLevel+" "+doc.JobRole), " ")
	heroRole = title.String(heroRole)

	page := portalPage{
		Lang:       htmlLang,
		Title:      strings.TrimSpace(company + " Take-Home Portal"),
		HeroRole:   heroRole,
		Company:    company,
		SiteURL:    siteURL,
		CareersURL: careersURL,
		StylesHref: pipeline.StylesFile,
		Copy:       cp,
	}

	for i, a := range doc.Assignments {
		n := i + 1
		pa := portalAssignment{
			TabID:        fmt.Sprintf("assignment-tab-%d", n),
			Active:       i == 0,
			Title:        a.Title,
			Summary:      a.Summary,
			Mission:      a.Mission,
			Requirements: nonEmpty(a.Requirements),
			Deliverables: nonEmpty(a.Deliverables),
			Discussion:   nonEmpty(a.DiscussionQuestions),
		}
		if pa.Title == "" {
			pa.Title = fmt.Sprintf(cp.AssignmentN, n)
		}
		for _, ds := range a.Datasets {
			pd := portalDataset{Name: ds.Name, Href: ds.DownloadHref, Description: ds.Description}
			if pd.Name == "" {
				pd.Name = ds.Filename
			}
			if pd.Name == "" {
				pd.Name = "Dataset"
			}
			var meta []string
			if ds.Format != "" {
				meta = append(meta, strings.ToUpper(ds.Format))
			}
			if ds.Records > 0 {
				meta = append(meta, fmt.Sprintf("%d rows", Records(ds)))
			}
			if ds.Filename != "" {
				meta = append(meta, ds.Filename)
			}
			pd.Meta = strings.Join(meta, " · ")
			pa.Datasets = append(pa.Datasets, pd)
		}

		lang, filename := assignment.StarterFile(a, n)
		pa.Starter = portalStarter{
			Href:        path.Join(pipeline.StarterCodeDir, filename),
			Filename:    filename,
			Language:    strings.ToUpper(lang),
			Description: a.StarterCode.Description,
		}
		if pa.Starter.Description == "" {
			pa.Starter.Description = cp.StarterDefault
		}
		page.Assignments = append(page.Assignments, pa)
	}

	var buf bytes.Buffer
	if err := portalTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("render portal: %w", err)
	}
	return buf.String(), nil
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
