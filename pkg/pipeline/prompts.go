package pipeline

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/soypete/autopilot/pkg/article"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

var structures = map[article.ContentType]string{
	article.ContentListicle: `- Short introduction that promises the list.
- One h2 per list item, numbered in the heading, each with two or three paragraphs.
- Closing section with a summary.`,
	article.ContentHowTo: `- Introduction explaining what the reader will achieve and what they need.
- One h2 per step, in order, with concrete instructions.
- A section with common mistakes.
- Closing section with next steps.`,
	article.ContentGuide: `- Introduction that frames the problem.
- Four to six h2 sections that each cover one aspect in depth.
- Closing section with a practical conclusion.`,
	article.ContentProductReview: `- Introduction with the verdict in one sentence.
- Sections for design, use, performance, and price versus value.
- A pros and cons list.
- Final verdict and who the product is for.`,
	article.ContentComparison: `- Introduction naming the options being compared.
- A comparison table with the main criteria.
- One h2 per criterion explaining the differences.
- A conclusion that says which option suits which reader.`,
	article.ContentProductList: `- Introduction explaining how the products were chosen.
- One h2 per product with strengths, weaknesses and who it suits.
- A buying guide section with the criteria that matter.
- Conclusion naming the best overall choice.`,
}

func structureFor(ct article.ContentType) string {
	if s, ok := structures[ct]; ok {
		return s
	}
	return structures[article.ContentGuide]
}

func faqHeading(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "nl") {
		return "Veelgestelde vragen"
	}
	return "Frequently asked questions"
}

func relatedLead(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "nl") {
		return "Lees ook:"
	}
	return "Read also:"
}

func productCTA(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "nl") {
		return "Bekijk prijs"
	}
	return "Check price"
}
