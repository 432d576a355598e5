package audit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// rule is one accessibility check. Check returns the failing nodes and
// the number of elements it examined (for pass element counts).
type rule struct {
	ID          string
	Impact      Impact
	Description string
	Help        string
	HelpURL     string
	Check       func(doc *goquery.Document) ([]NodeResult, int)
}

var rules []rule

var langRE = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]+)*$`)

func init() {
	rules = []rule{
		{
			ID:          "document-title",
			Impact:      ImpactSerious,
			Description: "Ensures each document has a non-empty <title> element",
			Help:        "Documents must have a title to aid in navigation",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/document-title",
			Check:       checkDocumentTitle,
		},
		{
			ID:          "html-has-lang",
			Impact:      ImpactSerious,
			Description: "Ensures every HTML document has a lang attribute",
			Help:        "The <html> element must have a lang attribute",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/html-has-lang",
			Check:       checkHTMLHasLang,
		},
		{
			ID:          "html-lang-valid",
			Impact:      ImpactSerious,
			Description: "Ensures the lang attribute of the <html> element has a valid value",
			Help:        "The <html> element must have a valid value for the lang attribute",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/html-lang-valid",
			Check:       checkHTMLLangValid,
		},
		{
			ID:          "image-alt",
			Impact:      ImpactCritical,
			Description: "Ensures <img> elements have alternate text or a role of none or presentation",
			Help:        "Images must have alternate text",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/image-alt",
			Check:       checkImageAlt,
		},
		{
			ID:          "input-image-alt",
			Impact:      ImpactCritical,
			Description: "Ensures <input type=\"image\"> elements have alternate text",
			Help:        "Image buttons must have alternate text",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/input-image-alt",
			Check:       checkInputImageAlt,
		},
		{
			ID:          "area-alt",
			Impact:      ImpactCritical,
			Description: "Ensures <area> elements of image maps have alternate text",
			Help:        "Active <area> elements must have alternate text",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/area-alt",
			Check:       checkAreaAlt,
		},
		{
			ID:          "label",
			Impact:      ImpactCritical,
			Description: "Ensures every form element has a label",
			Help:        "Form elements must have labels",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/label",
			Check:       checkLabel,
		},
		{
			ID:          "button-name",
			Impact:      ImpactCritical,
			Description: "Ensures buttons have discernible text",
			Help:        "Buttons must have discernible text",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/button-name",
			Check:       checkButtonName,
		},
		{
			ID:          "link-name",
			Impact:      ImpactSerious,
			Description: "Ensures links have discernible text",
			Help:        "Links must have discernible text",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/link-name",
			Check:       checkLinkName,
		},
		{
			ID:          "frame-title",
			Impact:      ImpactSerious,
			Description: "Ensures <iframe> and <frame> elements have an accessible name",
			Help:        "Frames must have an accessible name",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/frame-title",
			Check:       checkFrameTitle,
		},
		{
			ID:          "meta-viewport",
			Impact:      ImpactCritical,
			Description: "Ensures <meta name=\"viewport\"> does not disable text scaling and zooming",
			Help:        "Zooming and scaling must not be disabled",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/meta-viewport",
			Check:       checkMetaViewport,
		},
		{
			ID:          "aria-roles",
			Impact:      ImpactSerious,
			Description: "Ensures all elements with a role attribute use a valid value",
			Help:        "ARIA roles used must conform to valid values",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/aria-roles",
			Check:       checkAriaRoles,
		},
		{
			ID:          "tabindex",
			Impact:      ImpactSerious,
			Description: "Ensures tabindex attribute values are not greater than 0",
			Help:        "Elements should not have tabindex greater than zero",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/tabindex",
			Check:       checkTabindex,
		},
		{
			ID:          "duplicate-id",
			Impact:      ImpactMinor,
			Description: "Ensures every id attribute value is unique",
			Help:        "id attribute values must be unique",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/duplicate-id",
			Check:       checkDuplicateID,
		},
		{
			ID:          "empty-heading",
			Impact:      ImpactMinor,
			Description: "Ensures headings have discernible text",
			Help:        "Headings should not be empty",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/empty-heading",
			Check:       checkEmptyHeading,
		},
		{
			ID:          "heading-order",
			Impact:      ImpactModerate,
			Description: "Ensures the order of headings is semantically correct",
			Help:        "Heading levels should only increase by one",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/heading-order",
			Check:       checkHeadingOrder,
		},
		{
			ID:          "list",
			Impact:      ImpactSerious,
			Description: "Ensures that lists are structured correctly",
			Help:        "<ul> and <ol> must only directly contain <li>, <script> or <template> elements",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/list",
			Check:       checkListStructure,
		},
		{
			ID:          "marquee",
			Impact:      ImpactSerious,
			Description: "Ensures <marquee> elements are not used",
			Help:        "<marquee> elements are deprecated and must not be used",
			HelpURL:     "https://dequeuniversity.com/rules/axe/4.10/marquee",
			Check:       checkMarquee,
		},
	}
}

// Evaluate runs every rule against the parsed document and splits the
// outcome into violations and passes. It never returns an error: a rule
// that cannot apply simply passes with zero elements.
func Evaluate(doc *goquery.Document) *Result {
	result := &Result{
		Engine:     "native",
		Violations: []Violation{},
		Passes:     []Pass{},
	}
	for _, r := range rules {
		nodes, checked := r.Check(doc)
		if len(nodes) > 0 {
			result.Violations = append(result.Violations, Violation{
				RuleID:      r.ID,
				Impact:      r.Impact,
				Description: r.Description,
				Help:        r.Help,
				HelpURL:     r.HelpURL,
				Nodes:       nodes,
			})
			continue
		}
		result.Passes = append(result.Passes, Pass{
			RuleID:      r.ID,
			Description: r.Description,
			Elements:    checked,
		})
	}
	return result
}

// RuleCount returns the number of rules the native engine evaluates.
func RuleCount() int { return len(rules) }

// ---------------------------------------------------------------------------
// Checks
// ---------------------------------------------------------------------------

func checkDocumentTitle(doc *goquery.Document) ([]NodeResult, int) {
	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		return []NodeResult{{
			Target:         "html",
			FailureSummary: "Fix: the document does not have a non-empty <title> element.",
		}}, 1
	}
	return nil, 1
}

func checkHTMLHasLang(doc *goquery.Document) ([]NodeResult, int) {
	html := doc.Find("html").First()
	if lang, ok := html.Attr("lang"); !ok || strings.TrimSpace(lang) == "" {
		return []NodeResult{{
			Target:         "html",
			FailureSummary: "Fix: the <html> element does not have a lang attribute.",
		}}, 1
	}
	return nil, 1
}

func checkHTMLLangValid(doc *goquery.Document) ([]NodeResult, int) {
	lang, ok := doc.Find("html").First().Attr("lang")
	lang = strings.TrimSpace(lang)
	if !ok || lang == "" {
		// html-has-lang already covers the missing case.
		return nil, 0
	}
	if !langRE.MatchString(lang) {
		return []NodeResult{{
			Target:         "html",
			FailureSummary: fmt.Sprintf("Fix: the lang attribute value %q is not a valid BCP 47 language tag.", lang),
		}}, 1
	}
	return nil, 1
}

func checkImageAlt(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("img")
	sel.Each(func(_ int, s *goquery.Selection) {
		if isDecorative(s) {
			return
		}
		if _, ok := s.Attr("alt"); ok {
			return
		}
		if hasAriaName(doc, s) {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix any of the following: the image has no alt attribute, aria-label or aria-labelledby.",
		})
	})
	return nodes, sel.Length()
}

func checkInputImageAlt(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find(`input[type="image"]`)
	sel.Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			return
		}
		if hasAriaName(doc, s) {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix: the image button has no alt attribute or ARIA name.",
		})
	})
	return nodes, sel.Length()
}

func checkAreaAlt(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("area[href]")
	sel.Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			return
		}
		if hasAriaName(doc, s) {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix: the <area> element has no alt attribute or ARIA name.",
		})
	})
	return nodes, sel.Length()
}

// labelableSelector matches form controls that need a label. Buttons and
// hidden inputs name themselves or are invisible to assistive tech.
const labelableSelector = `select, textarea, input:not([type="hidden"]):not([type="button"]):not([type="submit"]):not([type="reset"]):not([type="image"])`

func checkLabel(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find(labelableSelector)
	sel.Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) || hasLabel(doc, s) {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix any of the following: the form element has no associated <label>, aria-label, aria-labelledby or title.",
		})
	})
	return nodes, sel.Length()
}

func checkButtonName(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find(`button, [role="button"]`)
	sel.Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) || accessibleName(doc, s) != "" {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix any of the following: the button has no inner text, aria-label, aria-labelledby or title.",
		})
	})
	return nodes, sel.Length()
}

func checkLinkName(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("a[href]")
	sel.Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) || accessibleName(doc, s) != "" {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix any of the following: the link has no inner text, image alt text, aria-label, aria-labelledby or title.",
		})
	})
	return nodes, sel.Length()
}

func checkFrameTitle(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("iframe, frame")
	sel.Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) {
			return
		}
		if title, ok := s.Attr("title"); ok && strings.TrimSpace(title) != "" {
			return
		}
		if hasAriaName(doc, s) {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix: the frame has no title attribute or ARIA name.",
		})
	})
	return nodes, sel.Length()
}

var maxScaleRE = regexp.MustCompile(`maximum-scale\s*=\s*([0-9.]+)`)

func checkMetaViewport(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find(`meta[name="viewport"]`)
	sel.Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		lowered := strings.ToLower(content)
		bad := strings.Contains(strings.ReplaceAll(lowered, " ", ""), "user-scalable=no")
		if m := maxScaleRE.FindStringSubmatch(lowered); m != nil {
			if scale, err := strconv.ParseFloat(m[1], 64); err == nil && scale < 2 {
				bad = true
			}
		}
		if bad {
			nodes = append(nodes, NodeResult{
				Target:         locate(s),
				HTML:           outerHTML(s),
				FailureSummary: "Fix any of the following: user-scalable=no disables zooming; maximum-scale below 2 restricts scaling.",
			})
		}
	})
	return nodes, sel.Length()
}

func checkAriaRoles(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("[role]")
	sel.Each(func(_ int, s *goquery.Selection) {
		role, _ := s.Attr("role")
		if strings.TrimSpace(role) == "" || IsValidRole(role) {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: fmt.Sprintf("Fix: the role value %q is not a valid ARIA role.", role),
		})
	})
	return nodes, sel.Length()
}

func checkTabindex(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("[tabindex]")
	sel.Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("tabindex")
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: fmt.Sprintf("Fix: tabindex=%d forces an unnatural focus order; use 0 or a negative value.", n),
		})
	})
	return nodes, sel.Length()
}

func checkDuplicateID(doc *goquery.Document) ([]NodeResult, int) {
	seen := make(map[string]int)
	sel := doc.Find("[id]")
	sel.Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if id = strings.TrimSpace(id); id != "" {
			seen[id]++
		}
	})
	var nodes []NodeResult
	for id, count := range seen {
		if count > 1 {
			nodes = append(nodes, NodeResult{
				Target:         "#" + id,
				FailureSummary: fmt.Sprintf("Fix: the id %q appears %d times; ids must be unique.", id, count),
			})
		}
	}
	return nodes, sel.Length()
}

const headingSelector = "h1, h2, h3, h4, h5, h6"

func checkEmptyHeading(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find(headingSelector)
	sel.Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) || accessibleName(doc, s) != "" {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix: the heading has no content visible to assistive technology.",
		})
	})
	return nodes, sel.Length()
}

func checkHeadingOrder(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	prev := 0
	sel := doc.Find(headingSelector)
	sel.Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		if prev != 0 && level > prev+1 {
			nodes = append(nodes, NodeResult{
				Target:         locate(s),
				HTML:           outerHTML(s),
				FailureSummary: fmt.Sprintf("Fix: heading level jumps from h%d to h%d.", prev, level),
			})
		}
		prev = level
	})
	return nodes, sel.Length()
}

func checkListStructure(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("ul, ol")
	sel.Each(func(_ int, s *goquery.Selection) {
		bad := s.ChildrenFiltered("*").FilterFunction(func(_ int, c *goquery.Selection) bool {
			switch goquery.NodeName(c) {
			case "li", "script", "template":
				return false
			}
			return true
		})
		if bad.Length() == 0 {
			return
		}
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			FailureSummary: fmt.Sprintf("Fix: the list has %d direct children that are not <li>, <script> or <template>.", bad.Length()),
		})
	})
	return nodes, sel.Length()
}

func checkMarquee(doc *goquery.Document) ([]NodeResult, int) {
	var nodes []NodeResult
	sel := doc.Find("marquee")
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, NodeResult{
			Target:         locate(s),
			HTML:           outerHTML(s),
			FailureSummary: "Fix: replace the deprecated <marquee> element with CSS animation that respects prefers-reduced-motion.",
		})
	})
	return nodes, sel.Length()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// isDecorative: role=presentation/none or aria-hidden marks an image as
// invisible to assistive technology, so it needs no alternate text.
func isDecorative(s *goquery.Selection) bool {
	if role, _ := s.Attr("role"); role == "presentation" || role == "none" {
		return true
	}
	return isHidden(s)
}

func isHidden(s *goquery.Selection) bool {
	if v, _ := s.Attr("aria-hidden"); v == "true" {
		return true
	}
	_, hidden := s.Attr("hidden")
	return hidden
}

// hasAriaName reports a non-empty aria-label, or an aria-labelledby that
// resolves to an element with text.
func hasAriaName(doc *goquery.Document, s *goquery.Selection) bool {
	if v, _ := s.Attr("aria-label"); strings.TrimSpace(v) != "" {
		return true
	}
	if ids, ok := s.Attr("aria-labelledby"); ok {
		for _, id := range strings.Fields(ids) {
			if strings.TrimSpace(doc.Find("#"+id).Text()) != "" {
				return true
			}
		}
	}
	return false
}

// accessibleName approximates the accessible name computation: ARIA
// attributes win, then inner text, then child image alt text, then title.
func accessibleName(doc *goquery.Document, s *goquery.Selection) string {
	if v, _ := s.Attr("aria-label"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if ids, ok := s.Attr("aria-labelledby"); ok {
		for _, id := range strings.Fields(ids) {
			if text := strings.TrimSpace(doc.Find("#" + id).Text()); text != "" {
				return text
			}
		}
	}
	if text := strings.TrimSpace(s.Text()); text != "" {
		return text
	}
	alt := ""
	s.Find("img[alt]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		alt, _ = img.Attr("alt")
		alt = strings.TrimSpace(alt)
		return alt == ""
	})
	if alt != "" {
		return alt
	}
	if v, _ := s.Attr("title"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return ""
}

func hasLabel(doc *goquery.Document, s *goquery.Selection) bool {
	if hasAriaName(doc, s) {
		return true
	}
	if v, _ := s.Attr("title"); strings.TrimSpace(v) != "" {
		return true
	}
	if id, ok := s.Attr("id"); ok && id != "" {
		if doc.Find(fmt.Sprintf(`label[for=%q]`, id)).Length() > 0 {
			return true
		}
	}
	return s.ParentsFiltered("label").Length() > 0
}

// locate builds a short CSS-like locator for error reporting.
func locate(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		return name + "#" + id
	}
	if class, ok := s.Attr("class"); ok && class != "" {
		if fields := strings.Fields(class); len(fields) > 0 {
			return name + "." + fields[0]
		}
	}
	return name
}

// outerHTML renders the element itself, truncated for report payloads.
func outerHTML(s *goquery.Selection) string {
	html, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	html = strings.TrimSpace(html)
	if len(html) > 200 {
		cut := 200
		// Back up to a rune boundary so the truncation never emits
		// invalid UTF-8.
		for cut > 0 && !utf8.RuneStart(html[cut]) {
			cut--
		}
		html = html[:cut]
	}
	return html
}
