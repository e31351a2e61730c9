package pricecharting

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/banktcg/gradesync/internal/pricing"
)

// gradeTabs maps the grade tab CSS class on a product page to the PSA grade
// its completed-sales table holds.
var gradeTabs = map[string]int{
	"completed-auctions-cib":         7,
	"completed-auctions-new":         8,
	"completed-auctions-graded":      9,
	"completed-auctions-manual-only": 10,
}

var nonPrice = regexp.MustCompile(`[^\d.]`)

// parseCandidates extracts (reference, set label) pairs from a search
// results page. The results live in table#games_table, with table.hover_table
// as the legacy fallback.
func parseCandidates(doc *goquery.Document, baseURL string) []pricing.Candidate {
	table := doc.Find("table#games_table")
	if table.Length() == 0 {
		table = doc.Find("table.hover_table")
	}

	var candidates []pricing.Candidate
	table.Find("tr[data-product]").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.title a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = baseURL + href
		}
		candidates = append(candidates, pricing.Candidate{
			Reference: href,
			SetLabel:  strings.TrimSpace(row.Find("td.console").First().Text()),
		})
	})
	return candidates
}

// parseSalesForGrade extracts the completed listings under one grade tab.
// The page carries both a tab button and a content section with the same
// class; only the content section (no "tab" class) holds the table.
func parseSalesForGrade(doc *goquery.Document, tabClass string) []pricing.RawSale {
	var section *goquery.Selection
	doc.Find("div." + tabClass).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("tab") {
			return true
		}
		section = sel
		return false
	})
	if section == nil {
		return nil
	}

	var sales []pricing.RawSale
	section.Find("tbody tr[id^=ebay-]").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.title a").First()
		href, _ := link.Attr("href")
		sales = append(sales, pricing.RawSale{
			Date:      strings.TrimSpace(row.Find("td.date").First().Text()),
			Price:     parsePrice(row.Find("td.numeric .js-price").First().Text()),
			SourceRef: strings.TrimSpace(href),
			Title:     strings.TrimSpace(link.Text()),
		})
	})
	return sales
}

// parsePopulation reads the population report row: one td.numeric cell per
// grade, in ascending grade order starting at 1.
func parsePopulation(doc *goquery.Document) pricing.PopulationCounts {
	row := doc.Find("table.population tbody tr").First()
	if row.Length() == 0 {
		return pricing.PopulationCounts{}
	}

	pop := pricing.PopulationCounts{}
	row.Find("td.numeric").Each(func(i int, cell *goquery.Selection) {
		grade := i + 1
		if grade > pricing.GradeMax {
			return
		}
		raw := strings.ReplaceAll(strings.TrimSpace(cell.Text()), ",", "")
		count, err := strconv.Atoi(raw)
		if err != nil {
			return
		}
		pop[grade] = count
	})
	return pop
}

// parsePrice strips currency formatting and returns the numeric value, or 0
// when the cell is empty or unparsable.
func parsePrice(raw string) float64 {
	cleaned := nonPrice.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
