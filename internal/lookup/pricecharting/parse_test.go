package pricecharting

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banktcg/gradesync/internal/pricing"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const searchPage = `
<html><body>
<table id="games_table">
  <tbody>
    <tr data-product="1001">
      <td class="title"><a href="/game/pokemon-base-set/charizard-4">Charizard #4</a></td>
      <td class="console">Pokemon Base Set</td>
    </tr>
    <tr data-product="1002">
      <td class="title"><a href="https://www.pricecharting.com/game/pokemon-jungle/charizard">Charizard</a></td>
      <td class="console">Pokemon Jungle</td>
    </tr>
    <tr>
      <td class="title"><a href="/ignored">header row without data-product</a></td>
    </tr>
  </tbody>
</table>
</body></html>`

func TestParseCandidates(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, searchPage)
	candidates := parseCandidates(doc, "https://www.pricecharting.com")
	require.Len(t, candidates, 2)

	assert.Equal(t, pricing.Candidate{
		Reference: "https://www.pricecharting.com/game/pokemon-base-set/charizard-4",
		SetLabel:  "Pokemon Base Set",
	}, candidates[0])
	assert.Equal(t, "https://www.pricecharting.com/game/pokemon-jungle/charizard", candidates[1].Reference)
}

func TestParseCandidatesLegacyTable(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `
<table class="hover_table"><tbody>
  <tr data-product="7"><td class="title"><a href="/game/x/y">Y</a></td><td class="console">Set X</td></tr>
</tbody></table>`)
	candidates := parseCandidates(doc, "https://example.com")
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://example.com/game/x/y", candidates[0].Reference)
}

const productPage = `
<html><body>
<div class="tab completed-auctions-graded">tab button</div>
<div class="completed-auctions-graded">
  <table><tbody>
    <tr id="ebay-111">
      <td class="date">2026-08-20</td>
      <td class="title"><a href="https://ebay.com/itm/111">PSA 9 Charizard</a></td>
      <td class="numeric"><span class="js-price">$412.00</span></td>
    </tr>
    <tr id="ebay-222">
      <td class="date">Aug 25, 2026</td>
      <td class="title"><a href="https://ebay.com/itm/222">Charizard holo PSA9</a></td>
      <td class="numeric"><span class="js-price">$1,024.99</span></td>
    </tr>
  </tbody></table>
</div>
<div class="completed-auctions-manual-only">
  <table><tbody>
    <tr id="ebay-333">
      <td class="date">2026-08-26</td>
      <td class="title"><a href="https://ebay.com/itm/333">PSA 10</a></td>
      <td class="numeric"><span class="js-price"></span></td>
    </tr>
  </tbody></table>
</div>
<table class="population"><tbody>
  <tr>
    <td class="numeric">10</td><td class="numeric">25</td><td class="numeric">40</td>
    <td class="numeric">80</td><td class="numeric">150</td><td class="numeric">300</td>
    <td class="numeric">800</td><td class="numeric">1,500</td><td class="numeric">1,200</td>
    <td class="numeric">90</td>
  </tr>
</tbody></table>
</body></html>`

func TestParseSalesForGradeSkipsTabButton(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, productPage)
	sales := parseSalesForGrade(doc, "completed-auctions-graded")
	require.Len(t, sales, 2)

	assert.Equal(t, pricing.RawSale{
		Date:      "2026-08-20",
		Price:     412,
		SourceRef: "https://ebay.com/itm/111",
		Title:     "PSA 9 Charizard",
	}, sales[0])
	assert.Equal(t, 1024.99, sales[1].Price)
}

func TestParseSalesForGradeMissingSection(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, productPage)
	assert.Empty(t, parseSalesForGrade(doc, "completed-auctions-cib"))
}

func TestParseSalesEmptyPriceBecomesZero(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, productPage)
	sales := parseSalesForGrade(doc, "completed-auctions-manual-only")
	require.Len(t, sales, 1)
	assert.Zero(t, sales[0].Price, "unpriced rows surface as zero for the ingestor to reject")
}

func TestParsePopulation(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, productPage)
	pop := parsePopulation(doc)
	assert.Equal(t, 10, pop[1])
	assert.Equal(t, 1500, pop[8], "comma-formatted counts must parse")
	assert.Equal(t, 90, pop[10])
}

func TestParsePopulationMissingTable(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body></body></html>`)
	assert.Empty(t, parsePopulation(doc))
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"$412.00":   412,
		"$1,024.99": 1024.99,
		"":          0,
		"N/A":       0,
	}
	for in, want := range cases {
		assert.Equal(t, want, parsePrice(in), "input %q", in)
	}
}

func TestGradeTabCoverage(t *testing.T) {
	t.Parallel()

	// Every tracked grade must have a tab mapping.
	seen := make(map[int]bool)
	for _, grade := range gradeTabs {
		seen[grade] = true
	}
	for _, grade := range pricing.DefaultTrackedGrades {
		assert.True(t, seen[grade], "grade %d has no tab class", grade)
	}
}
