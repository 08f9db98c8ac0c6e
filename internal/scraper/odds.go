package scraper

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// FetchOdds busca o snapshot atual do trifecta (até 120 cotações).
// Snapshot vazio é tratado como race.ErrNoData.
func (c *Client) FetchOdds(ctx context.Context, id race.ID) ([]race.OddsQuote, error) {
	doc, err := c.fetch(ctx, "/owpc/pc/race/odds3t", raceQuery(id))
	if err != nil {
		return nil, err
	}
	quotes, issues := parseOdds(doc)
	c.logIssues("odds3t", id, issues)
	if len(quotes) == 0 {
		return nil, fmt.Errorf("odds3t %s: %w", id.Key(), race.ErrNoData)
	}
	c.log.Debug("odds fetched", zap.String("race_key", id.Key()), zap.Int("quotes", len(quotes)))
	return quotes, nil
}

// parseOdds percorre a grade do odds3t: 6 colunas (1º colocado = coluna+1),
// blocos de 4 linhas por 2º colocado. A linha de abertura do bloco traz
// [2º, 3º, odd] por coluna; as outras três trazem só [3º, odd] porque o 2º usa rowspan.
func parseOdds(doc *goquery.Document) ([]race.OddsQuote, []race.Issue) {
	tables := doc.Find("div.contentsFrame1_inner div.table1")
	if tables.Length() < 2 {
		return nil, []race.Issue{{Field: "odds", Reason: "odds table not found"}}
	}

	var (
		quotes    []race.OddsQuote
		issues    []race.Issue
		blockHead *goquery.Selection
	)
	tables.Eq(1).Find("table tbody").First().Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
		tds := row.Find("td")
		if rowIdx%4 == 0 {
			blockHead = tds
		}
		if blockHead == nil {
			return
		}
		for col := 0; col < race.Entrants; col++ {
			first := col + 1
			second, err := cellInt(blockHead.Eq(col * 3))
			if err != nil {
				continue
			}
			thirdCell, priceCell := tds.Eq(col*2), tds.Eq(col*2+1)
			if rowIdx%4 == 0 {
				thirdCell, priceCell = tds.Eq(col*3+1), tds.Eq(col*3+2)
			}
			third, err := cellInt(thirdCell)
			if err != nil {
				continue
			}

			combo, err := race.NewCombination(first, second, third)
			if err != nil {
				issues = append(issues, race.Issue{Field: fmt.Sprintf("odds[%d-%d-%d]", first, second, third), Reason: err.Error()})
				continue
			}
			price, err := strconv.ParseFloat(strings.TrimSpace(priceCell.Text()), 64)
			if err != nil {
				// sem preço (ex.: barco fora da corrida): combinação fica sem cotação
				issues = append(issues, race.Issue{Field: "odds[" + string(combo) + "]", Reason: fmt.Sprintf("no price %q", strings.TrimSpace(priceCell.Text()))})
				continue
			}
			quotes = append(quotes, race.OddsQuote{Combination: combo, Price: price})
		}
	})

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Combination < quotes[j].Combination })
	return quotes, issues
}

func cellInt(sel *goquery.Selection) (int, error) {
	return strconv.Atoi(strings.TrimSpace(sel.Text()))
}
