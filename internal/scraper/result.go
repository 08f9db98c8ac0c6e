package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

var payoutReplacer = strings.NewReplacer("¥", "", "￥", "", ",", "", "，", "")

// FetchResult busca o resultado oficial do trifecta na página de pagamentos do dia.
// Página inexistente => race.ErrNoData; local/corrida sem resultado ainda => race.ErrResultUnavailable.
func (c *Client) FetchResult(ctx context.Context, id race.ID) (race.Result, error) {
	q := raceQuery(id)
	q.Del("rno")
	q.Del("jcd")
	doc, err := c.fetch(ctx, "/owpc/pc/race/pay", q)
	if err != nil {
		return race.Result{}, err
	}
	return parseResult(doc, id)
}

// parseResult localiza a coluna do local (imagem NN.png no cabeçalho) e lê a linha da corrida.
// Cada local ocupa três células: combinação (spans), pagamento, e a marca "返" de devolução.
func parseResult(doc *goquery.Document, id race.ID) (race.Result, error) {
	var (
		table *goquery.Selection
		col   = -1
	)
	doc.Find("table.is-strited1").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		t.Find("thead p.table1_areaName").EachWithBreak(func(i int, area *goquery.Selection) bool {
			src, _ := area.Find("img").First().Attr("src")
			if m := venueImageRe.FindStringSubmatch(src); m != nil {
				if v, _ := strconv.Atoi(m[1]); v == id.VenueID {
					table, col = t, i
					return false
				}
			}
			return true
		})
		return table == nil
	})
	if table == nil {
		return race.Result{}, fmt.Errorf("venue %d not on pay page: %w", id.VenueID, race.ErrResultUnavailable)
	}

	tbodies := table.Find("tbody")
	if tbodies.Length() < id.RaceNumber {
		return race.Result{}, fmt.Errorf("race %d row missing: %w", id.RaceNumber, race.ErrResultUnavailable)
	}
	tds := tbodies.Eq(id.RaceNumber - 1).Find("td")
	start := col * 3
	if tds.Length() <= start+1 {
		return race.Result{}, fmt.Errorf("result cells missing: %w", race.ErrResultUnavailable)
	}

	var parts []string
	tds.Eq(start).Find("span").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" && t != "-" {
			parts = append(parts, t)
		}
	})
	combo, err := race.ParseCombination(strings.Join(parts, "-"))
	if err != nil {
		return race.Result{}, fmt.Errorf("combination %q: %w", strings.Join(parts, "-"), race.ErrResultUnavailable)
	}

	payoutSpan := tds.Eq(start + 1).Find("span").First()
	if payoutSpan.Length() == 0 {
		return race.Result{}, fmt.Errorf("payout missing: %w", race.ErrResultUnavailable)
	}
	payoutText := strings.TrimSpace(payoutSpan.Text())
	payout, err := strconv.Atoi(strings.TrimSpace(payoutReplacer.Replace(fullWidth.Replace(payoutText))))
	if err != nil {
		// sem pagamento legível não dá para liquidar: apostas ficam pending
		return race.Result{}, fmt.Errorf("payout %q: %w", payoutText, race.ErrResultUnavailable)
	}

	void := false
	if tds.Length() > start+2 {
		void = strings.TrimSpace(tds.Eq(start+2).Find("span").First().Text()) == "返"
	}

	return race.Result{Combination: combo, Payout: payout, Void: void}, nil
}
