package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

var (
	venueImageRe = regexp.MustCompile(`(\d{1,2})\.png`)
	raceCellRe   = regexp.MustCompile(`(\d{1,2})R\s*(\d{1,2}):(\d{2})`)
)

// FetchCard busca o cartão do dia. now define a data (no fuso do Client)
// usada para montar os deadlines a partir dos horários "HH:MM".
func (c *Client) FetchCard(ctx context.Context, now time.Time) (race.Card, error) {
	doc, err := c.fetch(ctx, "/owpc/pc/race/index", nil)
	if err != nil {
		return race.Card{}, err
	}
	card := parseCard(doc, now.In(c.Location))
	if len(card.Issues) > 0 {
		c.log.Warn("race card parse issues", zap.Int("count", len(card.Issues)), zap.Any("issues", card.Issues))
	}
	return card, nil
}

// parseCard lê uma tbody por local: 1ª linha traz a imagem NN.png do local,
// 2ª linha traz as células "<n>R HH:MM". Local mal formado é pulado sem afetar os demais.
func parseCard(doc *goquery.Document, day time.Time) race.Card {
	var card race.Card
	table := doc.Find("div.table1").First()

	table.Find("table tbody").Each(func(i int, tbody *goquery.Selection) {
		field := fmt.Sprintf("venue[%d]", i)
		trs := tbody.Find("tr")

		src, _ := trs.First().Find("td a img").Attr("src")
		m := venueImageRe.FindStringSubmatch(src)
		if m == nil {
			card.Issues = append(card.Issues, race.Issue{Field: field, Reason: fmt.Sprintf("venue marker not found in %q", src)})
			return
		}
		venueID, _ := strconv.Atoi(m[1])

		if trs.Length() < 2 {
			card.Issues = append(card.Issues, race.Issue{Field: field, Reason: "race row missing"})
			return
		}
		trs.Eq(1).Find("td").Each(func(_ int, td *goquery.Selection) {
			m := raceCellRe.FindStringSubmatch(strings.TrimSpace(td.Text()))
			if m == nil {
				return
			}
			raceNumber, _ := strconv.Atoi(m[1])
			hour, _ := strconv.Atoi(m[2])
			minute, _ := strconv.Atoi(m[3])
			card.Races = append(card.Races, race.Scheduled{
				VenueID:    venueID,
				RaceNumber: raceNumber,
				Deadline:   time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()),
			})
		})
	})
	return card
}
