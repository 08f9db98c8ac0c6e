package scraper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

var (
	weightRe = regexp.MustCompile(`(\d{2}\.\d)kg`)
	classRe  = regexp.MustCompile(`(A1|A2|B1|B2)`)
	windRe   = regexp.MustCompile(`^is-wind(\d+)$`)
)

// classes em ordem de nível; a feature guarda a posição (1 = A1)
var classOrdinal = map[string]float64{"A1": 1, "A2": 2, "B1": 3, "B2": 4}

// FetchEntrants busca racelist e beforeinfo em paralelo e junta os dois num RawStats.
// racelist é obrigatório; beforeinfo ausente só gera issue.
func (c *Client) FetchEntrants(ctx context.Context, id race.ID) (race.RawStats, error) {
	var raceList, beforeInfo *goquery.Document
	var beforeErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := c.fetch(gctx, "/owpc/pc/race/racelist", raceQuery(id))
		raceList = doc
		return err
	})
	g.Go(func() error {
		// opcional: não cancela o racelist
		beforeInfo, beforeErr = c.fetch(gctx, "/owpc/pc/race/beforeinfo", raceQuery(id))
		return nil
	})
	if err := g.Wait(); err != nil {
		return race.RawStats{}, err
	}

	stats := parseEntrants(raceList, beforeInfo)
	if beforeErr != nil {
		if !errors.Is(beforeErr, race.ErrNoData) {
			return race.RawStats{}, beforeErr
		}
		stats.Issues = append(stats.Issues, race.Issue{Field: "beforeinfo", Reason: beforeErr.Error()})
		c.log.Warn("beforeinfo unavailable", zap.String("race_key", id.Key()), zap.Error(beforeErr))
	}
	c.logIssues("entrants", id, stats.Issues)
	return stats, nil
}

// parseEntrants monta o registro bruto; beforeInfo pode ser nil
func parseEntrants(raceList, beforeInfo *goquery.Document) race.RawStats {
	ex := newExtractor(race.Features{})
	for i := 1; i <= race.Entrants; i++ {
		parseRaceList(raceList, ex, i)
	}
	if beforeInfo != nil {
		for i := 1; i <= race.Entrants; i++ {
			parseBeforeInfo(beforeInfo, ex, i)
		}
		parseStartExhibition(beforeInfo, ex)
		parseWeather(beforeInfo, ex)
	}
	return race.RawStats{Values: ex.values, Issues: ex.issues}
}

func prefix(entrant int) string { return fmt.Sprintf("r%d_", entrant) }

// parseRaceList extrai a linha do barco idx no racelist
func parseRaceList(doc *goquery.Document, ex *extractor, idx int) {
	p := prefix(idx)
	tbodies := doc.Find("div.table1.is-tableFixed__3rdadd table").First().Find("tbody")
	if tbodies.Length() < idx {
		ex.issues = append(ex.issues, race.Issue{Field: p + "*", Reason: "racelist row missing"})
		return
	}
	row := tbodies.Eq(idx - 1).Find("tr").First()
	tds := row.ChildrenFiltered("td")
	rowText := row.Text()

	// registro: "4444 / A1" -> 4444
	reg := strings.TrimSpace(strings.Split(row.Find("div.is-fs11").First().Text(), "/")[0])
	ex.set(p+"toban")(parseFloat(reg, false))

	class := strings.TrimSpace(row.Find("span.is-fColor1").First().Text())
	if class == "" {
		if m := classRe.FindStringSubmatch(rowText); m != nil {
			class = m[1]
		}
	}
	if v, ok := classOrdinal[class]; ok {
		ex.set(p+"class")(v, nil)
	} else {
		ex.absent(p+"class", fmt.Sprintf("unknown class %q", class))
	}

	if m := weightRe.FindStringSubmatch(rowText); m != nil {
		ex.set(p+"weight")(parseFloat(m[1], false))
	} else {
		ex.absent(p+"weight", "weight not found")
	}

	// F/L/ST médio em três linhas
	fl := strippedLines(tds.Eq(3))
	ex.set(p+"f_count")(countLine(fl, 0, "F"))
	ex.set(p+"l_count")(countLine(fl, 1, "L"))
	ex.set(p+"avg_st")(floatLine(fl, 2, false))

	// nacional, local e motor: linhas 0 (taxa de vitória) e 2 (taxa 3-ren)
	global := strippedLines(tds.Eq(4))
	ex.set(p+"global_win_rate")(floatLine(global, 0, true))
	ex.set(p+"global_3ren_rate")(floatLine(global, 2, true))

	local := strippedLines(tds.Eq(5))
	ex.set(p+"local_win_rate")(floatLine(local, 0, true))
	ex.set(p+"local_3ren_rate")(floatLine(local, 2, true))

	motor := strippedLines(tds.Eq(6))
	ex.set(p+"motor_3ren")(floatLine(motor, 2, true))
}

func floatLine(lines []string, i int, zeroAsAbsent bool) (float64, error) {
	s, err := line(lines, i)
	if err != nil {
		return 0, err
	}
	return parseFloat(s, zeroAsAbsent)
}

func countLine(lines []string, i int, marker string) (float64, error) {
	s, err := line(lines, i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.Replace(s, marker, "", 1)))
	if err != nil {
		return 0, fmt.Errorf("bad %s count %q", marker, s)
	}
	return float64(n), nil
}

// parseBeforeInfo extrai tempo de exibição e tilt do barco idx
func parseBeforeInfo(doc *goquery.Document, ex *extractor, idx int) {
	p := prefix(idx)
	tbodies := doc.Find("table.is-w748").First().Find("tbody")
	if tbodies.Length() < idx {
		ex.absent(p+"exhibition_time", "beforeinfo row missing")
		ex.absent(p+"tilt", "beforeinfo row missing")
		return
	}
	tds := tbodies.Eq(idx - 1).Find("tr").First().ChildrenFiltered("td")
	ex.set(p+"exhibition_time")(parseFloat(tds.Eq(4).Text(), false))
	ex.set(p+"tilt")(parseFloat(tds.Eq(5).Text(), false))
}

// parseStartExhibition lê a exibição de largada: a posição da linha é a raia (1..6).
// ST "F.01" vira negativo (queima de largada), "L" vira 1.0.
func parseStartExhibition(doc *goquery.Document, ex *extractor) {
	seen := make(map[int]bool, race.Entrants)
	doc.Find("table.is-w238").First().Find("tbody tr").Each(func(course int, row *goquery.Selection) {
		boatText := strings.TrimSpace(row.Find(`span[class*="table1_boatImage1Number"]`).First().Text())
		boat, err := strconv.Atoi(boatText)
		if err != nil || boat < 1 || boat > race.Entrants {
			return
		}
		p := prefix(boat)
		seen[boat] = true
		ex.set(p+"exhibition_course")(float64(course+1), nil)

		st := strings.TrimSpace(row.Find(`span[class*="table1_boatImage1Time"]`).First().Text())
		switch {
		case strings.Contains(st, "F"):
			v, err := parseFloat(strings.Replace(st, "F", "", 1), false)
			ex.set(p+"exhibition_st")(-v, err)
		case strings.Contains(st, "L"):
			ex.set(p+"exhibition_st")(1.0, nil)
		default:
			ex.set(p+"exhibition_st")(parseFloat(st, false))
		}
	})
	for i := 1; i <= race.Entrants; i++ {
		if !seen[i] {
			ex.absent(prefix(i)+"exhibition_st", "start exhibition entry missing")
		}
	}
}

// parseWeather lê o bloco de condições da raia
func parseWeather(doc *goquery.Document, ex *extractor) {
	w := doc.Find("div.weather1_body").First()
	if w.Length() == 0 {
		ex.issues = append(ex.issues, race.Issue{Field: "weather_*", Reason: "weather block missing"})
		return
	}
	data := func(div string) string {
		return w.Find(div + " span.weather1_bodyUnitLabelData").First().Text()
	}
	ex.set("weather_temperature")(parseFloat(data("div.is-direction"), false))
	ex.set("weather_wind_speed")(parseFloat(data("div.is-wind"), false))
	ex.set("weather_water_temp")(parseFloat(data("div.is-waterTemperature"), false))

	class, _ := w.Find("div.is-windDirection p").First().Attr("class")
	for _, cl := range strings.Fields(class) {
		if m := windRe.FindStringSubmatch(cl); m != nil {
			v, _ := strconv.Atoi(m[1])
			ex.set("weather_wind_direction")(float64(v), nil)
			return
		}
	}
	ex.absent("weather_wind_direction", fmt.Sprintf("no is-windN class in %q", class))
}
