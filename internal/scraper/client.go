package scraper

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// páginas que respondem 200 mas sem conteúdo
var noDataMarkers = []string{"データがありません", "指定されたページが見つかりません"}

// Client busca e interpreta os documentos públicos de corrida
// (cartão do dia, racelist, beforeinfo, odds3t, pay)
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Location *time.Location // fuso dos horários do cartão
	log      *zap.Logger
}

// New cria o client; timeout vale para cada busca individual
func New(base string, timeout time.Duration, loc *time.Location, log *zap.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		BaseURL:  strings.TrimRight(base, "/"),
		HTTP:     &http.Client{Timeout: timeout},
		Location: loc,
		log:      log,
	}
}

// raceQuery monta os parâmetros rno/jcd/hd usados pelas páginas por corrida
func raceQuery(id race.ID) url.Values {
	q := url.Values{}
	q.Set("rno", strconv.Itoa(id.RaceNumber))
	q.Set("jcd", fmt.Sprintf("%02d", id.VenueID))
	q.Set("hd", id.DateString())
	return q
}

// fetch baixa e parseia um documento. Timeout, status != 200 ou página
// "sem dados" viram race.ErrNoData; quem chama aborta o estágio.
func (c *Client) fetch(ctx context.Context, path string, q url.Values) (*goquery.Document, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", path, race.ErrNoData, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: http %d", path, race.ErrNoData, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", path, race.ErrNoData, err)
	}
	text := doc.Text()
	for _, m := range noDataMarkers {
		if strings.Contains(text, m) {
			return nil, fmt.Errorf("fetch %s: %w", path, race.ErrNoData)
		}
	}
	return doc, nil
}

func (c *Client) logIssues(doc string, id race.ID, issues []race.Issue) {
	if len(issues) == 0 {
		return
	}
	c.log.Debug("field extraction issues",
		zap.String("document", doc),
		zap.String("race_key", id.Key()),
		zap.Int("count", len(issues)),
		zap.Any("issues", issues),
	)
}

var (
	unitStripper = strings.NewReplacer("kg", "", "cm", "", "m", "", "℃", "", "%", "")
	fullWidth    = strings.NewReplacer(
		"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
		"５", "5", "６", "6", "７", "7", "８", "8", "９", "9", "．", ".",
	)
)

// parseFloat normaliza unidades e dígitos full-width.
// zeroAsAbsent: para taxas, 0.0 significa "sem histórico", não zero.
func parseFloat(text string, zeroAsAbsent bool) (float64, error) {
	s := strings.TrimSpace(fullWidth.Replace(unitStripper.Replace(text)))
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty value %q", text)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number %q", text)
	}
	if v == 0 && zeroAsAbsent {
		return 0, fmt.Errorf("zero rate")
	}
	return v, nil
}

// strippedLines devolve os textos não vazios dentro da seleção, na ordem do documento
// (cada <br> separa uma linha)
func strippedLines(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// extractor acumula features e problemas de extração de um documento
type extractor struct {
	values race.Features
	issues []race.Issue
}

func newExtractor(values race.Features) *extractor {
	return &extractor{values: values}
}

// set devolve o setter do campo: grava o valor ou marca ausência explícita com o motivo.
// Aceita direto o retorno (float64, error) dos parsers: ex.set("r1_tilt")(parseFloat(s, false))
func (e *extractor) set(field string) func(float64, error) {
	return func(v float64, err error) {
		if err != nil {
			e.absent(field, err.Error())
			return
		}
		e.values[field] = race.Float(v)
	}
}

func (e *extractor) absent(field, reason string) {
	e.values[field] = nil
	e.issues = append(e.issues, race.Issue{Field: field, Reason: reason})
}

// line retorna a i-ésima linha ou erro se a célula tiver menos linhas
func line(lines []string, i int) (string, error) {
	if i >= len(lines) {
		return "", fmt.Errorf("cell has %d lines, want index %d", len(lines), i)
	}
	return lines[i], nil
}
