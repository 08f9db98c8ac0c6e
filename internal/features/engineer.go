package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// Group descreve uma estatística por barco (colunas r1_<Column> .. r6_<Column>)
// e como ela é comparada dentro da corrida
type Group struct {
	Column         string
	HigherIsBetter bool // taxa de vitória/motor: maior é melhor; tempos: menor é melhor
	TimeBased      bool // gera flag is_top
	GapFromAverage bool // gera diferença para a média da corrida
}

// Groups são as estatísticas derivadas pelo scrape_info
var Groups = []Group{
	{Column: "global_win_rate", HigherIsBetter: true},
	{Column: "motor_3ren", HigherIsBetter: true},
	{Column: "exhibition_time", TimeBased: true},
	{Column: "exhibition_st", TimeBased: true, GapFromAverage: true},
}

// Column retorna o nome da coluna bruta de um barco, ex.: r3_motor_3ren
func Column(entrant int, column string) string { return fmt.Sprintf("r%d_%s", entrant, column) }

// Engineer devolve uma cópia de raw acrescida das features derivadas por grupo:
// <col>_z, <col>_diff_1 (exceto barco 1), <col>_rank e, conforme o grupo, <col>_is_top e <col>_gap_avg.
// Um grupo com qualquer coluna ausente é ignorado por inteiro.
func Engineer(raw race.Features) race.Features {
	out := raw.Clone()
	for _, g := range Groups {
		values, ok := groupValues(raw, g.Column)
		if !ok {
			continue
		}
		derive(out, g, values)
	}
	return out
}

func groupValues(raw race.Features, column string) ([]float64, bool) {
	values := make([]float64, race.Entrants)
	for i := range values {
		v, ok := raw[Column(i+1, column)]
		if !ok || v == nil || math.IsNaN(*v) {
			return nil, false
		}
		values[i] = *v
	}
	return values, true
}

func derive(out race.Features, g Group, values []float64) {
	mean, std := meanStd(values)
	if std == 0 {
		std = 1
	}
	ranks := Rank(values, g.HigherIsBetter)

	for i, v := range values {
		col := Column(i+1, g.Column)
		out[col+"_z"] = race.Float((v - mean) / std)
		if i > 0 {
			out[col+"_diff_1"] = race.Float(v - values[0])
		}
		out[col+"_rank"] = race.Float(float64(ranks[i]))
		if g.TimeBased {
			top := 0.0
			if ranks[i] == 1 {
				top = 1
			}
			out[col+"_is_top"] = race.Float(top)
		}
		if g.GapFromAverage {
			out[col+"_gap_avg"] = race.Float(v - mean)
		}
	}
}

// meanStd usa desvio padrão amostral (n-1)
func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanStdDev(values, nil)
}

// Rank atribui posição 1..n; empates recebem a menor (melhor) posição compartilhada
func Rank(values []float64, higherIsBetter bool) []int {
	ranks := make([]int, len(values))
	for i, v := range values {
		r := 1
		for j, o := range values {
			if j == i {
				continue
			}
			if (higherIsBetter && o > v) || (!higherIsBetter && o < v) {
				r++
			}
		}
		ranks[i] = r
	}
	return ranks
}
