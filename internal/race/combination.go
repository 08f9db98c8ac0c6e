package race

import (
	"fmt"
	"strconv"
	"strings"
)

// Entrants é o número fixo de barcos por corrida
const Entrants = 6

// Combination é uma ordem de chegada apostada: três barcos distintos, ex.: "1-3-5"
type Combination string

// NewCombination monta a combinação a partir dos três barcos, validando faixa e repetição
func NewCombination(first, second, third int) (Combination, error) {
	for _, b := range []int{first, second, third} {
		if b < 1 || b > Entrants {
			return "", fmt.Errorf("entrant %d out of range 1..%d", b, Entrants)
		}
	}
	if first == second || first == third || second == third {
		return "", fmt.Errorf("entrants must be distinct: %d-%d-%d", first, second, third)
	}
	return Combination(fmt.Sprintf("%d-%d-%d", first, second, third)), nil
}

// ParseCombination valida uma combinação no formato "a-b-c"
func ParseCombination(s string) (Combination, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return "", fmt.Errorf("combination %q: want 3 entrants", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", fmt.Errorf("combination %q: %w", s, err)
		}
		n[i] = v
	}
	return NewCombination(n[0], n[1], n[2])
}

// AllCombinations lista as 120 combinações válidas em ordem lexicográfica
func AllCombinations() []Combination {
	out := make([]Combination, 0, 120)
	for i := 1; i <= Entrants; i++ {
		for j := 1; j <= Entrants; j++ {
			for k := 1; k <= Entrants; k++ {
				if c, err := NewCombination(i, j, k); err == nil {
					out = append(out, c)
				}
			}
		}
	}
	return out
}
