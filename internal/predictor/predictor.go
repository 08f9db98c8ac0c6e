package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

// Probabilities mapeia combinação para probabilidade estimada
type Probabilities = map[race.Combination]float64

// Predictor recebe as features da corrida e devolve a distribuição sobre as combinações
type Predictor interface {
	Predict(ctx context.Context, f race.Features) (Probabilities, error)
}

// HTTP chama um serviço de modelo externo: POST {base}/predict com as features em JSON,
// resposta {"1-2-3": 0.05, ...}
type HTTP struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTP(base string, timeout time.Duration) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTP) Predict(ctx context.Context, f race.Features) (Probabilities, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("predictor http %d", res.StatusCode)
	}

	var raw map[string]float64
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	out := make(Probabilities, len(raw))
	for k, p := range raw {
		combo, err := race.ParseCombination(k)
		if err != nil {
			continue // chave fora do formato a-b-c
		}
		out[combo] = p
	}
	return out, nil
}

// Uniform distribui a probabilidade igualmente entre as 120 combinações
type Uniform struct{}

func (Uniform) Predict(context.Context, race.Features) (Probabilities, error) {
	all := race.AllCombinations()
	out := make(Probabilities, len(all))
	p := 1.0 / float64(len(all))
	for _, c := range all {
		out[c] = p
	}
	return out, nil
}

// Fallback usa o Primary e, se ele falhar, degrada para Uniform.
// A passada segue viva com menor fidelidade em vez de falhar.
type Fallback struct {
	Primary    Predictor
	Log        *zap.Logger
	OnFallback func(err error) // opcional (métricas)
}

func (f Fallback) Predict(ctx context.Context, features race.Features) (Probabilities, error) {
	probs, err := f.Primary.Predict(ctx, features)
	if err == nil {
		return probs, nil
	}
	if f.Log != nil {
		f.Log.Warn("predictor unavailable, using uniform distribution", zap.Error(err))
	}
	if f.OnFallback != nil {
		f.OnFallback(err)
	}
	return Uniform{}.Predict(ctx, features)
}
