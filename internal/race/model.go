package race

import "time"

// Features mapeia nome da feature para valor numérico.
// nil representa "sem valor" (campo ausente ou indefinido), nunca um número sentinela.
type Features map[string]*float64

// Float cria um ponteiro para v; atalho para montar Features
func Float(v float64) *float64 { return &v }

// Clone copia o mapa e os valores apontados
func (f Features) Clone() Features {
	out := make(Features, len(f))
	for k, v := range f {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = Float(*v)
	}
	return out
}

// RawStats é o retorno do scrape de participantes: valores brutos + problemas de extração
type RawStats struct {
	Values Features
	Issues []Issue
}

// OddsQuote é o preço de mercado (multiplicador decimal) de uma combinação.
// Combinação ausente no snapshot significa "sem preço", não preço zero.
type OddsQuote struct {
	Combination Combination `json:"combination"`
	Price       float64     `json:"price"`
}

// Scored é uma cotação avaliada pelo modelo
type Scored struct {
	Combination Combination `json:"combination"`
	Probability float64     `json:"probability"`
	Price       float64     `json:"price"`
	EVPercent   float64     `json:"ev_percent"`
}

// Stage é uma das duas passadas de previsão
type Stage string

const (
	StagePreview Stage = "preview"
	StageFinal   Stage = "final"
)

// PredictionRecord é o snapshot completo de uma passada, gravado uma vez por (corrida, estágio)
type PredictionRecord struct {
	Stage     Stage     `json:"stage"`
	Entries   []Scored  `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}

// BetStatus é o estado da aposta; só a liquidação sai de pending
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
)

// Terminal indica se o status já foi liquidado
func (s BetStatus) Terminal() bool { return s == BetWon || s == BetLost }

// Bet é uma aposta identificada por (corrida, combinação)
type Bet struct {
	Race        ID          `json:"race"`
	Combination Combination `json:"combination"`
	Stake       float64     `json:"stake"`
	Price       float64     `json:"price"`
	EVPercent   float64     `json:"ev_percent"`
	Status      BetStatus   `json:"status"`
	Return      float64     `json:"return"`
	SettledAt   *time.Time  `json:"settled_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Key é a chave de deduplicação da aposta: {race_key}-{combination}
func (b Bet) Key() string { return b.Race.Key() + "-" + string(b.Combination) }
