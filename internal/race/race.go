package race

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData indica que a fonte upstream não retornou documento utilizável
	ErrNoData = errors.New("no data")
	// ErrFeaturesMissing indica que o scrape ainda não gravou as features da corrida
	ErrFeaturesMissing = errors.New("race features missing")
	// ErrResultUnavailable indica que o resultado oficial ainda não foi publicado
	ErrResultUnavailable = errors.New("race result unavailable")
)

// ID identifica uma corrida: (data, local, número da corrida).
// Todas as outras chaves (documento da corrida, apostas, mensagens) derivam dela.
type ID struct {
	Date       time.Time `json:"date"`
	VenueID    int       `json:"venue_id"`
	RaceNumber int       `json:"race_number"`
}

// NewID deriva a identidade da corrida a partir do deadline.
// A data usada é a do próprio deadline, no fuso em que ele foi emitido.
func NewID(deadline time.Time, venueID, raceNumber int) ID {
	y, m, d := deadline.Date()
	return ID{
		Date:       time.Date(y, m, d, 0, 0, 0, 0, deadline.Location()),
		VenueID:    venueID,
		RaceNumber: raceNumber,
	}
}

// DateString formata a data no padrão usado pelas URLs upstream e pelas chaves (YYYYMMDD)
func (id ID) DateString() string { return id.Date.Format("20060102") }

// Key retorna a chave do documento da corrida: {date}-{venue_id}-{race_number}
func (id ID) Key() string {
	return fmt.Sprintf("%s-%d-%d", id.DateString(), id.VenueID, id.RaceNumber)
}

func (id ID) String() string { return id.Key() }

// Scheduled é uma corrida do cartão do dia, com o horário de fechamento das apostas
type Scheduled struct {
	VenueID    int
	RaceNumber int
	Deadline   time.Time
}

// Issue registra um campo que não pôde ser extraído de um documento upstream.
// O registro continua sendo produzido; a falha fica só para observabilidade.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Card é o cartão de corridas do dia mais os problemas de parsing por corrida
type Card struct {
	Races  []Scheduled
	Issues []Issue
}

// Result é o resultado oficial do trifecta de uma corrida.
// Payout é o retorno por 100 unidades apostadas; Void marca corrida com devolução.
type Result struct {
	Combination Combination `json:"combination"`
	Payout      int         `json:"payout"`
	Void        bool        `json:"void"`
}
