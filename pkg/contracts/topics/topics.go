package topics

const (
	// Eventos de corrida (dispatcher -> worker)
	RaceEvents = "race_events"

	// DLQ para mensagens que não decodificam
	RaceEventsDLQ = "race_events_dlq"

	// Canal Redis Pub/Sub com apostas criadas/liquidadas
	BetsBroadcast = "race_bets_broadcast"
)
