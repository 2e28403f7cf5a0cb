// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - ModerationClient: classificador sobre a API de moderação da OpenAI
//   - PostgresStore / SQLiteStore / MemoryStore: persistência das entradas
//   - PublishingStore + RedisPublisher: notificação de inserts via Redis pub/sub
//   - RedisStatsStore / MemoryStatsStore: contadores de resultados
//   - BurstStore: token bucket por origem usando golang.org/x/time/rate
//   - NewSlotPool: semáforo simples para limite de concorrência
package infra
