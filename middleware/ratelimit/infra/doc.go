// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryCounter: janela fixa por chave em um map protegido por mutex
//   - RedisCounter: janela fixa compartilhada entre instâncias (script Lua)
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões
//   - ChanPool: semáforo simples para limite de concorrência
package infra
