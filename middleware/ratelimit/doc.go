// Package ratelimit fornece o limite por cliente (janela fixa) e o limite de
// concorrência usados pelo relay de análise.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (admitir/negar, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela em memória e em Redis, semáforo, stats)
//   - ratelimit (este pacote): extração da identidade do cliente e middleware de concorrência
//
// Fluxo no relay:
//
//  1. O servidor extrai a chave do cliente (header/XFF, "unknown" se ausente)
//  2. O relay valida a requisição e só então chama application.Service.Decide
//  3. Se negado, o servidor responde 429 com Retry-After
//
// A admissão não é um middleware: uma requisição com domínio inválido
// responde 400 sem consumir orçamento.
package ratelimit
