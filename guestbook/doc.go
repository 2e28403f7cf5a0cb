// Package guestbook expõe o gateway de submissão do mural via HTTP (chi).
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (Envelope, Verdict, Entry, Outcome), sem net/http
//   - application: Gateway (validação -> moderação -> cota -> persistência) e serviços de throttle
//   - infra: OpenAI, Postgres/SQLite/memória, Redis, token bucket
//   - guestbook (este pacote): rotas, contrato JSON, identidade, origem, middlewares
//
// Fluxo de uma submissão:
//
//  1. Decodifica o corpo e monta o domain.Envelope (identidade via JWT, origem via request)
//  2. Anônimos passam pelo throttle de rajada por origem (429, type throttled)
//  3. Reserva uma vaga de concorrência (503, type server_busy) e chama application.Gateway.Submit
//  4. Traduz o Outcome para {success, data | error + type}; 200 para todo resultado
//     definido, 500 só para configuration_error e server_error
package guestbook
