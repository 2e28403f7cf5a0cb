// Package application contém os casos de uso do mural: o Gateway de
// submissão, a cota por janela deslizante para anônimos e os serviços de
// throttle/concorrência que protegem o endpoint.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Gateway.Submit(ctx, envelope) devolve um domain.Outcome.
package application
