// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// O rate limit é por janela fixa: cada chave (o chamador) tem um contador
// que zera quando a janela expira.
package domain
