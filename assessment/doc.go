// Package assessment define o modelo de dados da avaliação de risco de
// privacidade: o pedido normalizado (domínio, público, região) e o registro
// validado devolvido ao chamador.
//
// Este pacote não depende de net/http nem de nenhum backend. Ele é
// compartilhado pelo relay (lado servidor) e pelo advisor (lado chamador).
package assessment
