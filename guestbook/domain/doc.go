// Package domain define os tipos e contratos do mural de mensagens (guestbook).
//
// Este pacote não depende de net/http nem de implementações concretas
// (banco, Redis, OpenAI). Envelope, Verdict, Entry e Outcome são os tipos que
// atravessam as camadas; Classifier, EntryStore, EntryPublisher e OutcomeStats
// são as portas implementadas pela camada infra.
package domain
