package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Upstream falso de moderação para testar o gateway sem a OpenAI:
//
//	MODERATION_URL=http://localhost:8082/v1/moderations
//
// Palavras "hate"/"kill" marcam categorias; "#500" devolve erro e "#slow"
// demora 10s (o gateway deve aprovar nos dois casos).
func main() {
	http.HandleFunc("/v1/moderations", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		text := strings.ToLower(req.Input)
		fmt.Printf("Log: moderação de %q\n", req.Input)

		if strings.Contains(text, "#500") {
			http.Error(w, "upstream quebrado", http.StatusInternalServerError)
			return
		}
		if strings.Contains(text, "#slow") {
			time.Sleep(10 * time.Second)
		}

		hate := strings.Contains(text, "hate")
		violence := strings.Contains(text, "kill")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"modr-fake","model":"fake","results":[{"flagged":%t,"categories":{"hate":%t,"harassment":false,"violence":%t}}]}`,
			hate || violence, hate, violence)
	})
	fmt.Println("Moderação fake rodando em http://localhost:8082")
	err := http.ListenAndServe(":8082", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}
