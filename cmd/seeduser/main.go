// cmd/seeduser/main.go — cria/atualiza o operador admin de demonstração.
// Uso: go run ./cmd/seeduser [data_dir]
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

func main() {
	dir := os.Getenv("DATA_DIR")
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if dir == "" {
		dir = "./data"
	}

	username := "admin"
	password := "1234"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatalf("bcrypt error: %v", err)
	}

	st, err := store.New(dir)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}

	var ops []model.Operator
	if err := st.Load(store.KindOperators, &ops); err != nil {
		log.Fatalf("load error: %v", err)
	}

	found := false
	for i := range ops {
		if strings.EqualFold(ops[i].Username, username) {
			ops[i].PasswordHash = string(hash)
			ops[i].Role = model.RoleAdmin
			ops[i].Active = true
			found = true
			break
		}
	}
	if !found {
		ops = append(ops, model.Operator{
			ID:           uuid.New(),
			Username:     username,
			Name:         "Admin Demo",
			Role:         model.RoleAdmin,
			PasswordHash: string(hash),
			Active:       true,
			CreatedAt:    time.Now().UTC(),
		})
	}

	if err := st.Save(store.KindOperators, ops); err != nil {
		log.Fatalf("save error: %v", err)
	}
	fmt.Printf("operador '%s' criado/atualizado com senha '%s' em %s\n", username, password, dir)
}
