package main

import (
	"fmt"
	"os"

	"github.com/kurufix/api/internal/auth"
)

// Gera o hash Argon2id de uma senha no formato gravado em
// users.password_hash; útil para criar contas à mão em desenvolvimento.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "uso: hashpass <senha>")
		os.Exit(2)
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashpass: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
