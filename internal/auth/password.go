package auth

import (
	"github.com/alexedwards/argon2id"
)

// Parâmetros Argon2id de todos os hashes de senha do Kurufix. Ficam
// codificados dentro do próprio hash, então podem evoluir sem migração
// dos registros antigos.
var hashParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash deriva o hash Argon2id da senha em texto claro.
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, hashParams)
}

// Verify confere a senha contra um hash gravado em users.password_hash.
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}
