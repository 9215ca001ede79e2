package repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
)

// ConflictError descreve violação de unicidade com o campo e o valor
// tentado, para que o chamador consiga destacar o campo ofensor.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("valor duplicado em %s: %q", e.Field, e.Value)
}

// IsUniqueViolation detecta o código 23505 do Postgres.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
