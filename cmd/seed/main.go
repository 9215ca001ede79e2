package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kurufix/api/internal/auth"
	"github.com/kurufix/api/internal/db"
	"github.com/kurufix/api/internal/repo"
)

// seed garante o vocabulário mínimo (papéis e status de ativo) e,
// opcionalmente, cria o primeiro administrador.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	_ = godotenv.Load()

	var (
		adminEmail    = flag.String("admin-email", "", "e-mail do administrador inicial")
		adminPassword = flag.String("admin-password", "", "senha do administrador inicial")
		adminName     = flag.String("admin-name", "Administrator", "nome do administrador inicial")
	)
	flag.Parse()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	queries := repo.New(pool)

	if err := seedRoles(ctx, queries); err != nil {
		log.Fatal().Err(err).Msg("falha ao garantir papéis")
	}

	if *adminEmail != "" {
		if *adminPassword == "" {
			log.Fatal().Msg("--admin-password obrigatório com --admin-email")
		}
		if err := seedAdmin(ctx, queries, *adminName, *adminEmail, *adminPassword); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar administrador")
		}
	}

	log.Info().Msg("seed concluído")
}

func seedRoles(ctx context.Context, queries *repo.Queries) error {
	roles := []struct{ name, description string }{
		{repo.RoleViewer, "Default viewer role with read-only access"},
		{repo.RoleStaff, "Maintenance staff handling repair reports"},
		{repo.RoleAdmin, "Full administrative access"},
	}
	for _, r := range roles {
		if _, err := queries.EnsureRole(ctx, r.name, r.description); err != nil {
			return fmt.Errorf("papel %s: %w", r.name, err)
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, queries *repo.Queries, name, email, password string) error {
	admin, err := queries.GetRoleByName(ctx, repo.RoleAdmin)
	if err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))

	if existing, err := queries.GetUserByEmail(ctx, email); err == nil {
		if err := queries.SetUserRole(ctx, existing.ID, admin.ID); err != nil {
			return err
		}
		log.Info().Str("email", email).Msg("usuário existente promovido a admin")
		return nil
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return err
	}

	user, err := queries.CreateUser(ctx, repo.CreateUserParams{
		Name:         &name,
		Email:        &email,
		PasswordHash: &hash,
		RoleID:       &admin.ID,
	})
	if err != nil {
		return err
	}

	log.Info().Str("email", email).Str("id", user.ID.String()).Msg("administrador criado")
	return nil
}
