package asset

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indica ativo inexistente.
	ErrNotFound = errors.New("ativo não encontrado")
	// ErrTypeNotFound indica tipo de ativo inexistente.
	ErrTypeNotFound = errors.New("tipo de ativo não encontrado")
	// ErrLocationNotFound indica localização inexistente.
	ErrLocationNotFound = errors.New("localização não encontrada")
)

// Vocabulário de status de ativo usado pelo ciclo de vida dos chamados.
// Outros nomes podem existir como dado mestre, mas estes têm semântica.
const (
	StatusInUse    = "in use"
	StatusBroken   = "broken"
	StatusDisposed = "disposed"
)

// Asset representa um equipamento físico patrimoniado.
type Asset struct {
	ID           uuid.UUID  `json:"id"`
	AssetCode    string     `json:"asset_code"`
	AssetName    string     `json:"asset_name"`
	Brand        *string    `json:"brand,omitempty"`
	Model        *string    `json:"model,omitempty"`
	SerialNo     *string    `json:"serial_no,omitempty"`
	Price        *float64   `json:"price,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	WarrantyExp  *time.Time `json:"warranty_exp,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	TypeID       uuid.UUID  `json:"type_id"`
	StatusID     uuid.UUID  `json:"status_id"`
	LocationID   *uuid.UUID `json:"location_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Detail agrega o ativo com os nomes resolvidos das referências.
type Detail struct {
	Asset
	TypeName   string  `json:"type_name"`
	StatusName string  `json:"status_name"`
	Building   *string `json:"building,omitempty"`
	Room       *string `json:"room,omitempty"`
}

// Type é dado mestre de categoria de ativo.
type Type struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

// Status é dado mestre do vocabulário de condição do ativo.
type Status struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Location é dado mestre de prédio/sala.
type Location struct {
	ID          uuid.UUID `json:"id"`
	Building    string    `json:"building"`
	Room        string    `json:"room"`
	Floor       *string   `json:"floor,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// ResolveResult distingue referência encontrada de referência criada,
// para que chamadores consigam registrar qual das duas ocorreu.
type ResolveResult struct {
	ID      uuid.UUID
	Created bool
}

// Filter restringe a listagem de ativos.
type Filter struct {
	TypeID     *uuid.UUID
	StatusID   *uuid.UUID
	LocationID *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}
