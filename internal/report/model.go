package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status de chamados. Transições livres dentro do vocabulário; um chamado
// fechado pode ser reaberto.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusFixed      = "FIXED"
	StatusClosed     = "CLOSED"
)

// Urgência declarada pelo solicitante.
const (
	UrgencyLow    = "LOW"
	UrgencyMedium = "MEDIUM"
	UrgencyHigh   = "HIGH"
)

var (
	ErrNotFound = errors.New("chamado não encontrado")
)

// ValidStatus informa se o valor pertence ao vocabulário de status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusFixed, StatusClosed:
		return true
	}
	return false
}

// ValidUrgency informa se o valor pertence ao vocabulário de urgência.
func ValidUrgency(urgency string) bool {
	switch urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Report representa um chamado de reparo vinculado a um ativo.
type Report struct {
	ID               uuid.UUID  `json:"id"`
	AssetID          uuid.UUID  `json:"assetId"`
	Status           string     `json:"status"`
	Urgency          string     `json:"urgency"`
	IssueTitle       string     `json:"issueTitle"`
	IssueDescription string     `json:"issueDescription"`
	IssueCategory    *string    `json:"issueCategory,omitempty"`
	ImageURL         *string    `json:"imageUrl,omitempty"`
	ReporterID       *uuid.UUID `json:"reporterId,omitempty"`
	ReporterName     *string    `json:"reporterName,omitempty"`
	ReporterEmail    *string    `json:"reporterEmail,omitempty"`
	ReporterPhone    *string    `json:"reporterPhone,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Detail acrescenta os campos do ativo usados nas listagens.
type Detail struct {
	Report
	AssetCode  string `json:"assetCode"`
	AssetName  string `json:"assetName"`
	StatusName string `json:"assetStatus"`
}

// ActivityLog é uma linha imutável do histórico de um chamado.
type ActivityLog struct {
	ID          uuid.UUID  `json:"id"`
	ReportID    uuid.UUID  `json:"reportId"`
	ActorUserID *uuid.UUID `json:"actorUserId,omitempty"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Filter delimita as listagens de chamados.
type Filter struct {
	Status  string
	Urgency string
	AssetID *uuid.UUID
	Limit   int
	Offset  int
}
