/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes for the admin API. Domain types stay free of JSON tags so
  renaming a field here never touches the ledger or the cooldown store.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator
  before any domain call. Domain validation (amount sign, duration floor)
  still happens in the domain packages.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/economy-engine/cooldown"
	"github.com/warp/economy-engine/economy"
)

// =============================================================================
// LEDGER
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

// OperationDTO represents a ledger operation in API responses.
type OperationDTO struct {
	ID          string `json:"id"`
	UserID      int64  `json:"user_id"`
	Delta       int64  `json:"delta"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
	Time        string `json:"time"`
}

// AmountRequest is the body of deposit and withdraw.
type AmountRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=200"`
}

// AssignRequest sets a balance to an absolute value.
type AssignRequest struct {
	Value       *int64 `json:"value" validate:"required,gte=0"`
	Description string `json:"description" validate:"max=200"`
}

// AssignResponse reports whether the assignment changed anything.
type AssignResponse struct {
	Changed   bool          `json:"changed"`
	Operation *OperationDTO `json:"operation,omitempty"`
	Account   AccountDTO    `json:"account"`
}

// OperationRefRequest names an operation to reverse or roll back to.
type OperationRefRequest struct {
	OperationID string `json:"operation_id" validate:"required,alphanum"`
}

// RollbackResponse lists the reversal operations in the order they were applied.
type RollbackResponse struct {
	Reversals []OperationDTO `json:"reversals"`
	Account   AccountDTO     `json:"account"`
}

// RankRequest lists the group members to rank against.
type RankRequest struct {
	Candidates []int64 `json:"candidates" validate:"required,min=1,dive,gt=0"`
}

// RankResponse is the 1-based rank of the account within the group.
type RankResponse struct {
	Rank  int  `json:"rank,omitempty"`
	Found bool `json:"found"`
	Size  int  `json:"size"`
}

// VariationDTO is the net change since a point in time.
type VariationDTO struct {
	UserID    int64  `json:"user_id"`
	Since     string `json:"since"`
	Variation int64  `json:"variation"`
}

// AuditDTO compares the cached balance with the replayed log.
type AuditDTO struct {
	UserID     int64 `json:"user_id"`
	Stored     int64 `json:"stored"`
	Replayed   int64 `json:"replayed"`
	Drift      int64 `json:"drift"`
	Consistent bool  `json:"consistent"`
}

// TransferRequest moves funds between two accounts.
type TransferRequest struct {
	From        int64  `json:"from" validate:"required,gt=0"`
	To          int64  `json:"to" validate:"required,gt=0,nefield=From"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=200"`
}

// TransferDTO holds both legs of a transfer.
type TransferDTO struct {
	Debit  OperationDTO `json:"debit"`
	Credit OperationDTO `json:"credit"`
}

// =============================================================================
// COOLDOWNS
// =============================================================================

// CooldownDTO represents one cooldown in API responses.
type CooldownDTO struct {
	BucketKey        string  `json:"bucket_key"`
	Name             string  `json:"name"`
	ExpiresAt        int64   `json:"expires_at"`
	CreatedAt        int64   `json:"created_at"`
	RemainingSeconds int64   `json:"remaining_seconds"`
	Progress         float64 `json:"progress"`
	Metadata         *string `json:"metadata,omitempty"`
}

// SetCooldownRequest starts (or restarts) a cooldown.
type SetCooldownRequest struct {
	Seconds  int64   `json:"seconds" validate:"required,gte=1"`
	Metadata *string `json:"metadata,omitempty"`
}

// UpdateCooldownRequest moves an existing expiry. ExpiresAt wins when both are set.
type UpdateCooldownRequest struct {
	Seconds   int64 `json:"seconds,omitempty" validate:"gte=0"`
	ExpiresAt int64 `json:"expires_at,omitempty" validate:"gte=0"`
}

// EntityCooldownDTO is a live cooldown together with the entity holding it.
type EntityCooldownDTO struct {
	Kind     string      `json:"kind"`
	ID       string      `json:"id"`
	Cooldown CooldownDTO `json:"cooldown"`
}

// StatisticsDTO summarizes one cooldown name across all buckets.
type StatisticsDTO struct {
	Name        string         `json:"name"`
	Active      int            `json:"active"`
	Expired     int            `json:"expired"`
	Total       int            `json:"total"`
	EntityTypes map[string]int `json:"entity_types"`
}

// CountDTO reports how many rows an operation touched.
type CountDTO struct {
	Count int `json:"count"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a economy.Account) AccountDTO {
	return AccountDTO{UserID: int64(a.UserID), Balance: a.Balance}
}

func toOperationDTO(op economy.Operation) OperationDTO {
	return OperationDTO{
		ID:          string(op.ID),
		UserID:      int64(op.UserID),
		Delta:       op.Delta,
		Description: op.Description,
		Timestamp:   op.Timestamp,
		Time:        op.Time().UTC().Format(time.RFC3339),
	}
}

func toOperationDTOs(ops []economy.Operation) []OperationDTO {
	dtos := make([]OperationDTO, len(ops))
	for i, op := range ops {
		dtos[i] = toOperationDTO(op)
	}
	return dtos
}

func toCooldownDTO(e cooldown.Entry, now time.Time) CooldownDTO {
	return CooldownDTO{
		BucketKey:        e.BucketKey,
		Name:             e.Name,
		ExpiresAt:        e.ExpiresAt,
		CreatedAt:        e.CreatedAt,
		RemainingSeconds: int64(e.Remaining(now) / time.Second),
		Progress:         e.Progress(now),
		Metadata:         e.Metadata,
	}
}
