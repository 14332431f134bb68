/*
handlers.go - HTTP API handlers for the economy engine

PURPOSE:
  Exposes the ledger and the cooldown manager to admin tooling. Handles
  HTTP request/response, JSON serialization and validation, and delegates
  to the domain packages.

ENDPOINTS:
  Accounts:
    GET    /api/accounts/{id}             Account (created on first read)
    POST   /api/accounts/{id}/deposit     Credit
    POST   /api/accounts/{id}/withdraw    Debit
    POST   /api/accounts/{id}/assign      Set to an absolute value
    POST   /api/accounts/{id}/reverse     Reverse one operation
    POST   /api/accounts/{id}/rollback    Reverse back to (and including) one operation
    GET    /api/accounts/{id}/operations  Recent operations, newest first
    GET    /api/accounts/{id}/variation   Net change since a time
    GET    /api/accounts/{id}/audit       Replay the log against the balance
    POST   /api/accounts/{id}/rank        Rank within a group

  Transfers / operations:
    POST   /api/transfers                 Move funds between two accounts
    GET    /api/operations/{id}           Operation lookup

  Cooldowns:
    GET    /api/cooldowns/{kind}/{id}                 Live cooldowns of an entity
    DELETE /api/cooldowns/{kind}/{id}                 Clear an entity
    PUT    /api/cooldowns/{kind}/{id}/{name}          Start a cooldown
    PATCH  /api/cooldowns/{kind}/{id}/{name}          Move an expiry
    DELETE /api/cooldowns/{kind}/{id}/{name}          Remove a cooldown
    GET    /api/cooldowns/names/{name}/entities       Entities holding a cooldown
    GET    /api/cooldowns/names/{name}/stats          Statistics for a name
    GET    /api/cooldowns/buckets                     Buckets with a live cooldown
    POST   /api/cooldowns/cleanup                     Delete expired rows

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amount or duration, unknown entity kind
  - 403: Operation belongs to another account
  - 404: Operation or cooldown not found
  - 409: Insufficient funds, cooldown active (with Retry-After)
  - 500: Storage conflicts and internal errors

SECURITY NOTE:
  No authentication. Bind to a private interface.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/economy-engine/cooldown"
	"github.com/warp/economy-engine/economy"
)

const (
	defaultOperationsLimit = 10
	maxOperationsLimit     = 100
	defaultVariationWindow = 24 * time.Hour
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *economy.Ledger
	Cooldowns *cooldown.Manager

	validate *validator.Validate
}

// NewHandler creates a new handler over a ledger and a cooldown manager.
func NewHandler(ledger *economy.Ledger, cooldowns *cooldown.Manager) *Handler {
	return &Handler{
		Ledger:    ledger,
		Cooldowns: cooldowns,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) now() time.Time {
	if h.Cooldowns != nil && h.Cooldowns.Now != nil {
		return h.Cooldowns.Now()
	}
	return time.Now().UTC()
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// GetAccount returns an account, creating it with the starting balance.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	account, err := h.Ledger.Account(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to load account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// Deposit credits an account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	op, err := h.Ledger.Deposit(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, "Deposit failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationDTO(op))
}

// Withdraw debits an account. Overdrafts are rejected with 409.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	op, err := h.Ledger.Withdraw(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, "Withdrawal failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationDTO(op))
}

// Assign sets an account to an absolute value.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}

	op, changed, err := h.Ledger.Assign(r.Context(), userID, *req.Value, req.Description)
	if err != nil {
		writeDomainError(w, "Assignment failed", err)
		return
	}

	resp := AssignResponse{Changed: changed}
	if changed {
		dto := toOperationDTO(op)
		resp.Operation = &dto
	}
	account, err := h.Ledger.Account(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to load account", err)
		return
	}
	resp.Account = toAccountDTO(account)
	writeJSON(w, http.StatusOK, resp)
}

// Reverse appends the inverse of one operation.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req OperationRefRequest
	if !h.decode(w, r, &req) {
		return
	}

	op, err := h.Ledger.Reverse(r.Context(), userID, economy.OperationID(req.OperationID))
	if err != nil {
		writeDomainError(w, "Reversal failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationDTO(op))
}

// Rollback reverses every operation back to and including the target.
func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req OperationRefRequest
	if !h.decode(w, r, &req) {
		return
	}

	reversals, err := h.Ledger.Rollback(r.Context(), userID, economy.OperationID(req.OperationID))
	if err != nil {
		writeDomainError(w, "Rollback failed", err)
		return
	}
	account, err := h.Ledger.Account(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to load account", err)
		return
	}
	writeJSON(w, http.StatusOK, RollbackResponse{
		Reversals: toOperationDTOs(reversals),
		Account:   toAccountDTO(account),
	})
}

// GetOperations returns the most recent operations of an account.
func (h *Handler) GetOperations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	limit := defaultOperationsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxOperationsLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxOperationsLimit), err)
			return
		}
		limit = n
	}

	ops, err := h.Ledger.RecentOperations(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, "Failed to list operations", err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationDTOs(ops))
}

// GetVariation returns the net change since ?since=, which is either an
// RFC3339 time or a duration back from now. Defaults to the last 24 hours.
func (h *Handler) GetVariation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	since, err := parseSince(r.URL.Query().Get("since"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid since", err)
		return
	}

	variation, err := h.Ledger.VariationSince(r.Context(), userID, since)
	if err != nil {
		writeDomainError(w, "Failed to compute variation", err)
		return
	}
	writeJSON(w, http.StatusOK, VariationDTO{
		UserID:    int64(userID),
		Since:     since.UTC().Format(time.RFC3339),
		Variation: variation,
	})
}

// GetAudit replays the operation log of an account.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	audit, err := h.Ledger.Verify(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Audit failed", err)
		return
	}
	writeJSON(w, http.StatusOK, AuditDTO{
		UserID:     int64(audit.UserID),
		Stored:     audit.Stored,
		Replayed:   audit.Replayed,
		Drift:      audit.Drift(),
		Consistent: audit.Consistent(),
	})
}

// RankInGroup ranks an account by balance among the given candidates.
func (h *Handler) RankInGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req RankRequest
	if !h.decode(w, r, &req) {
		return
	}

	candidates := make([]economy.UserID, len(req.Candidates))
	for i, id := range req.Candidates {
		candidates[i] = economy.UserID(id)
	}
	rank, found, err := h.Ledger.RankInGroup(r.Context(), userID, candidates)
	if err != nil {
		writeDomainError(w, "Ranking failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RankResponse{Rank: rank, Found: found, Size: len(candidates)})
}

// =============================================================================
// TRANSFER / OPERATION HANDLERS
// =============================================================================

// CreateTransfer moves funds atomically between two accounts.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	transfer, err := h.Ledger.Transfer(r.Context(),
		economy.UserID(req.From), economy.UserID(req.To), req.Amount, req.Description)
	if err != nil {
		writeDomainError(w, "Transfer failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, TransferDTO{
		Debit:  toOperationDTO(transfer.Debit),
		Credit: toOperationDTO(transfer.Credit),
	})
}

// GetOperation looks an operation up by id.
func (h *Handler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op, err := h.Ledger.Operation(r.Context(), economy.OperationID(id))
	if err != nil {
		writeDomainError(w, "Failed to load operation", err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationDTO(op))
}

// =============================================================================
// COOLDOWN HANDLERS
// =============================================================================

// ListCooldowns returns the live cooldowns of an entity.
func (h *Handler) ListCooldowns(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucketParam(w, r)
	if !ok {
		return
	}
	entries, err := bucket.All(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list cooldowns", err)
		return
	}

	now := h.now()
	dtos := make([]CooldownDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toCooldownDTO(e, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClearCooldowns removes every cooldown of an entity.
func (h *Handler) ClearCooldowns(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucketParam(w, r)
	if !ok {
		return
	}
	n, err := bucket.Clear(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to clear cooldowns", err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: n})
}

// SetCooldown starts or restarts a named cooldown.
func (h *Handler) SetCooldown(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucketParam(w, r)
	if !ok {
		return
	}
	var req SetCooldownRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := bucket.Set(r.Context(), chi.URLParam(r, "name"),
		time.Duration(req.Seconds)*time.Second, req.Metadata)
	if err != nil {
		writeDomainError(w, "Failed to set cooldown", err)
		return
	}
	writeJSON(w, http.StatusOK, toCooldownDTO(entry, h.now()))
}

// UpdateCooldown moves the expiry of a live cooldown. It never creates one.
func (h *Handler) UpdateCooldown(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucketParam(w, r)
	if !ok {
		return
	}
	var req UpdateCooldownRequest
	if !h.decode(w, r, &req) {
		return
	}

	update := cooldown.ExpiryUpdate{Duration: time.Duration(req.Seconds) * time.Second}
	if req.ExpiresAt > 0 {
		update.At = time.Unix(req.ExpiresAt, 0)
	}

	name := chi.URLParam(r, "name")
	updated, err := bucket.UpdateExpiration(r.Context(), name, update)
	if err != nil {
		writeDomainError(w, "Failed to update cooldown", err)
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "Cooldown not found", nil)
		return
	}

	entry, found, err := bucket.Get(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to load cooldown", err)
		return
	}
	if !found {
		// An absolute expiry in the past ends the cooldown immediately.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toCooldownDTO(entry, h.now()))
}

// RemoveCooldown deletes a named cooldown.
func (h *Handler) RemoveCooldown(w http.ResponseWriter, r *http.Request) {
	bucket, ok := h.bucketParam(w, r)
	if !ok {
		return
	}
	removed, err := bucket.Remove(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, "Failed to remove cooldown", err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Cooldown not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEntitiesWithCooldown lists every entity holding a live cooldown of a name.
func (h *Handler) ListEntitiesWithCooldown(w http.ResponseWriter, r *http.Request) {
	holders, err := h.Cooldowns.EntitiesWithCooldown(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, "Failed to list entities", err)
		return
	}

	now := h.now()
	dtos := make([]EntityCooldownDTO, len(holders))
	for i, holder := range holders {
		dtos[i] = EntityCooldownDTO{
			Kind:     string(holder.Entity.Kind),
			ID:       holder.Entity.ID,
			Cooldown: toCooldownDTO(holder.Cooldown, now),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCooldownStatistics summarizes one cooldown name.
func (h *Handler) GetCooldownStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Cooldowns.Statistics(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsDTO{
		Name:        stats.Name,
		Active:      stats.Active,
		Expired:     stats.Expired,
		Total:       stats.Total(),
		EntityTypes: stats.EntityTypes,
	})
}

// ListActiveBuckets returns the keys of buckets holding a live cooldown.
func (h *Handler) ListActiveBuckets(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Cooldowns.ActiveBuckets(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list buckets", err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// CleanupCooldowns deletes every expired cooldown now.
func (h *Handler) CleanupCooldowns(w http.ResponseWriter, r *http.Request) {
	n, err := h.Cooldowns.CleanupExpired(r.Context())
	if err != nil {
		writeDomainError(w, "Cleanup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: n})
}

// =============================================================================
// HELPERS
// =============================================================================

func userIDParam(w http.ResponseWriter, r *http.Request) (economy.UserID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid account id", err)
		return 0, false
	}
	return economy.UserID(id), true
}

func (h *Handler) bucketParam(w http.ResponseWriter, r *http.Request) (*cooldown.Bucket, bool) {
	entity := cooldown.Entity{
		Kind: cooldown.Kind(chi.URLParam(r, "kind")),
		ID:   chi.URLParam(r, "id"),
	}
	bucket, err := h.Cooldowns.Bucket(entity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entity", err)
		return nil, false
	}
	return bucket, true
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.Add(-defaultVariationWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 time or duration, got %q", raw)
	}
	if d < 0 {
		return time.Time{}, fmt.Errorf("duration must not be negative, got %s", d)
	}
	return now.Add(-d), nil
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, cooldown.ErrInvalidDuration),
		errors.Is(err, cooldown.ErrUnknownEntityKind),
		errors.Is(err, cooldown.ErrInvalidEntity):
		return http.StatusBadRequest
	case errors.Is(err, economy.ErrAccount):
		return http.StatusForbidden
	case errors.Is(err, economy.ErrOperationNotFound),
		errors.Is(err, cooldown.ErrCooldownNotFound):
		return http.StatusNotFound
	case errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, cooldown.ErrCooldownActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	if remaining, ok := cooldown.RemainingOf(err); ok {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(math.Ceil(remaining.Seconds())), 10))
	}
	writeError(w, statusOf(err), message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
