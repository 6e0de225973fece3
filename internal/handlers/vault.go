// Package handlers exposes every vault operation over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terminal-bench/timevault/internal/middleware"
	"github.com/terminal-bench/timevault/internal/vault"
	"github.com/terminal-bench/timevault/pkg/amount"
)

// Handler wires the vault into gin routes. The cache is optional; when nil
// every read goes straight to the vault.
type Handler struct {
	vault *vault.Vault
	cache *PaymentCache
}

// NewHandler creates a handler over the vault.
func NewHandler(v *vault.Vault, cache *PaymentCache) *Handler {
	return &Handler{vault: v, cache: cache}
}

// Register mounts all vault routes on the (authenticated) group.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/payments", h.authorizePayment)
	r.GET("/payments", h.listPayments)
	r.GET("/payments/:idx", h.getPayment)
	r.POST("/payments/:idx/collect", h.collectPayment)
	r.POST("/payments/:idx/delay", h.delayPayment)
	r.POST("/payments/:idx/cancel", h.cancelPayment)
	r.POST("/deposits", h.deposit)
	r.POST("/escape", h.escapeHatch)
	r.PUT("/escape/caller", h.changeEscapeCaller)
	r.PUT("/spenders/:principal", h.setAuthorized)
	r.PUT("/owner", h.transferOwnership)
	r.PUT("/config/timelock", h.setTimeLock)
	r.PUT("/config/guard", h.setSecurityGuard)
	r.PUT("/config/guard-delay", h.setMaxGuardDelay)
	r.GET("/balance", h.balance)
}

type paymentView struct {
	Index           int    `json:"index"`
	Name            string `json:"name"`
	Reference       string `json:"reference"`
	Spender         string `json:"spender"`
	Recipient       string `json:"recipient"`
	Amount          string `json:"amount"`
	EarliestPayTime uint64 `json:"earliest_pay_time"`
	GuardDelay      uint64 `json:"guard_delay"`
	Status          string `json:"status"`
}

func viewOf(idx int, p vault.Payment) paymentView {
	return paymentView{
		Index:           idx,
		Name:            p.Name,
		Reference:       p.Reference.String(),
		Spender:         string(p.Spender),
		Recipient:       string(p.Recipient),
		Amount:          p.Amount.String(),
		EarliestPayTime: p.EarliestPayTime,
		GuardDelay:      p.GuardDelay,
		Status:          string(p.Status()),
	}
}

// statusFor maps vault errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrInvalidParameter):
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func caller(c *gin.Context) (vault.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated principal"})
	}
	return p, ok
}

func paymentIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return 0, false
	}
	return idx, true
}

func (h *Handler) authorizePayment(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Name           string `json:"name"`
		Reference      string `json:"reference"`
		Recipient      string `json:"recipient"`
		Amount         string `json:"amount"`
		DelayRequested uint64 `json:"delay_requested"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amt, err := amount.Parse(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reference := uuid.New()
	if req.Reference != "" {
		reference, err = uuid.Parse(req.Reference)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference"})
			return
		}
	}

	idx, err := h.vault.AuthorizePayment(p, req.Name, reference, vault.Principal(req.Recipient), amt, req.DelayRequested)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": idx, "reference": reference.String()})
}

func (h *Handler) getPayment(c *gin.Context) {
	idx, ok := paymentIndex(c)
	if !ok {
		return
	}

	if h.cache != nil {
		if view, hit := h.cache.Get(c.Request.Context(), idx); hit {
			c.JSON(http.StatusOK, view)
			return
		}
	}

	p, err := h.vault.Payment(idx)
	if err != nil {
		fail(c, err)
		return
	}
	view := viewOf(idx, p)
	if h.cache != nil {
		h.cache.Set(c.Request.Context(), idx, view)
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listPayments(c *gin.Context) {
	payments := h.vault.Payments()
	views := make([]paymentView, len(payments))
	for i, p := range payments {
		views[i] = viewOf(i, p)
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) collectPayment(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	idx, ok := paymentIndex(c)
	if !ok {
		return
	}

	if err := h.vault.CollectPayment(p, idx); err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c, idx)
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (h *Handler) delayPayment(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	idx, ok := paymentIndex(c)
	if !ok {
		return
	}

	var req struct {
		ExtraDelay uint64 `json:"extra_delay"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.DelayPayment(p, idx, req.ExtraDelay); err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c, idx)
	c.JSON(http.StatusOK, gin.H{"status": "delayed"})
}

func (h *Handler) cancelPayment(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	idx, ok := paymentIndex(c)
	if !ok {
		return
	}

	if err := h.vault.CancelPayment(p, idx); err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c, idx)
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

func (h *Handler) deposit(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amt, err := amount.Parse(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.Deposit(p, amt); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": h.vault.Balance().String()})
}

func (h *Handler) escapeHatch(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	drained, err := h.vault.EscapeHatch(p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drained":     drained.String(),
		"destination": string(h.vault.EscapeDestination()),
	})
}

func (h *Handler) changeEscapeCaller(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		NewCaller string `json:"new_caller"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.ChangeEscapeCaller(p, vault.Principal(req.NewCaller)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escape_caller": req.NewCaller})
}

func (h *Handler) setAuthorized(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Authorized bool `json:"authorized"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spender := vault.Principal(c.Param("principal"))
	if err := h.vault.SetAuthorized(p, spender, req.Authorized); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"principal": string(spender), "authorized": req.Authorized})
}

func (h *Handler) transferOwnership(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		NewOwner string `json:"new_owner"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.TransferOwnership(p, vault.Principal(req.NewOwner)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": req.NewOwner})
}

func (h *Handler) setTimeLock(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Value uint64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.SetTimeLock(p, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"time_lock": req.Value})
}

func (h *Handler) setSecurityGuard(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Principal string `json:"principal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.SetSecurityGuard(p, vault.Principal(req.Principal)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"security_guard": req.Principal})
}

func (h *Handler) setMaxGuardDelay(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Value uint64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.vault.SetMaxSecurityGuardDelay(p, req.Value); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"max_guard_delay": req.Value})
}

func (h *Handler) balance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"balance": h.vault.Balance().String()})
}

func (h *Handler) invalidate(c *gin.Context, idx int) {
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context(), idx)
	}
}
