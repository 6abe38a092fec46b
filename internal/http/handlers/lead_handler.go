// Lead HTTP handlers.
//
// This file exposes REST endpoints for lead resources:
//   - POST   /leads        (create, public, optional Idempotency-Key)
//   - GET    /leads        (list, authenticated, ETag support)
//   - GET    /leads/{id}   (fetch one, authenticated)
//   - PUT    /leads/{id}   (replace state, authenticated)
//
// Handlers are transport-thin: they decode input, call the lead service,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/errcode"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/utils"
)

// CreateLeadScope namespaces idempotency records written by CreateLead.
const CreateLeadScope = "POST /leads"

// HeaderReplayed marks a response served from a stored idempotent result.
const HeaderReplayed = "Idempotency-Replayed"

//
// Service contracts (context-aware)
//

// LeadService defines the lead lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type LeadService interface {
	// Create validates input and stores a new PENDING lead.
	Create(ctx context.Context, in services.CreateLeadInput) (*domain.Lead, error)
	// List returns every lead in insertion order.
	List(ctx context.Context) ([]domain.Lead, error)
	// Get returns one lead by id.
	Get(ctx context.Context, id uint) (*domain.Lead, error)
	// UpdateState replaces the lead's state and refreshes updated_at.
	UpdateState(ctx context.Context, id uint, state string) (*domain.Lead, error)
}

// Notifier schedules submission notifications. Enqueue must not block;
// it reports false when the job was dropped.
type Notifier interface {
	Enqueue(ctx context.Context, s notify.Submission) bool
}

// StoredResult is the outcome recorded for an Idempotency-Key.
type StoredResult struct {
	LeadID      uint
	Fingerprint string // services.CreateLeadInput.Fingerprint of the creating payload
}

// IdempotencyStore persists the outcome of keyed create requests.
type IdempotencyStore interface {
	// Find returns the result stored for an unexpired (scope, key).
	Find(ctx context.Context, scope, key string, now time.Time) (res StoredResult, found bool, err error)
	// Save records the lead produced for (scope, key) by the payload with
	// the given fingerprint.
	Save(ctx context.Context, scope, key, fingerprint string, leadID uint, status int) error
}

// ListVersion returns the fingerprint of the lead collection used for ETags.
type ListVersion func(ctx context.Context) (count int64, maxUpdatedAt *time.Time, err error)

//
// Handler wiring
//

// Handlers groups the lead endpoints. Only the lead service is required;
// notification, idempotency and ETag support are enabled through options.
type Handlers struct {
	leads    LeadService
	notifier Notifier
	idem     IdempotencyStore
	version  ListVersion
	now      func() time.Time
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithNotifier enables submission notifications after successful creates.
func WithNotifier(n Notifier) Option { return func(h *Handlers) { h.notifier = n } }

// WithIdempotency enables Idempotency-Key replay on create.
func WithIdempotency(s IdempotencyStore) Option { return func(h *Handlers) { h.idem = s } }

// WithListVersion enables weak ETags on the list endpoint.
func WithListVersion(v ListVersion) Option { return func(h *Handlers) { h.version = v } }

// New constructs Handlers bound to the given lead service.
func New(leads LeadService, opts ...Option) *Handlers {
	h := &Handlers{leads: leads, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(h)
	}
	return h
}

//
// DTOs
//

// UpdateLeadStateRequest is the JSON payload for changing a lead's state.
type UpdateLeadStateRequest struct {
	// State is one of PENDING or REACHED_OUT (case-sensitive).
	State string `json:"state" example:"REACHED_OUT" enums:"PENDING,REACHED_OUT"`
}

//
// Helpers
//

// pathID parses the {id} segment, writing a 422 on failure.
func pathID(c *gin.Context) (uint, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		failDetails(c, http.StatusUnprocessableEntity, errcode.Validation, "invalid lead id",
			[]services.FieldError{{Field: "id", Message: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}

// etagMatches reports whether any entity tag in an If-None-Match header
// equals etag. Weak comparison applies, so a W/ prefix on either side is ignored.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, part := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(part), "W/") == want {
			return true
		}
	}
	return false
}

// replay answers a repeated Idempotency-Key. The stored lead is served only
// when fp matches the payload that created it; a key reused with another
// payload is rejected with 422. It returns false when nothing usable is
// stored, letting the create proceed.
func (h *Handlers) replay(c *gin.Context, key, fp string) bool {
	ctx := c.Request.Context()
	res, found, err := h.idem.Find(ctx, CreateLeadScope, key, h.now())
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency find failed")
		return false
	}
	if !found {
		return false
	}
	if res.Fingerprint != fp {
		fail(c, http.StatusUnprocessableEntity, errcode.BadIdempotencyKey,
			"Idempotency-Key was already used with a different payload")
		return true
	}
	lead, err := h.leads.Get(ctx, res.LeadID)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Uint("lead_id", res.LeadID).Msg("idempotent lead unavailable")
		return false
	}
	c.Header(HeaderReplayed, "true")
	ok(c, http.StatusCreated, lead)
	return true
}

//
// Handlers
//

// CreateLead godoc
// @ID          createLead
// @Summary     Submit a lead
// @Description Stores a new lead in state PENDING and schedules the prospect and internal notifications.
// @Description A repeated Idempotency-Key with the same payload within its TTL returns the originally created lead without notifying again.
// @Description Reusing a key with a different payload is rejected with 422 bad_idempotency_key.
// @Tags        Leads
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Client retry key"  example(2b7c1f7e-signup)
// @Param       body             body    services.CreateLeadInput  true  "Lead payload"
//
// @Success     201  {object}  domain.Lead
// @Header      201  {string}  Idempotency-Replayed  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed Idempotency-Key"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already submitted"
// @Failure     422  {object}  handlers.ErrorResponse  "Validation failed or Idempotency-Key reused with another payload"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /leads [post]
func (h *Handlers) CreateLead(c *gin.Context) {
	var in services.CreateLeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, errcode.Validation, "invalid JSON body")
		return
	}

	key, keyed := middleware.GetIdempotencyKey(c)
	keyed = keyed && h.idem != nil

	var fp string
	if keyed {
		norm, err := services.ValidateCreation(in)
		if err != nil {
			failErr(c, err)
			return
		}
		fp = norm.Fingerprint()
		if h.replay(c, key, fp) {
			return
		}
	}

	ctx := c.Request.Context()
	lead, err := h.leads.Create(ctx, in)
	if err != nil {
		failErr(c, err)
		return
	}

	if keyed {
		if err := h.idem.Save(ctx, CreateLeadScope, key, fp, lead.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Uint("lead_id", lead.ID).Msg("idempotency save failed")
		}
	}

	ok(c, http.StatusCreated, lead)

	if h.notifier != nil {
		// Detached from the request so a finished response does not cancel the job.
		h.notifier.Enqueue(context.WithoutCancel(ctx), notify.SubmissionFromLead(lead))
	}
}

// ListLeads godoc
// @ID          listLeads
// @Summary     List leads
// @Description Returns every lead in submission order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Leads
// @Produce     json
// @Security    BasicAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"leads:3:1735725600000000000\")
//
// @Success     200  {array}   domain.Lead
// @Header      200  {string}  ETag           "Weak ETag for current result"
// @Header      200  {string}  Cache-Control  "Caching directives"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /leads [get]
func (h *Handlers) ListLeads(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if h.version != nil {
		count, maxTS, err := h.version(ctx)
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("lead list version unavailable")
		} else {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"leads:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if etagMatches(c.GetHeader("If-None-Match"), etag) {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.leads.List(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Lead{}
	}
	ok(c, http.StatusOK, items)
}

// GetLead godoc
// @ID          getLead
// @Summary     Get a lead
// @Description Returns a single lead by id.
// @Tags        Leads
// @Produce     json
// @Security    BasicAuth
//
// @Param       id  path  int  true  "Lead ID"  minimum(1) example(1)
//
// @Success     200  {object}  domain.Lead
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse "Lead not found"
// @Failure     422  {object}  handlers.ErrorResponse "Invalid id"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /leads/{id} [get]
func (h *Handlers) GetLead(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	lead, err := h.leads.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, lead)
}

// UpdateLeadState godoc
// @ID          updateLeadState
// @Summary     Change a lead's state
// @Description Replaces the state of a lead and refreshes updated_at. Any state may move to any other, including itself.
// @Tags        Leads
// @Accept      json
// @Produce     json
// @Security    BasicAuth
//
// @Param       id    path  int  true  "Lead ID"  minimum(1) example(1)
// @Param       body  body  handlers.UpdateLeadStateRequest  true  "New state"
//
// @Success     200  {object}  domain.Lead
// @Failure     401  {object}  handlers.ErrorResponse "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse "Lead not found"
// @Failure     422  {object}  handlers.ErrorResponse "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /leads/{id} [put]
func (h *Handlers) UpdateLeadState(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req UpdateLeadStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, errcode.Validation, "invalid JSON body")
		return
	}

	lead, err := h.leads.UpdateState(c.Request.Context(), id, req.State)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, lead)
}
