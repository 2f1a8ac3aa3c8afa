package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/usecase"
)

// SyncController is the slice of the sync engine the control API drives.
type SyncController interface {
	Run(ctx context.Context) error
	Status() usecase.SyncStatus
	ConnectivityRestored()
}

// SessionManager resolves and switches the signed-in account.
type SessionManager interface {
	usecase.IdentityResolver
	SetToken(token string)
	SignOut(ctx context.Context) error
}

type Handler struct {
	data      *usecase.DataService
	sync      SyncController
	session   SessionManager
	clock     *usecase.ClockService
	feed      *usecase.FeedService
	viewers   *usecase.ViewerManager
	ticker    clockwork.Clock
	tickEvery time.Duration
	logger    *logging.Logger
	validator *validator.Validate
}

type HandlerOptions struct {
	// TickClock drives the clock event stream. Defaults to the real clock.
	TickClock    clockwork.Clock
	TickInterval time.Duration
	Logger       *logging.Logger
}

func NewHandler(
	data *usecase.DataService,
	sync SyncController,
	session SessionManager,
	clock *usecase.ClockService,
	feed *usecase.FeedService,
	viewers *usecase.ViewerManager,
	opts HandlerOptions,
) *Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.TickClock == nil {
		opts.TickClock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = usecase.DefaultTickInterval
	}

	return &Handler{
		data:      data,
		sync:      sync,
		session:   session,
		clock:     clock,
		feed:      feed,
		viewers:   viewers,
		ticker:    opts.TickClock,
		tickEvery: opts.TickInterval,
		logger:    opts.Logger.Named("httpapi"),
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON reads a request DTO, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	err := decodeJSON(r, dst)
	if err != nil && strings.Contains(err.Error(), io.EOF.Error()) {
		return nil
	}
	return err
}

func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", fmt.Errorf("%w: id is required", usecase.ErrInvalidInput)
	}
	return id, nil
}
