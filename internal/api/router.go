// Package api exposes the ledger core over HTTP.
//
// Authentication happens upstream; the gateway forwards the caller's tenant
// and user in the X-Organization-ID and X-User-ID headers.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Mudegi/YourBookSuit-sub007/internal/accounts"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ibt"
	"github.com/Mudegi/YourBookSuit-sub007/internal/importer"
	"github.com/Mudegi/YourBookSuit-sub007/internal/journal"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/reconcile"
)

// Services are the core components the handlers call.
type Services struct {
	Accounts  *accounts.Service
	Poster    *ledger.Poster
	Lifecycle *ledger.Lifecycle
	Transfers *ibt.Workflow
	Journal   *journal.Service
	Bank      *reconcile.Service
	Parsers   *importer.Registry
	Logger    *slog.Logger
}

type contextKey string

const (
	contextKeyOrg  contextKey = "org"
	contextKeyUser contextKey = "user"

	HeaderOrganization = "X-Organization-ID"
	HeaderUser         = "X-User-ID"
)

// TenantMiddleware requires an organization header and stores it and the
// optional user in the request context.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := r.Header.Get(HeaderOrganization)
		if org == "" {
			writeJSONError(w, http.StatusBadRequest, "missing_organization", "Missing "+HeaderOrganization+" header")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyOrg, org)
		ctx = context.WithValue(ctx, contextKeyUser, r.Header.Get(HeaderUser))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func orgID(r *http.Request) string {
	s, _ := r.Context().Value(contextKeyOrg).(string)
	return s
}

func userID(r *http.Request) string {
	s, _ := r.Context().Value(contextKeyUser).(string)
	return s
}

// requestLogger logs each request at Info with its status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"org", r.Header.Get(HeaderOrganization))
		})
	}
}

// NewRouter builds the HTTP handler for s.
func NewRouter(s Services) http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Parsers == nil {
		s.Parsers = importer.DefaultRegistry()
	}
	h := &handler{Services: s}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Post("/tax/calculate", h.calculateTax)
		r.Post("/tax/summary", h.summarizeTax)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.listAccounts)
			r.Post("/", h.createAccount)
			r.Get("/{id}", h.getAccount)
			r.Patch("/{id}", h.updateAccount)
			r.Delete("/{id}", h.deleteAccount)
			r.Post("/{id}/deactivate", h.deactivateAccount)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.listTransactions)
			r.Post("/", h.createTransaction)
			r.Post("/bulk-post", h.bulkPost)
			r.Get("/{id}", h.getTransaction)
			r.Put("/{id}/entries", h.editTransaction)
			r.Delete("/{id}", h.deleteTransaction)
			r.Post("/{id}/post", h.postTransaction)
			r.Post("/{id}/void", h.voidTransaction)
			r.Post("/{id}/cancel", h.cancelTransaction)
		})

		r.Post("/journal/import", h.importJournal)
		r.Get("/journal/export", h.exportJournal)

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.listTransfers)
			r.Post("/", h.createTransfer)
			r.Get("/{id}", h.getTransfer)
			r.Get("/{id}/clearing-balance", h.transferClearingBalance)
			r.Post("/{id}/{action}", h.transferAction)
		})

		r.Route("/bank", func(r chi.Router) {
			r.Post("/feeds", h.createFeed)
			r.Post("/feeds/{feed}/import", h.importStatement)
			r.Post("/documents", h.registerDocument)
			r.Post("/rules", h.createRule)
			r.Get("/transactions", h.listBankTransactions)
			r.Get("/transactions/{id}/suggestions", h.suggest)
			r.Post("/transactions/{id}/automatch", h.autoMatch)
			r.Post("/transactions/{id}/match", h.match)
			r.Post("/transactions/{id}/ignore", h.ignore)
			r.Post("/automatch", h.bulkAutoMatch)
		})

		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", h.startReconciliation)
			r.Get("/{id}", h.reconciliationSummary)
			r.Post("/{id}/clear", h.clearItems)
			r.Post("/{id}/unclear", h.unclearItems)
			r.Post("/{id}/finalize", h.finalizeReconciliation)
		})

		r.Get("/balances/drift", h.balanceDrift)
		r.Post("/balances/rebuild", h.rebuildBalances)
	})

	return r
}

type handler struct {
	Services
}
