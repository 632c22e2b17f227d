package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/api/httpx"
	"github.com/greenloop/carbon-market/internal/api/validate"
	"github.com/greenloop/carbon-market/internal/config"
	"github.com/greenloop/carbon-market/internal/metrics"
	"github.com/greenloop/carbon-market/internal/middleware"
	"github.com/greenloop/carbon-market/internal/models"
	"github.com/greenloop/carbon-market/internal/services"
)

type Deps struct {
	Cfg        config.Config
	Auth       *middleware.AuthMiddleware
	UserSvc    *services.UserService
	WalletSvc  *services.WalletService
	CreditSvc  *services.CreditService
	ListingSvc *services.ListingService
	DisputeSvc *services.DisputeService
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Username string `json:"username"`
				Email    string `json:"email"`
				Password string `json:"password"`
				Role     string `json:"role"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad request", nil)
				return
			}
			role, err := models.ParseRole(req.Role)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
				return
			}
			u, err := d.UserSvc.Register(r.Context(), req.Username, req.Email, req.Password, role)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, u)
		})

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Email, Password string }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad request", nil)
				return
			}
			pair, err := d.UserSvc.Login(r.Context(), req.Email, req.Password)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, pair)
		})

		r.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
				httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad request", nil)
				return
			}
			pair, err := d.UserSvc.Refresh(req.RefreshToken)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, pair)
		})

		// ---------- authenticated ----------
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Auth)

			// wallets
			r.Get("/wallets/current", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				wlt, err := d.WalletSvc.GetOrCreate(r.Context(), actor.UserID)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, wlt)
			})

			r.Post("/wallets/deposit", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				amount, ok := decodeAmount(w, r)
				if !ok {
					return
				}
				wlt, err := d.WalletSvc.Credit(r.Context(), actor.UserID, models.BalanceCash, amount)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, wlt)
			})

			r.Post("/wallets/withdraw", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				amount, ok := decodeAmount(w, r)
				if !ok {
					return
				}
				wlt, err := d.WalletSvc.Debit(r.Context(), actor.UserID, models.BalanceCash, amount)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, wlt)
			})

			// credits
			r.Post("/credits", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				var req struct {
					CO2ReducedKg float64         `json:"co2_reduced_kg"`
					CreditAmount decimal.Decimal `json:"credit_amount"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad request", nil)
					return
				}
				c, err := d.CreditSvc.Submit(r.Context(), actor.UserID, req.CO2ReducedKg, req.CreditAmount)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, c)
			})

			r.Get("/credits", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				owner := r.URL.Query().Get("owner_id")
				if owner == "" {
					owner = actor.UserID
				}
				cs, err := d.CreditSvc.ListByOwner(r.Context(), owner)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, cs)
			})

			r.Get("/credits/{id}/audit", func(w http.ResponseWriter, r *http.Request) {
				logs, err := d.CreditSvc.AuditTrail(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, logs)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleVerifier))

				r.Post("/credits/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
					actor, _ := middleware.ActorFrom(r.Context())
					var req struct {
						Comments string `json:"comments"`
					}
					_ = json.NewDecoder(r.Body).Decode(&req)
					c, err := d.CreditSvc.Verify(r.Context(), chi.URLParam(r, "id"), actor, req.Comments)
					if err != nil {
						httpx.WriteDomainError(w, err)
						return
					}
					httpx.WriteJSON(w, http.StatusOK, c)
				})

				r.Post("/credits/{id}/reject", func(w http.ResponseWriter, r *http.Request) {
					actor, _ := middleware.ActorFrom(r.Context())
					var req struct {
						Reason string `json:"reason"`
					}
					_ = json.NewDecoder(r.Body).Decode(&req)
					c, err := d.CreditSvc.Reject(r.Context(), chi.URLParam(r, "id"), actor, req.Reason)
					if err != nil {
						httpx.WriteDomainError(w, err)
						return
					}
					httpx.WriteJSON(w, http.StatusOK, c)
				})
			})

			// listings
			r.Post("/listings", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				var req struct {
					CreditID       string          `json:"credit_id"`
					Type           string          `json:"type"`
					Price          decimal.Decimal `json:"price"`
					MinBid         decimal.Decimal `json:"min_bid"`
					AuctionEndTime *time.Time      `json:"auction_end_time"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad request", nil)
					return
				}
				var errs validate.Errs
				if e := validate.Required("credit_id", req.CreditID); e != nil {
					errs = append(errs, *e)
				}
				if e := validate.Required("type", req.Type); e != nil {
					errs = append(errs, *e)
				}
				if len(errs) > 0 {
					httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", errs.Error(), errs)
					return
				}
				l, err := d.ListingSvc.CreateListing(r.Context(), actor, services.CreateListingInput{
					CreditID:       req.CreditID,
					Type:           models.ListingType(req.Type),
					Price:          req.Price,
					MinBid:         req.MinBid,
					AuctionEndTime: req.AuctionEndTime,
				})
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, l)
			})

			r.Get("/listings", func(w http.ResponseWriter, r *http.Request) {
				ls, err := d.ListingSvc.ListActive(r.Context())
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, ls)
			})

			r.Get("/listings/{id}", func(w http.ResponseWriter, r *http.Request) {
				l, err := d.ListingSvc.GetByID(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, l)
			})

			r.Get("/listings/{id}/bids", func(w http.ResponseWriter, r *http.Request) {
				bs, err := d.ListingSvc.BidHistory(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, bs)
			})

			r.Post("/listings/{id}/bid", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				amount, ok := decodeAmount(w, r)
				if !ok {
					return
				}
				highest, err := d.ListingSvc.PlaceBid(r.Context(), actor, chi.URLParam(r, "id"), amount)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]any{
					"accepted":            true,
					"current_highest_bid": highest,
				})
			})

			r.Post("/listings/{id}/buy", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				txn, err := d.ListingSvc.BuyNow(r.Context(), actor, chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]string{"transaction_id": txn.ID})
			})

			r.Post("/listings/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				l, err := d.ListingSvc.CancelListing(r.Context(), actor, chi.URLParam(r, "id"))
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, l)
			})

			// transactions & disputes
			r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				limit, offset := 50, 0
				if v := r.URL.Query().Get("limit"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n > 0 {
						limit = n
					}
				}
				if v := r.URL.Query().Get("offset"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n >= 0 {
						offset = n
					}
				}
				txs, err := d.DisputeSvc.TransactionsByUser(r.Context(), actor.UserID, limit, offset)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, txs)
			})

			r.Post("/transactions/{id}/dispute", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := middleware.ActorFrom(r.Context())
				var req struct {
					Reason string `json:"reason"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
					httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "reason required", nil)
					return
				}
				dp, err := d.DisputeSvc.Raise(r.Context(), actor, chi.URLParam(r, "id"), req.Reason)
				if err != nil {
					httpx.WriteDomainError(w, err)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, map[string]string{"dispute_id": dp.ID})
			})

			r.With(middleware.RequireRole(models.RoleAdmin)).
				Post("/disputes/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
					actor, _ := middleware.ActorFrom(r.Context())
					var req struct {
						Outcome    string `json:"outcome"`
						Resolution string `json:"resolution"`
					}
					if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
						httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bad request", nil)
						return
					}
					txn, err := d.DisputeSvc.Resolve(r.Context(), actor, chi.URLParam(r, "id"), models.DisputeOutcome(req.Outcome), req.Resolution)
					if err != nil {
						httpx.WriteDomainError(w, err)
						return
					}
					httpx.WriteJSON(w, http.StatusOK, map[string]string{"transaction_status": string(txn.Status)})
				})
		})
	})

	return r
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Amount.IsPositive() {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "positive amount required", nil)
		return decimal.Decimal{}, false
	}
	return req.Amount, true
}
