package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/remip/giftmanager/eventlogger"
	"github.com/remip/giftmanager/middleware"
	"github.com/remip/giftmanager/project"
	"github.com/remip/giftmanager/reconcile"
	"github.com/remip/giftmanager/session"
	"github.com/remip/giftmanager/user"
)

func main() {
	dsn := envOr("DATABASE_URL", "host=localhost port=5432 user=postgres password=postgres dbname=giftmanager sslmode=disable")
	port := envOr("PORT", "5000")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	if err := db.Ping(); err != nil {
		printErrorAndExit("pinging database", err)
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, 100)
	worker.Start()
	defer worker.Shutdown()

	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	projectRepo := project.NewRepository(db)

	if err := userRepo.EnsureAdmin(context.Background()); err != nil {
		printErrorAndExit("seeding admin account", err)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(middleware.Auth(sessionRepo, userRepo))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.Post("/api/register", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var form struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !readJSON(w, r, &form) {
			return
		}

		registered, err := userRepo.Register(ctx, form.Username, form.Password)
		if err != nil {
			switch err {
			case user.ErrUsernameExists:
				http.Error(w, err.Error(), http.StatusConflict)
			case user.ErrBlankPassword, user.ErrInvalidUsername:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				slog.Error("failed to register user", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		sess, err := sessionRepo.Create(ctx, registered.ID)
		if err != nil {
			slog.Error("failed to create session", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		setSessionCookie(w, sess)

		worker.Log(eventlogger.New(eventlogger.TypeUserRegistered,
			eventlogger.WithActor(registered.Username),
			eventlogger.WithData(map[string]string{"user_id": registered.ID.String()}),
		))

		writeJSON(w, http.StatusCreated, loginResponse{User: *registered})
	})

	router.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var form struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !readJSON(w, r, &form) {
			return
		}

		userdb, err := userRepo.GetByUsername(ctx, form.Username)
		if err != nil {
			slog.Error("failed to fetch user", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if userdb == nil || userRepo.VerifyPassword(userdb.PasswordHash, form.Password) != nil {
			http.Error(w, "invalid username or password", http.StatusUnauthorized)
			return
		}

		sess, err := sessionRepo.Create(ctx, userdb.ID)
		if err != nil {
			slog.Error("failed to create session", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		setSessionCookie(w, sess)

		worker.Log(eventlogger.New(eventlogger.TypeUserLoggedIn,
			eventlogger.WithActor(userdb.Username),
			eventlogger.WithData(map[string]string{"session_id": sess.ID.String()}),
		))

		needsChange := userdb.IsAdmin &&
			form.Username == user.DefaultAdminUsername &&
			form.Password == user.DefaultAdminPassword
		writeJSON(w, http.StatusOK, loginResponse{User: *userdb, NeedsPasswordChange: needsChange})
	})

	// Authenticated API
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Post("/api/logout", func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(session.CookieName); err == nil {
				sessionRepo.Delete(r.Context(), cookie.Value)
			}
			http.SetCookie(w, &http.Cookie{
				Name:   session.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
			current, _ := middleware.CurrentUser(r.Context())
			codes, err := projectRepo.ListCodesByUser(r.Context(), current.ID)
			if err != nil {
				slog.Error("failed to list projects", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"user":             current,
				"my_project_codes": codes,
			})
		})

		r.Put("/api/users/{id}/credentials", func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			current, _ := middleware.CurrentUser(ctx)

			targetID, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				http.Error(w, "invalid user id", http.StatusBadRequest)
				return
			}
			if targetID != current.ID && !current.IsAdmin {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			var form struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if !readJSON(w, r, &form) {
				return
			}

			if err := userRepo.UpdateCredentials(ctx, targetID, form.Username, form.Password); err != nil {
				if err == user.ErrBlankPassword {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				slog.Error("failed to update credentials", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			// Old sessions die with the old password.
			if err := sessionRepo.DeleteByUserID(ctx, targetID); err != nil {
				slog.Error("failed to clear sessions", "error", err)
			}

			worker.Log(eventlogger.New(eventlogger.TypeCredentialsUpdated,
				eventlogger.WithActor(current.Username),
				eventlogger.WithData(map[string]string{"user_id": targetID.String()}),
			))
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/api/projects", func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			current, _ := middleware.CurrentUser(ctx)

			var form struct {
				Name string `json:"name"`
				Code string `json:"code"`
			}
			if !readJSON(w, r, &form) {
				return
			}
			if form.Code == "" {
				code, err := project.GenerateCode()
				if err != nil {
					slog.Error("failed to generate code", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				form.Code = code
			}

			p, err := project.New(form.Name, form.Code, current.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := projectRepo.Create(ctx, p); err != nil {
				slog.Error("failed to create project", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			// The creator joins under their own username.
			if err := projectRepo.LinkMember(ctx, p.Code, current.Username, current.ID); err != nil {
				slog.Error("failed to link creator", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			worker.Log(eventlogger.New(eventlogger.TypeProjectCreated,
				eventlogger.WithProject(p.Code),
				eventlogger.WithActor(current.Username),
			))

			writeJSON(w, http.StatusCreated, p)
		})

		r.Route("/api/projects/{code}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}
				writeJSON(w, http.StatusOK, p)
			})

			r.With(middleware.RequireAdmin).Delete("/", func(w http.ResponseWriter, r *http.Request) {
				current, _ := middleware.CurrentUser(r.Context())
				code := chi.URLParam(r, "code")
				if err := projectRepo.Delete(r.Context(), code); err != nil {
					slog.Error("failed to delete project", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				worker.Log(eventlogger.New(eventlogger.TypeProjectDeleted,
					eventlogger.WithProject(code),
					eventlogger.WithActor(current.Username),
				))
				w.WriteHeader(http.StatusNoContent)
			})

			r.Post("/members", addMemberHandler(projectRepo, worker))

			r.Post("/expenses", func(w http.ResponseWriter, r *http.Request) {
				ctx := r.Context()
				current, _ := middleware.CurrentUser(ctx)
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}

				var input project.ExpenseInput
				if !readJSON(w, r, &input) {
					return
				}
				flow := input.Flow()
				if err := project.ValidateExpense(flow); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}

				if err := projectRepo.SaveExpense(ctx, p.Code, flow); err != nil {
					slog.Error("failed to save expense", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}

				eventType := eventlogger.TypeExpenseSaved
				if flow.Kind == reconcile.KindSettlement {
					eventType = eventlogger.TypeSettlementRecorded
				}
				worker.Log(eventlogger.New(eventType,
					eventlogger.WithProject(p.Code),
					eventlogger.WithActor(current.Username),
					eventlogger.WithData(map[string]string{"expense_id": flow.ID}),
				))

				writeJSON(w, http.StatusOK, flow)
			})

			r.Delete("/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}
				if err := projectRepo.DeleteExpense(r.Context(), p.Code, chi.URLParam(r, "id")); err != nil {
					slog.Error("failed to delete expense", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Post("/subevents", func(w http.ResponseWriter, r *http.Request) {
				ctx := r.Context()
				current, _ := middleware.CurrentUser(ctx)
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}

				var input project.SubEventInput
				if !readJSON(w, r, &input) {
					return
				}
				se := input.SubEvent()
				if err := project.ValidateSubEvent(se); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}

				if err := projectRepo.SaveSubEvent(ctx, p.Code, se); err != nil {
					slog.Error("failed to save sub-event", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}

				worker.Log(eventlogger.New(eventlogger.TypeSubEventSaved,
					eventlogger.WithProject(p.Code),
					eventlogger.WithActor(current.Username),
					eventlogger.WithData(map[string]string{"sub_event_id": se.ID}),
				))

				writeJSON(w, http.StatusOK, se)
			})

			r.Delete("/subevents/{id}", func(w http.ResponseWriter, r *http.Request) {
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}
				if err := projectRepo.DeleteSubEvent(r.Context(), p.Code, chi.URLParam(r, "id")); err != nil {
					slog.Error("failed to delete sub-event", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Get("/balances", func(w http.ResponseWriter, r *http.Request) {
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}
				// Viewer-independent: the full snapshot goes in, hidden
				// gifts included.
				writeJSON(w, http.StatusOK, reconcile.Reconcile(p.Snapshot()))
			})

			r.Get("/feed", func(w http.ResponseWriter, r *http.Request) {
				current, _ := middleware.CurrentUser(r.Context())
				p, ok := loadProject(w, r, projectRepo)
				if !ok {
					return
				}

				viewer := memberNameFor(p, current.ID)
				visible, hiddenExpenses := project.VisibleExpenses(*p, viewer)
				visible = project.FilterKind(visible, reconcile.Kind(r.URL.Query().Get("kind")))
				subEvents, hiddenSubEvents := project.VisibleSubEvents(*p, viewer)

				writeJSON(w, http.StatusOK, map[string]any{
					"viewer":       viewer,
					"expenses":     visible,
					"sub_events":   subEvents,
					"hidden_count": hiddenExpenses + hiddenSubEvents,
				})
			})
		})
	})

	// Admin API
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Get("/api/admin/stats", func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			projects, err := projectRepo.AdminStats(ctx)
			if err != nil {
				slog.Error("failed to load project stats", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			users, err := userRepo.List(ctx)
			if err != nil {
				slog.Error("failed to list users", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			type userStats struct {
				user.User
				ProjectCodes []string `json:"my_project_codes"`
			}
			stats := make([]userStats, 0, len(users))
			for _, u := range users {
				codes, err := projectRepo.ListCodesByUser(ctx, u.ID)
				if err != nil {
					slog.Error("failed to list user projects", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				stats = append(stats, userStats{User: u, ProjectCodes: codes})
			}

			writeJSON(w, http.StatusOK, map[string]any{
				"projects": projects,
				"users":    stats,
			})
		})
	})

	slog.Info("server starting", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		printErrorAndExit("server stopped", err)
	}
}

type loginResponse struct {
	user.User
	NeedsPasswordChange bool `json:"needs_password_change,omitempty"`
}

type projectRepository interface {
	GetByCode(ctx context.Context, code string) (*project.Project, error)
}

// memberStore is the slice of the project repository the members endpoint
// touches.
type memberStore interface {
	GetByCode(ctx context.Context, code string) (*project.Project, error)
	AddMember(ctx context.Context, code string, m reconcile.Member) error
	LinkMember(ctx context.Context, code, name string, userID uuid.UUID) error
}

// addMemberHandler adds a named member to a project, or claims an existing
// slot for the calling account when link is set. Member payloads come in as
// project.MemberInput so both linked_user_id spellings land on the same
// field.
func addMemberHandler(repo memberStore, worker *eventlogger.Worker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		current, _ := middleware.CurrentUser(ctx)
		p, ok := loadProject(w, r, repo)
		if !ok {
			return
		}

		var form struct {
			project.MemberInput
			Link bool `json:"link"`
		}
		if !readJSON(w, r, &form) {
			return
		}
		if form.Name == "" {
			http.Error(w, "member name can't be empty", http.StatusBadRequest)
			return
		}

		if form.Link {
			// Claim the member slot for the calling account,
			// creating it when new.
			if err := repo.LinkMember(ctx, p.Code, form.Name, current.ID); err != nil {
				slog.Error("failed to link member", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			worker.Log(eventlogger.New(eventlogger.TypeMemberLinked,
				eventlogger.WithProject(p.Code),
				eventlogger.WithActor(current.Username),
				eventlogger.WithData(map[string]string{"member": form.Name}),
			))
		} else {
			err := repo.AddMember(ctx, p.Code, form.Member())
			if err == project.ErrMemberExists {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			if err != nil {
				slog.Error("failed to add member", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func loadProject(w http.ResponseWriter, r *http.Request, repo projectRepository) (*project.Project, bool) {
	code := chi.URLParam(r, "code")
	p, err := repo.GetByCode(r.Context(), code)
	if err != nil {
		slog.Error("failed to load project", "code", code, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if p == nil {
		http.Error(w, "project not found", http.StatusNotFound)
		return nil, false
	}
	return p, true
}

// memberNameFor resolves which member identity a user maps to inside a
// project; empty when not linked.
func memberNameFor(p *project.Project, userID uuid.UUID) string {
	for _, m := range p.Members {
		if m.LinkedUserID != nil && *m.LinkedUserID == userID {
			return m.Name
		}
	}
	return ""
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
