package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/saraha-app/sessionkit"
	"github.com/saraha-app/sessionkit/middleware"
)

type routerOptions struct {
	SecureCookies bool
	TrustProxy    bool
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
}

type handler struct {
	engine *sessionkit.Engine
	opts   routerOptions
}

func newRouter(engine *sessionkit.Engine, opts routerOptions) http.Handler {
	h := &handler{engine: engine, opts: opts}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientInfo(opts.TrustProxy))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/verify", h.verify)
		r.Post("/otp/resend", h.resendOTP)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.Post("/password/forgot", h.forgotPassword)
		r.Post("/password/reset", h.resetPassword)
		r.Post("/federated/{provider}", h.federated)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(engine))
			r.Get("/me", h.profile)
			r.Post("/logout-all", h.logoutAll)
			r.Post("/password/change/otp", h.changePasswordOTP)
			r.Post("/password/change", h.changePassword)
		})
	})
	return r
}

type credentialsBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeBody struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"`
	NewPassword string `json:"newPassword"`
}

type changePasswordBody struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	Code            string `json:"code"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

type assertionBody struct {
	Assertion string `json:"assertion"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decode(w, r, &body) {
		return
	}
	res, err := h.engine.Register(r.Context(), sessionkit.RegisterRequest{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, res)
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	if !decode(w, r, &body) {
		return
	}
	sess, err := h.engine.CompleteVerification(r.Context(), body.Email, body.Code)
	h.writeSession(w, sess, err)
}

func (h *handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	if !decode(w, r, &body) {
		return
	}
	purpose := sessionkit.Purpose(body.Purpose)
	if purpose == "" {
		purpose = sessionkit.PurposeVerifyAccount
	}
	d, err := h.engine.ResendOTP(r.Context(), body.Email, purpose)
	writeDelivery(w, d, err)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decode(w, r, &body) {
		return
	}
	sess, err := h.engine.Login(r.Context(), body.Email, body.Password)
	h.writeSession(w, sess, err)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	sess, err := h.engine.Refresh(r.Context(), middleware.RefreshToken(r, body.RefreshToken))
	if err != nil {
		middleware.ClearRefreshCookie(w, h.opts.SecureCookies)
	}
	h.writeSession(w, sess, err)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	access, _ := middleware.BearerToken(r)
	res := h.engine.Logout(r.Context(), access, middleware.RefreshToken(r, body.RefreshToken))
	middleware.ClearRefreshCookie(w, h.opts.SecureCookies)
	middleware.WriteJSON(w, http.StatusOK, res)
}

func (h *handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	n, err := h.engine.LogoutAll(r.Context(), p.AccountID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.ClearRefreshCookie(w, h.opts.SecureCookies)
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"revoked": n})
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	if !decode(w, r, &body) {
		return
	}
	d, err := h.engine.RequestPasswordReset(r.Context(), body.Email)
	writeDelivery(w, d, err)
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.engine.ResetPassword(r.Context(), body.Email, body.Code, body.NewPassword); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.ClearRefreshCookie(w, h.opts.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) changePasswordOTP(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	d, err := h.engine.RequestPasswordChangeOTP(r.Context(), p.AccountID)
	writeDelivery(w, d, err)
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var body changePasswordBody
	if !decode(w, r, &body) {
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	err := h.engine.ChangePassword(r.Context(), sessionkit.ChangePasswordRequest{
		AccountID:       p.AccountID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
		Code:            body.Code,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.ClearRefreshCookie(w, h.opts.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	view, err := h.engine.Profile(r.Context(), p.AccountID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

func (h *handler) federated(w http.ResponseWriter, r *http.Request) {
	var body assertionBody
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	sess, err := h.engine.FederatedLogin(r.Context(), chi.URLParam(r, "provider"), body.Assertion)
	h.writeSession(w, sess, err)
}

// writeSession sets the refresh cookie and writes the session body.
func (h *handler) writeSession(w http.ResponseWriter, sess *sessionkit.Session, err error) {
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.SetRefreshCookie(w, sess.Tokens.RefreshToken, sess.Tokens.RefreshExpiresAt, h.opts.SecureCookies)
	middleware.WriteJSON(w, http.StatusOK, sess)
}

func writeDelivery(w http.ResponseWriter, d *sessionkit.Delivery, err error) {
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, d)
}

const maxBodyBytes = 1 << 16

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorBody{
			Code:    "bad_request",
			Message: "malformed request body",
		})
		return false
	}
	return true
}
