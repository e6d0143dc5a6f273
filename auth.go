package main

import (
	"context"
	"crypto/rand"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"dbclone/common"
	"dbclone/middleware"
)

func init() {
	gob.Register(middleware.User{}) // scs needs to (de)serialize User
}

var (
	oidcProv     *oidc.Provider
	oidcVerifier *oidc.IDTokenVerifier
	oauthCfg     *oauth2.Config
)

const cookieMaxAge = 7 * 24 * 3600 // 7d

// InitAuthFromEnv wires OIDC login and server-side sessions. Returns
// (nil, nil) when no issuer is configured: the API then runs open, which is
// acceptable for lab deployments but logged loudly at startup.
func InitAuthFromEnv() (*scs.SessionManager, error) {
	issuer := common.Env("DBCLONE_OIDC_ISSUER", "")
	if issuer == "" {
		return nil, nil
	}

	clientID := common.Env("DBCLONE_OIDC_CLIENT_ID", "")
	clientSecret, err := common.ReadSecretMaybeFile(common.Env("DBCLONE_OIDC_CLIENT_SECRET", ""))
	if err != nil {
		return nil, err
	}
	redirect := common.Env("DBCLONE_OIDC_REDIRECT_URL", "")
	if clientID == "" || clientSecret == "" || redirect == "" {
		return nil, errors.New("DBCLONE_OIDC_CLIENT_ID, DBCLONE_OIDC_CLIENT_SECRET and DBCLONE_OIDC_REDIRECT_URL are required when an issuer is set")
	}

	oidcProv, err = oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, err
	}
	oidcVerifier = oidcProv.Verifier(&oidc.Config{ClientID: clientID})
	oauthCfg = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oidcProv.Endpoint(),
		RedirectURL:  redirect,
		Scopes:       strings.Fields(common.Env("DBCLONE_OIDC_SCOPES", "openid email profile")),
	}

	secure := strings.HasPrefix(strings.ToLower(redirect), "https://")

	sm := scs.New()
	sm.Lifetime = time.Duration(cookieMaxAge) * time.Second
	sm.Cookie.Name = common.SessionName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.Path = "/"
	if secure {
		sm.Cookie.SameSite = http.SameSiteNoneMode
	} else {
		sm.Cookie.SameSite = http.SameSiteLaxMode
	}

	common.SessionManager = sm
	return sm, nil
}

func authLogin(w http.ResponseWriter, r *http.Request) {
	if oauthCfg == nil {
		http.Error(w, "auth not configured", http.StatusNotFound)
		return
	}
	state := randHex(24)
	common.SessionManager.Put(r.Context(), "oauth_state", state)
	http.Redirect(w, r, oauthCfg.AuthCodeURL(state), http.StatusFound)
}

func authCallback(w http.ResponseWriter, r *http.Request) {
	if oauthCfg == nil {
		http.Error(w, "auth not configured", http.StatusNotFound)
		return
	}
	want := common.SessionManager.PopString(r.Context(), "oauth_state")
	if want == "" || r.URL.Query().Get("state") != want {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	tok, err := oauthCfg.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		common.ErrorLog("auth: code exchange failed: %v", err)
		http.Error(w, "exchange failed", http.StatusBadGateway)
		return
	}
	rawID, _ := tok.Extra("id_token").(string)
	idt, err := oidcVerifier.Verify(r.Context(), rawID)
	if err != nil {
		common.ErrorLog("auth: id_token verify failed: %v", err)
		http.Error(w, "invalid id_token", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idt.Claims(&claims); err != nil {
		http.Error(w, "bad claims", http.StatusBadGateway)
		return
	}

	if err := common.SessionManager.RenewToken(r.Context()); err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	common.SessionManager.Put(r.Context(), "user", middleware.User{Sub: claims.Sub, Email: claims.Email, Name: claims.Name})
	common.SessionManager.Put(r.Context(), "exp", time.Now().Add(time.Duration(cookieMaxAge)*time.Second).Unix())
	common.InfoLog("auth: %s logged in", claims.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}

func authLogout(w http.ResponseWriter, r *http.Request) {
	if common.SessionManager != nil {
		_ = common.SessionManager.Destroy(r.Context())
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
