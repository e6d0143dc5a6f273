package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dbclone/common"
	"dbclone/database"
	"dbclone/services"
)

var startedAt = time.Now()

func main() {
	addr := common.Env("DBCLONE_BIND", ":8080")

	infoLog("dbclone starting with log level: %s", getLogLevel())
	debugLog("debug logging is enabled")

	sessionManager, err := InitAuthFromEnv()
	if err != nil {
		fatalLog("auth setup failed: %v", err)
	}
	if sessionManager == nil {
		warnLog("auth: no OIDC issuer configured; API is running OPEN")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.InitDBFromEnv(ctx); err != nil {
		fatalLog("metadata store init failed: %v", err)
	}
	if err := services.InitInventory(); err != nil {
		fatalLog("inventory init failed: %v", err)
	}
	services.InitOrchestrator()

	r := makeRouter()

	var handler http.Handler = r
	if sessionManager != nil {
		handler = sessionManager.LoadAndSave(r)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	certFile := strings.TrimSpace(common.Env("DBCLONE_TLS_CERT_FILE", ""))
	keyFile := strings.TrimSpace(common.Env("DBCLONE_TLS_KEY_FILE", ""))
	if certFile != "" && keyFile != "" {
		infoLog("https: listening on %s (cert=%s)", addr, certFile)
		fatalLog("HTTPS server error: %v", srv.ListenAndServeTLS(certFile, keyFile))
		return
	}

	infoLog("http: listening on %s (no TLS cert configured)", addr)
	fatalLog("HTTP server error: %v", srv.ListenAndServe())
}

// getLogLevel returns the current log level, defaulting to "info"
func getLogLevel() string {
	return strings.ToLower(common.Env("DBCLONE_LOG_LEVEL", "info"))
}

// aliases into common so main reads like the rest of the codebase
var (
	debugLog = common.DebugLog
	infoLog  = common.InfoLog
	warnLog  = common.WarnLog
	fatalLog = common.FatalLog
)
