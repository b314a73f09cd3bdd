package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"td-dashboard/internal/ingest"
	"td-dashboard/internal/metrics"
	"td-dashboard/internal/model"
	sqlitestore "td-dashboard/internal/store/sqlite"
	"td-dashboard/internal/tdsetup"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Time, X-Admin-OTP")
}

// API bundles the dependencies of the REST + WS surface.
type API struct {
	Store    *sqlitestore.Store
	Prefs    *PrefsStore
	Hub      *Hub
	Registry *tdsetup.Registry
	Metrics  *metrics.Metrics

	CSVPath string
	// OTPSecret guards POST /api/prices/reload when non-empty.
	OTPSecret string
}

// RegisterRoutes registers all HTTP routes on mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", a.handleWS)
	mux.HandleFunc("/api/health", a.handleHealth)
	mux.HandleFunc("/api/symbols", a.handleSymbols)
	mux.HandleFunc("/api/prices", a.handlePrices)
	mux.HandleFunc("/api/prices/reload", a.handleReload)
	mux.HandleFunc("/api/indicators", a.handleIndicators)
	mux.HandleFunc("/api/indicators/setup", a.handleSetup)
	mux.HandleFunc("/api/settings/", a.handleSettings)
	mux.HandleFunc("/api/missed", a.handleMissed)
}

func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	a.Hub.HandleWS(conn, r.URL.Query().Get("last_ts"))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *API) handleSymbols(w http.ResponseWriter, r *http.Request) {
	defer a.Metrics.ObserveHTTP("/api/symbols", time.Now())
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	symbols, err := a.Store.Symbols()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list symbols")
		return
	}

	payload := make([]model.SymbolInfo, 0, len(symbols))
	for _, sym := range symbols {
		payload = append(payload, model.NewSymbolInfo(sym))
	}
	json.NewEncoder(w).Encode(payload)
}

func (a *API) handlePrices(w http.ResponseWriter, r *http.Request) {
	defer a.Metrics.ObserveHTTP("/api/prices", time.Now())
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	series, err := a.Store.AllSeries(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read prices")
		return
	}

	symbols := make([]model.SymbolInfo, 0, len(series))
	for _, sym := range sqlitestore.SortedSymbols(series) {
		symbols = append(symbols, model.NewSymbolInfo(sym))
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbols": symbols,
		"series":  series,
	})
}

// handleSetup computes a TD Setup series for one symbol through the
// indicator registry and projects the tooltip for the requested bar.
func (a *API) handleSetup(w http.ResponseWriter, r *http.Request) {
	defer a.Metrics.ObserveHTTP("/api/indicators/setup", time.Now())
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	name := r.URL.Query().Get("variant")
	if name == "" {
		name = "TD Setup"
	}
	desc, ok := a.Registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown indicator variant")
		return
	}

	bars, err := a.Store.Bars(symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read bars")
		return
	}

	cursor := -1
	if s := r.URL.Query().Get("index"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cursor = n
		}
	}

	start := time.Now()
	results := desc.Calc(bars)
	if a.Metrics != nil {
		a.Metrics.SetupCalcsTotal.Inc()
		a.Metrics.SetupCalcDur.Observe(time.Since(start).Seconds())
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbol":    symbol,
		"variant":   desc.Name,
		"shortName": desc.ShortName,
		"precision": desc.Precision,
		"results":   results,
		"tooltip":   desc.Tooltip(results, cursor),
	})
}

func (a *API) handleIndicators(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	type indicatorInfo struct {
		Name      string `json:"name"`
		ShortName string `json:"shortName"`
		Precision int    `json:"precision"`
	}
	var payload []indicatorInfo
	for _, name := range a.Registry.Names() {
		if d, ok := a.Registry.Lookup(name); ok {
			payload = append(payload, indicatorInfo{Name: d.Name, ShortName: d.ShortName, Precision: d.Precision})
		}
	}
	json.NewEncoder(w).Encode(payload)
}

// handleSettings dispatches GET/PUT/DELETE /api/settings/{userID}.
func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	defer a.Metrics.ObserveHTTP("/api/settings", time.Now())
	SetCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	userID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/settings/"))
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "User ID is required.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getSettings(w, r, userID)
	case http.MethodPut:
		a.putSettings(w, r, userID)
	case http.MethodDelete:
		if err := a.Prefs.Delete(r.Context(), userID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete preferences")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *API) getSettings(w http.ResponseWriter, r *http.Request, userID string) {
	payload, err := a.Prefs.Get(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read preferences")
		return
	}
	if payload == nil {
		writeError(w, http.StatusNotFound, "Preferences not found.")
		return
	}
	if !json.Valid(payload) {
		writeError(w, http.StatusInternalServerError, "Corrupted preferences data.")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"userId":      userID,
		"preferences": json.RawMessage(payload),
	})
}

func (a *API) putSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var body struct {
		Preferences map[string]json.RawMessage `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Preferences == nil {
		writeError(w, http.StatusBadRequest, "Request body must include a preferences object.")
		return
	}

	payload, err := json.Marshal(body.Preferences)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request body must include a preferences object.")
		return
	}

	if err := a.Prefs.Put(r.Context(), userID, payload, r.Header.Get("X-Request-Time")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReload re-ingests the CSV file and replaces the prices table.
// When an admin OTP secret is configured, the request must carry a
// valid TOTP code in X-Admin-OTP.
func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	defer a.Metrics.ObserveHTTP("/api/prices/reload", time.Now())
	SetCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if a.OTPSecret != "" && !totp.Validate(r.Header.Get("X-Admin-OTP"), a.OTPSecret) {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusUnauthorized, "invalid or missing OTP code")
		return
	}

	count, err := a.Reload()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}

	log.Printf("[gateway] prices reloaded: %d rows", count)
	w.WriteHeader(http.StatusNoContent)
}

// Reload loads the CSV feed and replaces the prices table, returning
// the number of rows stored. A missing CSV file is a warning, not an
// error, leaving the existing table untouched.
func (a *API) Reload() (int, error) {
	start := time.Now()

	rows, err := ingest.LoadFile(a.CSVPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[gateway] WARNING: price CSV not found at %s; prices not updated", a.CSVPath)
			return 0, nil
		}
		return 0, err
	}
	if len(rows) == 0 {
		log.Printf("[gateway] WARNING: no price rows parsed from %s; prices not updated", a.CSVPath)
		return 0, nil
	}

	if err := a.Store.ReplacePrices(rows); err != nil {
		return 0, err
	}

	if a.Metrics != nil {
		a.Metrics.CSVRowsLoaded.Add(float64(len(rows)))
		a.Metrics.IngestDur.Observe(time.Since(start).Seconds())
	}
	return len(rows), nil
}

// handleMissed serves replay-buffer backfill for a channel's sequence
// gap: GET /api/missed?channel=bar:AAPL&from=10&to=20.
func (a *API) handleMissed(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	channel := r.URL.Query().Get("channel")
	from, err1 := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	to, err2 := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if channel == "" || err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "channel, from and to are required")
		return
	}

	envelopes := a.Hub.GetReplayRange(channel, from, to)
	payload := make([]json.RawMessage, len(envelopes))
	for i, e := range envelopes {
		payload[i] = e
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"channel":   channel,
		"envelopes": payload,
		"seq":       a.Hub.GetChannelSeq(channel),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
