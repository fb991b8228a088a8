package service

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"options_bot/internal/models"
	stats "options_bot/internal/modules/stats/service"
)

const defaultTradesLimit = 20

type StatsSource interface {
	Snapshot() stats.Snapshot
	Recent(limit int) []models.TradeResult
	Asset(name string) (stats.AssetStats, bool)
}

type Handlers struct {
	stats    StatsSource
	state    *State
	log      *zap.Logger
	maxStale time.Duration
}

// NewHandlers: maxStale: через сколько без тиков /readyz отвечает 503.
func NewHandlers(src StatsSource, state *State, maxStale time.Duration, log *zap.Logger) *Handlers {
	return &Handlers{stats: src, state: state, maxStale: maxStale, log: log}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /api/stats", h.apiStats)
	mux.HandleFunc("GET /api/trades", h.apiTrades)
	mux.HandleFunc("GET /api/assets/{asset}", h.apiAsset)
	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: runner запущен и тики идут
		if !h.state.Ready() || (h.maxStale > 0 && h.state.Stale(h.maxStale)) {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		// полезный JSON для отладки
		var lastTick int64
		if t := h.state.LastTick(); !t.IsZero() {
			lastTick = t.Unix()
		}
		h.writeJSON(w, http.StatusOK, map[string]any{
			"ready":        h.state.Ready(),
			"wsConnected":  h.state.WSConnected(),
			"uptimeSec":    int64(h.state.Uptime().Seconds()),
			"lastTickUnix": lastTick,
		})
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		h.log.Error("encode response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) apiStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

func (h *Handlers) apiTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	trades := h.stats.Recent(limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

func (h *Handlers) apiAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("asset")
	st, ok := h.stats.Asset(name)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "asset not found: " + name})
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

type pageData struct {
	stats.Snapshot
	Recent []models.TradeResult
	Now    time.Time
}

func (h *Handlers) index(w http.ResponseWriter, _ *http.Request) {
	data := pageData{
		Snapshot: h.stats.Snapshot(),
		Recent:   h.stats.Recent(defaultTradesLimit),
		Now:      time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		h.log.Error("render dashboard", zap.Error(err))
	}
}

var page = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="10">
<title>Options bot</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
td, th { border: 1px solid #444; padding: 4px 10px; text-align: right; }
.win { color: #4c4; } .loss { color: #c44; }
</style>
</head>
<body>
<h1>Options bot <small>[{{.Mode}}]</small></h1>
<p>Balance: <b>{{.Balance.StringFixed 2}}</b> (start {{.InitialBalance.StringFixed 2}}, profit {{.Profit.StringFixed 2}}: +{{.GrossProfit.StringFixed 2}} / -{{.GrossLoss.StringFixed 2}})</p>
<p>Trades: {{.Trades}} | Wins: {{.Wins}} | Losses: {{.Losses}} | Win rate: {{printf "%.1f" .WinRate}}% | Candles: {{.Candles}} | Signals: {{.Signals}} | Uptime: {{.UptimeSec}}s</p>
<h2>Assets</h2>
<table>
<tr><th>Asset</th><th>Candles</th><th>Calls</th><th>Puts</th><th>Peaks</th><th>Troughs</th><th>Trades</th><th>W/L</th><th>Profit</th><th>Last</th></tr>
{{range .Assets}}<tr><td>{{.Asset}}</td><td>{{.Candles}}</td><td>{{.Calls}}</td><td>{{.Puts}}</td><td>{{.Peaks}}</td><td>{{.Troughs}}</td><td>{{.Trades}}</td><td>{{.Wins}}/{{.Losses}}</td><td>{{.Profit.StringFixed 2}}</td><td>{{with .LastCandle}}{{.String}}{{end}}</td></tr>
{{end}}</table>
<h2>Recent trades</h2>
<table>
<tr><th>Settled</th><th>Asset</th><th>Direction</th><th>Stake</th><th>Outcome</th><th>Amount</th></tr>
{{range .Recent}}<tr class="{{.Outcome}}"><td>{{.SettledAt.Format "15:04:05"}}</td><td>{{.Order.Asset}}</td><td>{{.Order.Direction}}</td><td>{{.Order.Stake.StringFixed 2}}</td><td>{{.Outcome}}</td><td>{{.Amount.StringFixed 2}}</td></tr>
{{else}}<tr><td colspan="6">no trades yet</td></tr>
{{end}}</table>
<p><small>updated {{.Now.Format "2006-01-02 15:04:05"}} UTC</small></p>
</body>
</html>
`))
