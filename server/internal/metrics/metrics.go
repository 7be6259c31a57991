package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/minikv/minikv/server/internal/store"
)

// Exported metric names.
const (
	MetricKeys        = "minikv_keys"
	MetricHits        = "minikv_hits_total"
	MetricMisses      = "minikv_misses_total"
	MetricExpired     = "minikv_expired_total"
	MetricConnections = "minikv_connections"
	MetricCommands    = "minikv_commands_total"
)

// CommandCounter reports per-verb command totals. command.Interpreter
// satisfies it.
type CommandCounter interface {
	Counts() map[string]uint64
}

// ConnCounter reports currently open client connections.
type ConnCounter interface {
	Active() int
}

// Collector builds metric families from live server state on every scrape.
type Collector struct {
	store *store.Store
	cmds  CommandCounter
	conns []ConnCounter
}

// New creates a Collector. conns are summed into minikv_connections.
func New(st *store.Store, cmds CommandCounter, conns ...ConnCounter) *Collector {
	return &Collector{store: st, cmds: cmds, conns: conns}
}

// Gather returns the current metric families sorted by name.
func (c *Collector) Gather() []*dto.MetricFamily {
	stats := c.store.Stats()

	active := 0
	for _, cc := range c.conns {
		active += cc.Active()
	}

	mfs := []*dto.MetricFamily{
		gauge(MetricKeys, "Entries held, including expired entries not yet swept.", float64(stats.Keys)),
		counter(MetricHits, "Reads that found a live key.", float64(stats.Hits)),
		counter(MetricMisses, "Reads that found no live key.", float64(stats.Misses)),
		counter(MetricExpired, "Entries removed by the expiry sweeper.", float64(stats.Expired)),
		gauge(MetricConnections, "Open client connections.", float64(active)),
	}
	if c.cmds != nil {
		mfs = append(mfs, commandFamily(c.cmds.Counts()))
	}

	sort.Slice(mfs, func(i, j int) bool { return mfs[i].GetName() < mfs[j].GetName() })
	return mfs
}

// ServeHTTP writes the metrics in the Prometheus text exposition format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err := Write(w, c.Gather()); err != nil {
		slog.Warn("metrics: write failed", "err", err)
	}
}

// Write encodes mfs to w in the text exposition format.
func Write(w io.Writer, mfs []*dto.MetricFamily) error {
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// --- helpers ----------------------------------------------------------------

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}

// commandFamily emits one minikv_commands_total series per verb, sorted by verb.
func commandFamily(counts map[string]uint64) *dto.MetricFamily {
	verbs := make([]string, 0, len(counts))
	for v := range counts {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)

	metrics := make([]*dto.Metric, 0, len(verbs))
	for _, v := range verbs {
		metrics = append(metrics, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String("verb"), Value: proto.String(v)}},
			Counter: &dto.Counter{Value: proto.Float64(float64(counts[v]))},
		})
	}
	return &dto.MetricFamily{
		Name:   proto.String(MetricCommands),
		Help:   proto.String("Commands received, by verb."),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}
