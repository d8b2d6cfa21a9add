package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/services/email"
	"tutorlink_go/services/notifications"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
	healthCritical = "critical"

	depUp       = "up"
	depDown     = "down"
	depDisabled = "disabled"

	checkTimeout = 1500 * time.Millisecond
)

// DependencyCheck reports on one component. The severity it was registered with
// decides how a "down" result affects the overall status.
type DependencyCheck func(ctx context.Context) DependencyStatus

type registeredCheck struct {
	check    DependencyCheck
	severity string
}

// HealthService builds the /health/detailed report.
type HealthService struct {
	name    string
	version string
	started time.Time
	checks  []registeredCheck
}

type HealthReport struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	Version       string             `json:"version"`
	Environment   string             `json:"environment"`
	Time          time.Time          `json:"time"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Uptime        string             `json:"uptime_human"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Runtime       RuntimeStats       `json:"runtime"`
	Flags         HealthFlags        `json:"flags"`
}

type DependencyStatus struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RuntimeStats is a snapshot of the Go process.
type RuntimeStats struct {
	GoVersion   string `json:"go_version"`
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc_bytes"`
	HeapObjects uint64 `json:"heap_objects"`
	SysBytes    uint64 `json:"sys_bytes"`
	NumGC       uint32 `json:"num_gc"`
	WSClients   *int   `json:"ws_clients,omitempty"`
}

type HealthFlags struct {
	SkipMigrate           bool   `json:"skip_migrate"`
	UseRedisNotifications bool   `json:"use_redis_notifications"`
	EmailProvider         string `json:"email_provider"`
	LineEnabled           bool   `json:"line_enabled"`
}

// NewHealthService registers the database (critical), Redis and email
// checks. Extra components are attached with AddCheck.
func NewHealthService(name, version string) *HealthService {
	if strings.TrimSpace(name) == "" {
		name = "TutorLink API"
	}
	if strings.TrimSpace(version) == "" {
		version = "1.0.0"
	}
	s := &HealthService{name: name, version: version, started: time.Now()}
	s.register(pingDatabase, healthCritical)
	s.register(pingRedis, healthDegraded)
	s.register(emailTransport, healthDegraded)
	return s
}

// AddCheck attaches an optional component; a failure degrades the report.
func (s *HealthService) AddCheck(p DependencyCheck) {
	s.register(p, healthDegraded)
}

func (s *HealthService) register(p DependencyCheck, severity string) {
	s.checks = append(s.checks, registeredCheck{check: p, severity: severity})
}

func (s *HealthService) GetHealthReport() HealthReport {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	uptime := time.Since(s.started)
	report := HealthReport{
		Status:        healthOK,
		Service:       s.name,
		Version:       s.version,
		Environment:   environmentName(),
		Time:          time.Now().UTC(),
		UptimeSeconds: uptime.Seconds(),
		Uptime:        humanizeDuration(uptime),
		Runtime:       runtimeStats(),
		Flags:         featureFlags(),
	}
	for _, rp := range s.checks {
		dep := rp.check(ctx)
		if dep.Status == depDown {
			report.Status = combineStatus(report.Status, rp.severity)
		}
		report.Dependencies = append(report.Dependencies, dep)
	}
	return report
}

// HTTPStatusForOverall answers 503 only when a critical dependency is down.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == healthCritical {
		return 503
	}
	return 200
}

// timed runs fn and fills in the latency and status of dep.
func timed(dep DependencyStatus, fn func() error) DependencyStatus {
	start := time.Now()
	err := fn()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = depDown
		dep.Error = err.Error()
		return dep
	}
	dep.Status = depUp
	return dep
}

func pingDatabase(ctx context.Context) DependencyStatus {
	dep := DependencyStatus{Name: "mysql"}
	if database.DB == nil {
		dep.Status = depDown
		dep.Error = "database connection not initialised"
		return dep
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		dep.Status = depDown
		dep.Error = fmt.Sprintf("sql handle: %v", err)
		return dep
	}
	dep = timed(dep, func() error { return sqlDB.PingContext(ctx) })
	if dep.Status == depUp {
		st := sqlDB.Stats()
		dep.Details = map[string]interface{}{
			"open_connections":     st.OpenConnections,
			"in_use":               st.InUse,
			"idle":                 st.Idle,
			"wait_count":           st.WaitCount,
			"max_open_connections": st.MaxOpenConnections,
		}
	}
	return dep
}

// pingRedis only counts as down when the notification queue depends on it.
func pingRedis(ctx context.Context) DependencyStatus {
	dep := DependencyStatus{Name: "redis"}
	required := config.AppConfig != nil && config.AppConfig.UseRedisNotifications
	client := database.GetRedisClient()
	if client == nil {
		if required {
			dep.Status = depDown
			dep.Error = "redis client not initialised"
		} else {
			dep.Status = depDisabled
		}
		return dep
	}
	dep = timed(dep, func() error { return client.Ping(ctx).Err() })
	if dep.Status == depDown && !required {
		dep.Status = depDisabled
	}
	dep.Details = map[string]interface{}{"address": client.Options().Addr, "queue": required}
	return dep
}

func emailTransport(context.Context) DependencyStatus {
	svc := email.Default()
	if svc == nil {
		return DependencyStatus{Name: "email", Status: depDisabled}
	}
	return DependencyStatus{Name: "email", Status: depUp, Details: map[string]interface{}{"transport": svc.TransportName()}}
}

func runtimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	rs := RuntimeStats{
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   mem.HeapAlloc,
		HeapObjects: mem.HeapObjects,
		SysBytes:    mem.Sys,
		NumGC:       mem.NumGC,
	}
	if c, ok := notifications.DefaultWSHub().(interface{ GetClientCount() int }); ok {
		n := c.GetClientCount()
		rs.WSClients = &n
	}
	return rs
}

func featureFlags() HealthFlags {
	cfg := config.AppConfig
	if cfg == nil {
		return HealthFlags{}
	}
	return HealthFlags{
		SkipMigrate:           cfg.SkipMigrate,
		UseRedisNotifications: cfg.UseRedisNotifications,
		EmailProvider:         cfg.EmailProvider,
		LineEnabled:           cfg.LineChannelSecret != "" && cfg.LineChannelToken != "",
	}
}

func environmentName() string {
	if config.AppConfig == nil || strings.TrimSpace(config.AppConfig.AppEnv) == "" {
		return "unknown"
	}
	return strings.TrimSpace(config.AppConfig.AppEnv)
}

var healthRank = map[string]int{healthOK: 0, healthDegraded: 1, healthCritical: 2}

// combineStatus keeps the worse of the two.
func combineStatus(current, candidate string) string {
	if healthRank[candidate] > healthRank[current] {
		return candidate
	}
	return current
}

func humanizeDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	units := []struct {
		size   time.Duration
		suffix string
	}{{24 * time.Hour, "d"}, {time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"}}
	var parts []string
	for _, u := range units {
		if n := d / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			d -= n * u.size
		}
	}
	return strings.Join(parts, " ")
}
