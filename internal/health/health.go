package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"conferencia/painel/internal/assets"
	"conferencia/painel/internal/config"
)

// Pinger is satisfied by backend.HTTPClient.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// CheckAll runs all readiness checks and returns combined status.
func CheckAll(ctx context.Context, cfg config.Config, backend Pinger, defaultAsset string) HealthStatus {
	checks := []CheckResult{
		checkBackend(ctx, backend),
		checkAssetDir(cfg.Audio.AssetDir),
	}
	if cfg.Audio.Backend != "none" {
		checks = append(checks, checkAsset(cfg.Audio.AssetDir, defaultAsset))
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func checkBackend(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "backend"}
	if p == nil {
		result.Error = "backend client not configured"
		return result
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := p.Ping(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	result.OK = true
	return result
}

func checkAssetDir(dir string) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "asset_dir"}
	fi, err := os.Stat(dir)
	result.Latency = time.Since(start)
	switch {
	case err != nil:
		result.Error = err.Error()
	case !fi.IsDir():
		result.Error = fmt.Sprintf("%s is not a directory", dir)
	default:
		result.OK = true
	}
	return result
}

func checkAsset(dir, ref string) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "default_asset"}
	_, err := os.Stat(assets.FilePath(dir, ref))
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("default clip %s: %v", ref, err)
		return result
	}
	result.OK = true
	return result
}
