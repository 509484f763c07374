// Package sync moves grant directories between the local filesystem
// and the shared collaboration backend.
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/policyengine/grantkit/internal/budget"
	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/internal/store"
)

// Stats summarizes one push or pull. Errors collects per-item failures
// without aborting the rest of the run.
type Stats struct {
	Grants       int      `json:"grants"`
	Responses    int      `json:"responses"`
	FilesWritten int      `json:"files_written,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Syncer pushes and pulls grant state through a Store.
type Syncer struct {
	store     store.Store
	grantsDir string
}

// NewSyncer returns a Syncer rooted at grantsDir.
func NewSyncer(st store.Store, grantsDir string) *Syncer {
	return &Syncer{store: st, grantsDir: grantsDir}
}

// Push uploads local grant directories to the backend. An empty grantID
// pushes every directory containing a grant.yaml. Before upload, any
// budget.yaml in the directory is recomputed and its grand total synced
// into the grant metadata so the backend never sees a stale figure.
// Per-grant failures are recorded in Stats.Errors; the run continues.
func (s *Syncer) Push(ctx context.Context, grantID string) (*Stats, error) {
	dirs, err := s.grantDirs(grantID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, dir := range dirs {
		grantPath := filepath.Join(dir, "grant.yaml")
		if _, err := os.Stat(grantPath); err != nil {
			zap.S().Warnw("no grant.yaml, skipping", "dir", dir)
			continue
		}

		var budgetData map[string]any
		budgetPath := filepath.Join(dir, "budget.yaml")
		if _, err := os.Stat(budgetPath); err == nil {
			if _, err := budget.SyncToGrant(budgetPath, grantPath); err != nil {
				stats.Errors = append(stats.Errors,
					fmt.Sprintf("budget %s: %v", filepath.Base(dir), err))
			} else if data, err := budgetPayload(budgetPath); err == nil {
				budgetData = data
			}
		}

		record, err := loadGrantRecord(grantPath, filepath.Base(dir))
		if err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("grant %s: %v", filepath.Base(dir), err))
			continue
		}
		record.Budget = budgetData

		if err := s.store.UpsertGrant(ctx, record); err != nil {
			stats.Errors = append(stats.Errors,
				fmt.Sprintf("grant %s: %v", filepath.Base(dir), err))
			continue
		}
		stats.Grants++
		zap.S().Infow("pushed grant", "grant", record.Name)

		stats.Responses += s.pushResponses(ctx, dir, record.ID, stats)
	}
	return stats, nil
}

// responseDirs lists the layouts a grant directory may use for its
// response documents. The first one that exists wins.
var responseDirs = []string{
	filepath.Join("responses", "full"),
	"responses",
	filepath.Join("docs", "responses"),
}

func (s *Syncer) pushResponses(ctx context.Context, grantDir, grantID string, stats *Stats) int {
	pushed := 0
	for _, rel := range responseDirs {
		dir := filepath.Join(grantDir, rel)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			response, err := ParseResponseFile(path, grantID)
			if err != nil {
				stats.Errors = append(stats.Errors,
					fmt.Sprintf("response %s: %v", entry.Name(), err))
				continue
			}
			if err := s.store.UpsertResponse(ctx, response); err != nil {
				stats.Errors = append(stats.Errors,
					fmt.Sprintf("response %s: %v", entry.Name(), err))
				continue
			}
			pushed++
		}
		break
	}
	return pushed
}

// Pull downloads grants and responses from the backend into local
// directories. An empty grantID pulls everything visible.
func (s *Syncer) Pull(ctx context.Context, grantID string) (*Stats, error) {
	var grants []model.GrantRecord
	if grantID != "" {
		grant, err := s.store.GetGrant(ctx, grantID)
		if err != nil {
			return nil, err
		}
		grants = []model.GrantRecord{*grant}
	} else {
		var err error
		grants, err = s.store.ListGrants(ctx, store.GrantFilter{})
		if err != nil {
			return nil, err
		}
	}

	stats := &Stats{}
	for _, grant := range grants {
		grantDir := filepath.Join(s.grantsDir, grant.ID)
		if err := os.MkdirAll(filepath.Join(grantDir, "responses"), 0o755); err != nil {
			return nil, eris.Wrapf(err, "sync: creating %s", grantDir)
		}

		meta := model.Grant{
			ID:              grant.ID,
			Name:            grant.Name,
			Foundation:      grant.Foundation,
			Program:         grant.Program,
			Deadline:        grant.Deadline,
			Status:          grant.Status,
			AmountRequested: grant.AmountRequested,
			DurationYears:   grant.DurationYears,
		}
		// Metadata holds the keys Push folded out of grant.yaml;
		// unfold them so a push/pull round trip loses nothing.
		for k, v := range grant.Metadata {
			if k == "research_gov" {
				if rg, ok := v.(map[string]any); ok {
					meta.ResearchGov = rg
					continue
				}
			}
			if meta.Extra == nil {
				meta.Extra = map[string]any{}
			}
			meta.Extra[k] = v
		}
		out, err := yaml.Marshal(&meta)
		if err != nil {
			return nil, eris.Wrapf(err, "sync: encoding grant %s", grant.ID)
		}
		if err := os.WriteFile(filepath.Join(grantDir, "grant.yaml"), out, 0o644); err != nil {
			return nil, eris.Wrapf(err, "sync: writing grant %s", grant.ID)
		}
		stats.Grants++
		stats.FilesWritten++

		responses, err := s.store.ListResponses(ctx, grant.ID)
		if err != nil {
			return nil, err
		}
		for _, response := range responses {
			path := filepath.Join(grantDir, "responses", response.Key+".md")
			if err := writeResponseFile(path, &response); err != nil {
				return nil, err
			}
			stats.Responses++
			stats.FilesWritten++
		}
		zap.S().Infow("pulled grant", "grant", grant.Name, "responses", len(responses))
	}
	return stats, nil
}

func (s *Syncer) grantDirs(grantID string) ([]string, error) {
	if grantID != "" {
		return []string{filepath.Join(s.grantsDir, grantID)}, nil
	}
	entries, err := os.ReadDir(s.grantsDir)
	if err != nil {
		return nil, eris.Wrapf(err, "sync: reading %s", s.grantsDir)
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.grantsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "grant.yaml")); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// loadGrantRecord reads grant.yaml into a backend record, defaulting the
// id to the directory name and folding unknown keys into metadata.
func loadGrantRecord(path, dirName string) (*model.GrantRecord, error) {
	grant, err := budget.LoadGrant(path)
	if err != nil {
		return nil, err
	}

	record := &model.GrantRecord{
		ID:              grant.ID,
		Name:            grant.Name,
		Foundation:      grant.Foundation,
		Program:         grant.Program,
		Deadline:        grant.Deadline,
		Status:          grant.Status,
		AmountRequested: grant.AmountRequested,
		DurationYears:   grant.DurationYears,
	}
	if record.ID == "" {
		record.ID = dirName
	}
	if record.Name == "" {
		record.Name = dirName
	}
	if len(grant.Extra) > 0 || len(grant.ResearchGov) > 0 {
		record.Metadata = map[string]any{}
		for k, v := range grant.Extra {
			record.Metadata[k] = v
		}
		if len(grant.ResearchGov) > 0 {
			record.Metadata["research_gov"] = grant.ResearchGov
		}
	}
	return record, nil
}

// budgetPayload reads the full budget file, attaches the computed
// summary, and returns it for JSONB storage alongside the grant.
func budgetPayload(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sync: reading %s", path)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, eris.Wrapf(err, "sync: parsing %s", path)
	}

	calc, err := budget.Load(path)
	if err != nil {
		return nil, err
	}
	data["summary"] = calc.Summary()
	return data, nil
}
