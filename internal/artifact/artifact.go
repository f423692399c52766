// Package artifact reads the file-dropped operational artifacts: the provider
// credential registry maintained by the ops console and the offline-trained
// LTR model. Both treat a missing file as "not configured", never as an error.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/ranking/scorer"
)

// providerEntry mirrors one record of the provider registry file.
type providerEntry struct {
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Verified   bool   `json:"verified"`
	QuotaError bool   `json:"quotaError"`
}

// FileProviderSource loads the verified-provider set from a JSON file. The
// file is re-read on every Load so credential changes take effect without a
// restart; the model scorer already calls Load once per ranking.
type FileProviderSource struct {
	path string
}

func NewFileProviderSource(path string) *FileProviderSource {
	return &FileProviderSource{path: path}
}

func (s *FileProviderSource) Load(_ context.Context) (map[string]bool, error) {
	if s.path == "" {
		return map[string]bool{}, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("read provider registry: %w", err)
	}
	var entries []providerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse provider registry: %w", err)
	}

	verified := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.Verified || e.QuotaError {
			continue
		}
		if status := strings.ToLower(e.Status); status == "disabled" || status == "inactive" {
			continue
		}
		verified[scorer.ProviderKey(e.Provider)] = true
	}
	return verified, nil
}

// FileModelSource loads the LTR model artifact written by the offline trainer.
type FileModelSource struct {
	path string
}

func NewFileModelSource(path string) *FileModelSource {
	return &FileModelSource{path: path}
}

// Load returns (nil, nil) when no artifact exists; ranking then proceeds
// without the LTR stage.
func (s *FileModelSource) Load(_ context.Context) (*domain.LTRModel, error) {
	if s.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ltr model: %w", err)
	}
	var model domain.LTRModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("parse ltr model: %w", err)
	}
	if len(model.Weights) == 0 {
		return nil, nil
	}
	return &model, nil
}
