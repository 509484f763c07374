package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/policyengine/grantkit/internal/model"
)

// responseFrontmatter is the YAML block at the top of a response file.
type responseFrontmatter struct {
	Title     string `yaml:"title,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Status    string `yaml:"status,omitempty"`
	WordLimit *int   `yaml:"word_limit,omitempty"`
	CharLimit *int   `yaml:"char_limit,omitempty"`
	Question  string `yaml:"question,omitempty"`
}

var titleCaser = cases.Title(language.AmericanEnglish)

// ParseResponseFile reads a markdown response document with optional
// YAML frontmatter. Missing frontmatter fields get defaults: the key
// falls back to the file stem, the title to the key in title case, and
// the status to "draft" (or "empty" when the body is blank).
func ParseResponseFile(path, grantID string) (*model.ResponseRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sync: reading %s", path)
	}

	front, body := splitFrontmatter(string(raw))
	var fm responseFrontmatter
	if front != "" {
		if err := yaml.Unmarshal([]byte(front), &fm); err != nil {
			return nil, eris.Wrapf(err, "sync: parsing frontmatter in %s", path)
		}
	}

	key := fm.Key
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	title := fm.Title
	if title == "" {
		title = titleCaser.String(strings.ReplaceAll(key, "_", " "))
	}
	status := fm.Status
	if status == "" {
		if body == "" {
			status = "empty"
		} else {
			status = "draft"
		}
	}

	return &model.ResponseRecord{
		GrantID:   grantID,
		Key:       key,
		Title:     title,
		Content:   body,
		Status:    status,
		WordLimit: fm.WordLimit,
		CharLimit: fm.CharLimit,
		Question:  fm.Question,
	}, nil
}

// splitFrontmatter separates a leading --- delimited YAML block from the
// document body. Content without a frontmatter block comes back whole.
func splitFrontmatter(content string) (front, body string) {
	if !strings.HasPrefix(content, "---") {
		return "", strings.TrimSpace(content)
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return "", strings.TrimSpace(content)
	}
	return parts[1], strings.TrimSpace(parts[2])
}

func writeResponseFile(path string, response *model.ResponseRecord) error {
	fm := responseFrontmatter{
		Title:     response.Title,
		Key:       response.Key,
		Status:    response.Status,
		WordLimit: response.WordLimit,
		CharLimit: response.CharLimit,
		Question:  response.Question,
	}
	frontYAML, err := yaml.Marshal(&fm)
	if err != nil {
		return eris.Wrapf(err, "sync: encoding frontmatter for %s", response.Key)
	}

	content := fmt.Sprintf("---\n%s---\n\n%s", frontYAML, response.Content)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return eris.Wrapf(err, "sync: writing %s", path)
	}
	return nil
}
