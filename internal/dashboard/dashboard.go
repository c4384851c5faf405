// Package dashboard maintains a GitLab issue that lists the pending
// dependency updates of a package manager.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/gitlabclt"
	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/orderedmap"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go . IssueClient

const loggerName = "dashboard"

const (
	titlePrefix = "Dependencies Dashboard"
	label       = "dashboard"
	depsLabel   = "dependencies"
)

type IssueClient interface {
	ListOpenIssues(ctx context.Context, search string, labels []string) ([]*gitlabclt.Issue, error)
	CreateIssue(ctx context.Context, title, description string, labels []string) (*gitlabclt.Issue, error)
	UpdateIssueDescription(ctx context.Context, iid int, description string) error
}

// MergeRequestLink references a merge request of a pending update.
type MergeRequestLink struct {
	IID int
	URL string
}

// Entry is a pending update of a dependency.
type Entry struct {
	Name           string
	CurrentVersion string
	NextVersion    string
	MergeRequests  []MergeRequestLink
}

// Dashboard collects pending updates and publishes them as issue.
type Dashboard struct {
	packageManager string
	entries        *orderedmap.Map[string, *Entry]
	logger         *zap.Logger
}

func New(packageManager string) *Dashboard {
	return &Dashboard{
		packageManager: packageManager,
		entries:        orderedmap.New[string, *Entry](),
		logger:         zap.L().Named(loggerName).With(logfields.PackageManager(packageManager)),
	}
}

// Add records a pending update. Adding a dependency multiple times merges
// the merge request links into the first entry.
func (d *Dashboard) Add(name, currentVersion, nextVersion string, mrs ...MergeRequestLink) {
	entry, _ := d.entries.AddIfNotExist(name, &Entry{
		Name:           name,
		CurrentVersion: currentVersion,
		NextVersion:    nextVersion,
	})

	for _, mr := range mrs {
		if mr.URL == "" || containsLink(entry.MergeRequests, mr) {
			continue
		}

		entry.MergeRequests = append(entry.MergeRequests, mr)
	}
}

func containsLink(links []MergeRequestLink, l MergeRequestLink) bool {
	for _, e := range links {
		if e.URL == l.URL {
			return true
		}
	}

	return false
}

// Entries returns the recorded updates in the order they were added.
func (d *Dashboard) Entries() []*Entry {
	return d.entries.AsSlice()
}

// Title returns the title of the dashboard issue.
func (d *Dashboard) Title() string {
	return fmt.Sprintf("%s (%s)", titlePrefix, d.packageManager)
}

// Labels returns the labels of the dashboard issue.
func (d *Dashboard) Labels() []string {
	return []string{depsLabel, label, d.packageManager}
}

// Render returns the markdown description of the dashboard issue.
// The result only depends on the added entries.
func (d *Dashboard) Render() string {
	var sb strings.Builder

	sb.WriteString("This issue lists the pending dependency updates.\n\n")

	if d.entries.Len() == 0 {
		sb.WriteString("All dependencies are up to date.\n")
		return sb.String()
	}

	sb.WriteString("| Dependency | Current version | Next version | Merge requests |\n")
	sb.WriteString("|---|---|---|---|\n")

	d.entries.Foreach(func(e *Entry) bool {
		links := make([]string, 0, len(e.MergeRequests))
		for _, mr := range e.MergeRequests {
			text := mr.URL
			if mr.IID != 0 {
				text = fmt.Sprintf("!%d", mr.IID)
			}

			links = append(links, fmt.Sprintf("[%s](%s)", escapeCell(text), mr.URL))
		}

		mrCell := strings.Join(links, " ")
		if mrCell == "" {
			mrCell = "-"
		}

		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			escapeCell(e.Name),
			escapeCell(e.CurrentVersion),
			escapeCell(e.NextVersion),
			mrCell,
		)

		return true
	})

	return sb.String()
}

func escapeCell(s string) string {
	if s == "" {
		return "-"
	}

	return strings.ReplaceAll(s, "|", `\|`)
}

// Publish creates the dashboard issue or updates the description of the
// existing one. If the description did not change, the issue is not
// modified.
func (d *Dashboard) Publish(ctx context.Context, clt IssueClient) (*gitlabclt.Issue, error) {
	title := d.Title()
	labels := d.Labels()
	body := d.Render()

	issues, err := clt.ListOpenIssues(ctx, title, labels)
	if err != nil {
		return nil, fmt.Errorf("searching dashboard issue failed: %w", err)
	}

	var existing *gitlabclt.Issue
	for _, is := range issues {
		if is.Title != title {
			continue
		}

		if existing != nil {
			d.logger.Warn(
				"found multiple dashboard issues, updating the first one",
				logfields.Event("dashboard_issue_duplicate"),
				logfields.Issue(is.IID),
			)
			continue
		}

		existing = is
	}

	if existing == nil {
		is, err := clt.CreateIssue(ctx, title, body, labels)
		if err != nil {
			return nil, fmt.Errorf("creating dashboard issue failed: %w", err)
		}

		d.logger.Info(
			"created dashboard issue",
			logfields.Event("dashboard_issue_created"),
			logfields.Issue(is.IID),
			logfields.URL(is.WebURL),
		)

		return is, nil
	}

	logger := d.logger.With(logfields.Issue(existing.IID), logfields.URL(existing.WebURL))

	if existing.Description == body {
		logger.Debug("dashboard issue is up to date", logfields.Event("dashboard_issue_uptodate"))
		return existing, nil
	}

	if err := clt.UpdateIssueDescription(ctx, existing.IID, body); err != nil {
		return nil, fmt.Errorf("updating dashboard issue #%d failed: %w", existing.IID, err)
	}

	logger.Info("updated dashboard issue", logfields.Event("dashboard_issue_updated"))

	result := *existing
	result.Description = body

	return &result, nil
}
