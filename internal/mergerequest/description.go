package mergerequest

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/githubclt"
	"github.com/simplesurance/depupdater/internal/stringutils"
)

const maxDescriptionCommits = 10

// maxReleaseNotesLen limits the release notes in the description, GitLab
// rejects descriptions above 1MB.
const maxReleaseNotesLen = 20000

const descriptionTemplate = `Bumps {{ link .Dependency.Name .SourceURL }} {{ change .Dependency }}.
{{- with .Release }}

<details>
<summary>Release notes</summary>

*Sourced from [{{ or .Name .TagName }}]({{ .URL }}).*

{{ quote .Description }}
</details>
{{- end }}
{{- if .Commits }}

<details>
<summary>Commits</summary>

{{ range .Commits }}- [{{ shortSHA .SHA }}]({{ .URL }}) {{ firstLine .Message }}
{{ end -}}
{{ if .MoreCommits }}- Additional commits viewable in [compare view]({{ .CompareURL }})
{{ end -}}
</details>
{{- end }}
{{- if .Peers }}

This update also changes:
{{ range .Peers }}
- {{ .Name }} {{ change . }}
{{- end }}
{{- end }}
`

var descriptionTmpl = template.Must(template.New("description").Funcs(template.FuncMap{
	"change":    change,
	"link":      markdownLink,
	"quote":     quote,
	"shortSHA":  shortSHA,
	"firstLine": firstLine,
}).Parse(descriptionTemplate))

type descriptionData struct {
	Dependency  *deps.Dependency
	Peers       []*deps.Dependency
	SourceURL   string
	Release     *githubclt.Release
	Commits     []*githubclt.Commit
	MoreCommits bool
	CompareURL  string
}

// Description returns the merge request description for the updated
// dependencies. notes is optional.
func Description(updated []*deps.Dependency, notes *ReleaseNotes) (string, error) {
	data := descriptionData{
		Dependency: updated[0],
		Peers:      updated[1:],
	}

	if notes != nil {
		data.SourceURL = notes.SourceURL
		data.Release = notes.Release

		if cmp := notes.Comparison; cmp != nil {
			data.CompareURL = cmp.URL
			data.Commits = cmp.Commits

			if len(cmp.Commits) > maxDescriptionCommits {
				data.Commits = cmp.Commits[len(cmp.Commits)-maxDescriptionCommits:]
				data.MoreCommits = true
			}
		}
	}

	var sb strings.Builder
	if err := descriptionTmpl.Execute(&sb, &data); err != nil {
		return "", fmt.Errorf("rendering description template failed: %w", err)
	}

	return sb.String(), nil
}

func markdownLink(text, url string) string {
	if url == "" {
		return text
	}

	return fmt.Sprintf("[%s](%s)", text, url)
}

func quote(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if len(s) > maxReleaseNotesLen {
		s = s[:maxReleaseNotesLen] + "\n..."
	}

	return stringutils.IndentString(s, "> ")
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}

	return sha
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
