package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/platinummonkey/hangar/pkg/control"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Bold(true)

	statusStyles = map[string]lipgloss.Style{
		"ACTIVE":      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		"INACTIVE":    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"UNINSTALLED": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMessage(w io.Writer, format, msg string) error {
	if format == outputJSON {
		return writeJSON(w, map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func renderStatus(status string) string {
	if status == "" {
		status = "-"
	}
	if style, ok := statusStyles[status]; ok {
		return style.Render(status)
	}
	return status
}

// writePluginTable renders one row per plugin; columns are padded on visible width
func writePluginTable(w io.Writer, list []control.PluginSummary) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No plugins found")
		return err
	}

	headers := []string{"NAME", "VERSION", "STATUS", "ENABLED", "INSTALLED", "SOURCE"}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		status := p.Status
		if status == "" {
			status = "-"
		}
		rows = append(rows, []string{p.Name, p.Version, status, yesNo(p.Enabled), yesNo(p.Installed), p.Source})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i == 2 {
				cell = renderStatus(cell)
			}
			b.WriteString(lipgloss.NewStyle().Width(widths[i] + 2).Render(cell))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writePluginDetail(w io.Writer, d *control.PluginDetail) error {
	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label+":") + " " + value + "\n")
	}

	field("Name", d.Name)
	field("Version", d.Version)
	field("Description", d.Description)
	field("Status", renderStatus(d.Status))
	field("Enabled", yesNo(d.Enabled))
	field("Installed", yesNo(d.Installed))
	if d.InstalledAt != nil {
		field("Installed at", d.InstalledAt.Format("2006-01-02 15:04:05 MST"))
	}
	field("Source", d.Source)
	field("Author", d.Author)
	field("Homepage", d.Homepage)
	field("Keywords", strings.Join(d.Keywords, ", "))

	if len(d.Dependencies) > 0 {
		names := make([]string, 0, len(d.Dependencies))
		for name := range d.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		deps := make([]string, 0, len(names))
		for _, name := range names {
			deps = append(deps, name+" "+d.Dependencies[name])
		}
		field("Dependencies", strings.Join(deps, ", "))
	}

	config, err := json.MarshalIndent(d.Config, "", "  ")
	if err != nil {
		return err
	}
	field("Config", string(config))

	if len(d.ConfigSchema) > 0 {
		schema, err := json.MarshalIndent(d.ConfigSchema, "", "  ")
		if err != nil {
			return err
		}
		field("Config schema", string(schema))
	}

	_, err = io.WriteString(w, b.String())
	return err
}
