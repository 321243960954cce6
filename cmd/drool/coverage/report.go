// Package coverage reports which source fields a generation run referenced
// and whether the mapping table resolves them.
package coverage

import (
	"io"
	"strconv"

	"github.com/cqframework/cqftooling/cmd/drool/mapping"
	"github.com/cqframework/cqftooling/models/drool"
	"github.com/olekukonko/tablewriter"
)

// Row is the coverage of one source field.
type Row struct {
	TemplateName string `json:"templateName" db:"template_name"`
	NodePath     string `json:"nodePath" db:"node_path"`
	Key          string `json:"key" db:"field_key"`
	Mapped       bool   `json:"mapped" db:"mapped"`
	ResourceType string `json:"resourceType,omitempty" db:"resource_type"`
	Path         string `json:"path,omitempty" db:"path"`
}

// Report lists every seen field ordered by key.
type Report struct {
	Rows     []Row `json:"rows"`
	Mapped   int   `json:"mapped"`
	Unmapped int   `json:"unmapped"`
}

// Build checks every field in fields against table.
func Build(fields *drool.FieldSet, table *mapping.Table) *Report {
	r := &Report{Rows: make([]Row, 0, fields.Len())}
	for _, f := range fields.Sorted() {
		row := Row{
			TemplateName: f.TemplateName,
			NodePath:     f.NodePath,
			Key:          f.Key(),
		}
		if target, ok := table.Lookup(f); ok {
			row.Mapped = true
			row.ResourceType = target.ResourceType
			row.Path = target.Path
			r.Mapped++
		} else {
			r.Unmapped++
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// UnmappedRows returns the rows the table could not resolve.
func (r *Report) UnmappedRows() []Row {
	var out []Row
	for _, row := range r.Rows {
		if !row.Mapped {
			out = append(out, row)
		}
	}
	return out
}

// WriteTable prints the report as a text table.
func (r *Report) WriteTable(w io.Writer) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Field", "Mapped", "Resource", "Path"})
	tw.SetAutoWrapText(false)

	for _, row := range r.Rows {
		tw.Append([]string{row.Key, strconv.FormatBool(row.Mapped), row.ResourceType, row.Path})
	}
	tw.SetFooter([]string{"Total " + strconv.Itoa(len(r.Rows)), strconv.Itoa(r.Mapped) + " mapped", "", ""})
	tw.Render()
}
