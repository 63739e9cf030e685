package forms

import (
	"strings"
	"time"
)

// ValidateStage returns the labels of required fields left empty in data.
// Whitespace-only values count as empty.
func ValidateStage(stage StageID, data map[string]string) []string {
	var missing []string
	for _, f := range Registry[stage] {
		if f.Required && strings.TrimSpace(data[f.ID]) == "" {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

func header(b *strings.Builder, project, stageTitle string, now time.Time) {
	b.WriteString("# SOPForm Studio Export\n")
	b.WriteString("Project: " + project + "\n")
	if stageTitle != "" {
		b.WriteString("Stage: " + stageTitle + "\n")
	}
	b.WriteString("UpdatedAt: " + now.UTC().Format("2006-01-02T15:04:05.000Z") + "\n")
	b.WriteString("\n## Rules\n")
	b.WriteString("- Missing required fields must be asked.\n")
	b.WriteString("- Do not assume anything not written.\n")
	b.WriteString("\n## Fields\n")
}

func fields(b *strings.Builder, stage StageID, data map[string]string) {
	for _, f := range Registry[stage] {
		b.WriteString("\n[" + f.Label + "]\n")
		b.WriteString(data[f.ID] + "\n")
	}
}

// ExportStage renders one stage of project as text.
func ExportStage(p Project, stage StageID, now time.Time) string {
	var b strings.Builder
	header(&b, p.Name, StageTitles[stage], now)
	fields(&b, stage, p.Stages[stage])
	return b.String()
}

// ExportProject renders every stage of project as text, in stage order.
func ExportProject(p Project, now time.Time) string {
	var b strings.Builder
	header(&b, p.Name, "", now)
	for _, stage := range StageOrder {
		b.WriteString("\n## Stage: " + StageTitles[stage] + "\n")
		fields(&b, stage, p.Stages[stage])
	}
	return b.String()
}
