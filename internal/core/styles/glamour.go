package styles

import (
	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
)

func hexPtr(c string) *string {
	if c == "" {
		return nil
	}
	return &c
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig

	p := CurrentPalette
	fg := hexPtr(string(p.Foreground))
	primary := hexPtr(string(p.Primary))
	secondary := hexPtr(string(p.Secondary))
	muted := hexPtr(string(p.Muted))
	surface := hexPtr(string(p.Surface))

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = surface
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	return cfg
}
