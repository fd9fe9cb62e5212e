package synth

import (
	"strings"

	"github.com/weave-lang/weave/internal/weaver/aspect"
)

// DocTexts returns the woven doc comment: the kept comment texts, then a
// Contract section with one bullet per described contract, then an Aspects
// section with the advice documentation of every aspect.
func (s *State) DocTexts(kept []string) []string {
	texts := append([]string(nil), kept...)

	var descs []string
	for _, c := range s.contracts() {
		if c.Description != "" {
			descs = append(descs, c.Description)
		}
	}
	if len(descs) > 0 {
		texts = appendSection(texts, "# Contract")
		for _, d := range descs {
			texts = append(texts, "//   - "+d)
		}
	}

	if len(s.Aspects) > 0 {
		texts = appendSection(texts, "# Aspects")
		for i, def := range s.Aspects {
			if i > 0 {
				texts = append(texts, "//")
			}
			texts = append(texts, "// ### "+def.Name)
			for _, line := range def.Docs {
				texts = append(texts, comment(line))
			}
			texts = appendAdvice(texts, "Before", def.Before)
			texts = appendAdvice(texts, "Around", def.Around)
			texts = appendAdvice(texts, "After", def.After)
		}
	}
	return texts
}

func appendSection(texts []string, heading string) []string {
	if len(texts) > 0 {
		texts = append(texts, "//")
	}
	return append(texts, "// "+heading, "//")
}

func appendAdvice(texts []string, label string, a *aspect.Advice) []string {
	if a == nil {
		return texts
	}
	excerpt := strings.TrimSpace(strings.Join(a.Docs, " "))
	if excerpt == "" {
		return append(texts, "//   - "+label)
	}
	return append(texts, "//   - "+label+": "+excerpt)
}

func comment(line string) string {
	if line == "" {
		return "//"
	}
	return "// " + line
}
