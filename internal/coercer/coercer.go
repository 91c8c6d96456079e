// Package coercer turns raw model text into a StudyAnswer. It never fails:
// anything it cannot decode becomes a plain-text answer.
package coercer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/yoockh/studybuddy/internal/models"
)

// Path says which stage produced the answer.
type Path string

const (
	PathStrict   Path = "strict"
	PathRepaired Path = "repaired"
	PathFallback Path = "fallback"
)

// Stage is one attempt in the repair chain.
type Stage struct {
	Path     Path
	Repairer Repairer
}

type Coercer struct {
	stages []Stage
}

// New builds a coercer that tries stages in order before falling back.
func New(stages ...Stage) *Coercer {
	return &Coercer{stages: stages}
}

// Default tries a strict decode, then the tolerant repair pass.
func Default() *Coercer {
	return New(
		Stage{Path: PathStrict, Repairer: Identity},
		Stage{Path: PathRepaired, Repairer: Tolerant},
	)
}

func (c *Coercer) Coerce(text string) models.StudyAnswer {
	a, _ := c.CoerceWithPath(text)
	return a
}

func (c *Coercer) CoerceWithPath(text string) (models.StudyAnswer, Path) {
	if strings.Contains(text, "{") && strings.Contains(text, "}") {
		fragment := text[strings.Index(text, "{"):]
		for _, st := range c.stages {
			if a, ok := attempt(st.Repairer, fragment); ok {
				return a, st.Path
			}
		}
	}
	return models.FallbackAnswer(strings.TrimSpace(text)), PathFallback
}

// attempt runs one repairer and decodes its output. A panicking repairer
// counts as a failed attempt.
func attempt(r Repairer, fragment string) (a models.StudyAnswer, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	fixed, err := r.Repair(fragment)
	if err != nil {
		return models.StudyAnswer{}, false
	}
	return decode(fixed)
}

// decode reads the first JSON value of s, which must be an object. Trailing
// content after that value is ignored. Missing keys take their zero defaults;
// present keys must have the right type and must not be null.
func decode(s string) (models.StudyAnswer, bool) {
	var obj map[string]json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&obj); err != nil || obj == nil {
		return models.StudyAnswer{}, false
	}

	a := models.FallbackAnswer("")
	if raw, ok := obj["answer"]; ok {
		if isNull(raw) || json.Unmarshal(raw, &a.Answer) != nil {
			return models.StudyAnswer{}, false
		}
	}
	for key, dst := range map[string]*[]string{
		"key_points":          &a.KeyPoints,
		"follow_up_questions": &a.FollowUpQuestions,
		"references":          &a.References,
	} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		list, ok := stringList(raw)
		if !ok {
			return models.StudyAnswer{}, false
		}
		*dst = list
	}
	return a, true
}

func stringList(raw json.RawMessage) ([]string, bool) {
	if isNull(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if isNull(item) || json.Unmarshal(item, &s) != nil {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
