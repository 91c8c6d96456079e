package coercer

import (
	"github.com/kaptinlin/jsonrepair"
)

// Repairer rewrites possibly malformed JSON text into something a decoder can
// read. An error means the repairer gave up.
type Repairer interface {
	Repair(text string) (string, error)
}

type RepairFunc func(text string) (string, error)

func (f RepairFunc) Repair(text string) (string, error) { return f(text) }

// Identity hands the text to the decoder unchanged.
var Identity Repairer = RepairFunc(func(text string) (string, error) { return text, nil })

// Tolerant fixes trailing commas, single quotes, unescaped quotes, missing
// closing brackets and similar damage.
var Tolerant Repairer = RepairFunc(jsonrepair.JSONRepair)
